package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"vcxenc/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check external binaries and configured paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			configMsg := ctx.configPath
			configKind := statusOK
			if !ctx.configSeen {
				configMsg += " (not found, using defaults)"
				configKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Config", configKind, configMsg, colorize))
			world := cfg.Encode.World
			worldKind := statusInfo
			if world == "" {
				world = "not set (pass --world)"
				worldKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("World", worldKind, world, colorize))
			ledgerKind := statusInfo
			ledgerMsg := "disabled"
			if cfg.Ledger.Enabled {
				ledgerMsg = "enabled"
			}
			fmt.Fprintln(out, renderStatusLine("Run ledger", ledgerKind, ledgerMsg, colorize))
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(cfg)
			for _, result := range results {
				fmt.Fprintln(out, renderStatusLine(result.Name, resultKind(result), result.Detail, colorize))
			}
			if !preflight.Passed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
}
