package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vcxenc/internal/ledger"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded encode runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRunsTable(runs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	cmd.AddCommand(newRunsShowCommand(ctx))
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a single encode run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			runID := strings.TrimSpace(args[0])
			run, err := store.Get(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %s not found", runID)
			}
			if asJSON {
				return writeJSON(cmd, run)
			}
			renderRunDetail(cmd, *run)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderRunsTable(runs []ledger.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.RunID,
			run.StartedAt.Local().Format(time.DateTime),
			string(run.Status),
			strconv.FormatUint(run.Frames, 10),
			strconv.FormatUint(run.Tiles, 10),
			packSize(run),
			run.Duration().Round(time.Millisecond).String(),
			run.OutputPath,
		})
	}
	headers := []string{"Run", "Started", "Status", "Frames", "Tiles", "Size", "Took", "Output"}
	return renderTable(headers, rows, rightAligned(len(headers), 3, 4, 5, 6))
}

func renderRunDetail(cmd *cobra.Command, run ledger.Run) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader("Run "+run.RunID, colorize) {
		fmt.Fprintln(out, line)
	}

	kind := statusOK
	if run.Status != ledger.StatusSucceeded {
		kind = statusError
	}
	fmt.Fprintln(out, renderStatusLine("Status", kind, string(run.Status), colorize))

	fields := []struct{ label, value string }{
		{"Started", run.StartedAt.Local().Format(time.RFC3339)},
		{"Took", run.Duration().Round(time.Millisecond).String()},
		{"Input", run.InputPath},
		{"Input hash", run.InputHash},
		{"Output", run.OutputPath},
		{"Manifest", run.ManifestID},
		{"Frames", strconv.FormatUint(run.Frames, 10)},
		{"Tiles", strconv.FormatUint(run.Tiles, 10)},
		{"Pack size", packSize(run)},
		{"Sidecar CID", run.SidecarCID},
		{"Audio CID", run.AudioCID},
		{"Error class", run.ErrorClass},
		{"Error", run.ErrorMessage},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, f.label+":", f.value)
	}
}

func packSize(run ledger.Run) string {
	if run.PackBytes == 0 {
		return "-"
	}
	return humanize.Bytes(run.PackBytes)
}
