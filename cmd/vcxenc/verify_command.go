package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vcxenc/internal/pack"
)

func newVerifyCommand() *cobra.Command {
	var structural bool

	cmd := &cobra.Command{
		Use:         "verify <pack>",
		Short:       "Verify a VCX pack",
		Long:        "Verify re-reads a pack, checks its trailer digest and index, and by default recomputes every payload CID and resolves every manifest reference.",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			full := !structural
			p, err := pack.Open(args[0], full)
			if err != nil {
				return err
			}
			mode := "full"
			if !full {
				mode = "structural"
			}
			counts := p.CountByTag()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ok: %s verified (%s)\n", args[0], mode)
			fmt.Fprintf(out, "manifest @id: %s\n", p.Manifest.ID)
			fmt.Fprintf(out, "payloads: tiles=%d sidecar=%d audio=%d\n",
				counts[pack.TagIC0Tile], counts[pack.TagSidecar], counts[pack.TagOpus])
			fmt.Fprintf(out, "size: %s strict=%s\n", humanize.Bytes(p.Layout.Size()), yesNo(p.Layout.Strict()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&structural, "structure-only", false, "Check layout, digest and index without recomputing payload CIDs")
	return cmd
}
