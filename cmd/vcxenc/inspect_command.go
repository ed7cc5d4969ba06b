package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vcxenc/internal/manifest"
	"vcxenc/internal/pack"
)

type inspectRegion struct {
	Offset uint64 `json:"offset"`
	Length uint64 `json:"length"`
}

type inspectEntry struct {
	Tag    string `json:"tag"`
	CID    string `json:"cid"`
	Offset uint64 `json:"offset"`
	Length uint64 `json:"length"`
}

type inspectView struct {
	Path          string                   `json:"path"`
	Version       uint16                   `json:"version"`
	Strict        bool                     `json:"strict"`
	Size          uint64                   `json:"size"`
	Regions       map[string]inspectRegion `json:"regions"`
	ManifestID    string                   `json:"manifest_id"`
	Video         string                   `json:"video"`
	World         string                   `json:"world"`
	DurationTicks uint64                   `json:"duration_ticks"`
	GOTs          int                      `json:"gots"`
	Entries       []inspectEntry           `json:"entries"`
}

func newInspectCommand() *cobra.Command {
	var asJSON bool
	var showManifest bool

	cmd := &cobra.Command{
		Use:         "inspect <pack>",
		Short:       "Show a pack's layout and payload index",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pack.Open(args[0], false)
			if err != nil {
				return err
			}
			if showManifest {
				data, err := manifest.MarshalIndent(p.Manifest)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			view := buildInspectView(args[0], p)
			if asJSON {
				return writeJSON(cmd, view)
			}
			renderInspect(cmd, view)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&showManifest, "manifest", false, "Print the embedded manifest as indented JSON")
	return cmd
}

func buildInspectView(path string, p *pack.Pack) inspectView {
	l := p.Layout
	view := inspectView{
		Path:    path,
		Version: l.Version,
		Strict:  l.Strict(),
		Size:    l.Size(),
		Regions: map[string]inspectRegion{
			"manifest": {Offset: l.Manifest.Offset, Length: l.Manifest.Length},
			"index":    {Offset: l.Index.Offset, Length: l.Index.Length},
			"payload":  {Offset: l.Payload.Offset, Length: l.Payload.Length},
			"trailer":  {Offset: l.Trailer.Offset, Length: l.Trailer.Length},
		},
		ManifestID: p.Manifest.ID,
		World:      p.Manifest.World,
		GOTs:       len(p.Manifest.GOTs),
		Entries:    make([]inspectEntry, 0, len(p.Index)),
	}
	view.Video = describeVideo(p.Manifest.Video)
	if ticks, err := p.Manifest.DurationTicks.Uint64(); err == nil {
		view.DurationTicks = ticks
	}
	for _, e := range p.Index {
		view.Entries = append(view.Entries, inspectEntry{
			Tag:    e.Tag.String(),
			CID:    e.CID,
			Offset: e.Offset,
			Length: e.Length,
		})
	}
	return view
}

func renderInspect(cmd *cobra.Command, view inspectView) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Pack", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "Path:      %s\n", view.Path)
	fmt.Fprintf(out, "Version:   %d\n", view.Version)
	fmt.Fprintf(out, "Strict:    %s\n", yesNo(view.Strict))
	fmt.Fprintf(out, "Size:      %s (%d bytes)\n", humanize.Bytes(view.Size), view.Size)
	fmt.Fprintf(out, "Manifest:  %s\n", view.ManifestID)
	fmt.Fprintf(out, "World:     %s\n", view.World)
	fmt.Fprintf(out, "Video:     %s\n", view.Video)
	fmt.Fprintf(out, "Duration:  %d ticks in %d GOTs\n", view.DurationTicks, view.GOTs)
	fmt.Fprintln(out)

	regionRows := make([][]string, 0, len(regionOrder))
	for _, name := range regionOrder {
		r := view.Regions[name]
		regionRows = append(regionRows, []string{
			name,
			strconv.FormatUint(r.Offset, 10),
			strconv.FormatUint(r.Length, 10),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"Region", "Offset", "Length"}, regionRows, rightAligned(3, 1, 2)))
	fmt.Fprintln(out)

	entryRows := make([][]string, 0, len(view.Entries))
	for i, e := range view.Entries {
		entryRows = append(entryRows, []string{
			strconv.Itoa(i),
			e.Tag,
			e.CID,
			strconv.FormatUint(e.Offset, 10),
			humanize.Bytes(e.Length),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "Tag", "CID", "Offset", "Size"}, entryRows, rightAligned(5, 0, 3, 4)))
}

func describeVideo(v manifest.Video) string {
	width, _ := v.Width.Uint64()
	height, _ := v.Height.Uint64()
	frames, _ := v.Frames.Uint64()
	tileSize, _ := v.TileSize.Uint64()
	num, den, err := v.FPS.Parts()
	if err != nil {
		return fmt.Sprintf("%dx%d %s, %d frames, tile %d", width, height, v.Codec, frames, tileSize)
	}
	return fmt.Sprintf("%dx%d %s @ %d/%d fps, %d frames, tile %d", width, height, v.Codec, num, den, frames, tileSize)
}

var regionOrder = []string{"manifest", "index", "payload", "trailer"}
