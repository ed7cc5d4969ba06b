package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vcxenc/internal/config"
	"vcxenc/internal/decoder"
	"vcxenc/internal/encoder"
	"vcxenc/internal/logging"
	"vcxenc/internal/metrics"
)

type encodeFlags struct {
	input        string
	output       string
	world        string
	manifestID   string
	manifestOut  string
	maxFrames    uint32
	tileSize     uint16
	audioBitrate string
	noAudio      bool
	noStrict     bool
	ffmpegBin    string
	ffprobeBin   string
}

func newEncodeCommand(ctx *commandContext) *cobra.Command {
	var flags encodeFlags

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a video file into a verified VCX pack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			opts := flags.options(cmd, cfg)
			ffmpegBin, ffprobeBin := flags.binaries(cmd, cfg)
			dec := decoder.NewFFmpeg(ffmpegBin, ffprobeBin, cfg.Paths.TempDir)

			encOpts := []encoder.Option{
				encoder.WithLogger(logger),
				encoder.WithMetrics(metrics.New(), cfg.Paths.MetricsTextfile),
				encoder.WithVersion(version),
			}
			if cfg.Ledger.Enabled {
				store, err := ctx.openLedger()
				if err != nil {
					logger.Warn("run ledger unavailable; run will not be recorded",
						logging.String("ledger_path", cfg.Paths.LedgerPath),
						logging.Error(err),
					)
				} else {
					defer store.Close()
					encOpts = append(encOpts, encoder.WithRecorder(store))
				}
			}

			result, err := encoder.New(dec, encOpts...).Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printEncodeSummary(cmd.ErrOrStderr(), result)
			return nil
		},
	}

	defaults := encoder.DefaultOptions(nil)
	fs := cmd.Flags()
	fs.StringVarP(&flags.input, "input", "i", "", "Input video file")
	fs.StringVarP(&flags.output, "output", "o", "", "Output VCX pack file")
	fs.StringVar(&flags.world, "world", "", "World anchor (e.g. a/demo/t/prod); defaults to [encode] world")
	fs.StringVar(&flags.manifestID, "manifest-id", "", "Manifest id (default derived from the input hash)")
	fs.StringVar(&flags.manifestOut, "manifest-out", "", "Also write the manifest as indented JSON to this path")
	fs.Uint32Var(&flags.maxFrames, "max-frames", defaults.MaxFrames, "Maximum number of video frames to ingest")
	fs.Uint16Var(&flags.tileSize, "tile-size", defaults.TileSize, "Tile edge length in pixels")
	fs.StringVar(&flags.audioBitrate, "audio-bitrate", defaults.AudioBitrate, "Opus bitrate for the audio payload")
	fs.BoolVar(&flags.noAudio, "no-audio", false, "Skip audio even when the source has an audio stream")
	fs.BoolVar(&flags.noStrict, "no-strict-unc1", false, "Disable the tagged-number manifest check when building the pack")
	fs.StringVar(&flags.ffmpegBin, "ffmpeg-bin", "", "ffmpeg binary name or path")
	fs.StringVar(&flags.ffprobeBin, "ffprobe-bin", "", "ffprobe binary name or path")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// options layers explicitly set flags over the configured encode defaults.
func (f encodeFlags) options(cmd *cobra.Command, cfg *config.Config) encoder.Options {
	opts := encoder.DefaultOptions(cfg)
	opts.InputPath = strings.TrimSpace(f.input)
	opts.OutputPath = strings.TrimSpace(f.output)
	opts.ManifestID = strings.TrimSpace(f.manifestID)
	opts.ManifestOut = strings.TrimSpace(f.manifestOut)

	changed := cmd.Flags().Changed
	if changed("world") {
		opts.World = f.world
	}
	if changed("max-frames") {
		opts.MaxFrames = f.maxFrames
	}
	if changed("tile-size") {
		opts.TileSize = f.tileSize
	}
	if changed("audio-bitrate") {
		opts.AudioBitrate = f.audioBitrate
	}
	if changed("no-audio") {
		opts.NoAudio = f.noAudio
	}
	if changed("no-strict-unc1") {
		opts.Strict = !f.noStrict
	}
	return opts
}

func (f encodeFlags) binaries(cmd *cobra.Command, cfg *config.Config) (string, string) {
	ffmpegBin := cfg.FFmpegBinary()
	ffprobeBin := cfg.FFprobeBinary()
	if cmd.Flags().Changed("ffmpeg-bin") && strings.TrimSpace(f.ffmpegBin) != "" {
		ffmpegBin = strings.TrimSpace(f.ffmpegBin)
	}
	if cmd.Flags().Changed("ffprobe-bin") && strings.TrimSpace(f.ffprobeBin) != "" {
		ffprobeBin = strings.TrimSpace(f.ffprobeBin)
	}
	return ffmpegBin, ffprobeBin
}

func printEncodeSummary(w io.Writer, result encoder.Result) {
	meta := result.Meta
	layout := result.Layout
	audio := 0
	if result.AudioCID != "" {
		audio = 1
	}

	fmt.Fprintf(w, "ok: wrote %s (%s)\n", result.OutputPath, humanize.Bytes(layout.Size()))
	fmt.Fprintln(w, "ok: deterministic verify --full passed")
	fmt.Fprintf(w, "video: %dx%d codec=%s fps=%d/%d frames=%d\n",
		meta.Width, meta.Height, meta.VideoCodec, meta.FPSNum, meta.FPSDen, result.Frames)
	fmt.Fprintf(w, "payloads: tiles=%d sidecar=1 audio=%d\n", result.Tiles, audio)
	fmt.Fprintf(w, "layout: manifest(%d,%d) index(%d,%d) payload(%d,%d) trailer(%d,%d)\n",
		layout.Manifest.Offset, layout.Manifest.Length,
		layout.Index.Offset, layout.Index.Length,
		layout.Payload.Offset, layout.Payload.Length,
		layout.Trailer.Offset, layout.Trailer.Length,
	)
	fmt.Fprintf(w, "manifest @id: %s\n", result.ManifestID)
	fmt.Fprintf(w, "sidecar cid: %s\n", result.SidecarCID)
	if result.AudioCID != "" {
		fmt.Fprintf(w, "audio cid: %s\n", result.AudioCID)
	}
	if result.ManifestOut != "" {
		fmt.Fprintf(w, "manifest copy: %s\n", result.ManifestOut)
	}
	fmt.Fprintf(w, "run id: %s\n", result.RunID)
}

