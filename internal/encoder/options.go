package encoder

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"vcxenc/internal/config"
	"vcxenc/internal/services"
)

// Options are the parameters of one encode run.
type Options struct {
	InputPath    string
	OutputPath   string
	World        string
	ManifestID   string // derived from the source hash when empty
	ManifestOut  string // optional pretty-printed manifest copy
	MaxFrames    uint32
	TileSize     uint16
	AudioBitrate string
	NoAudio      bool
	Strict       bool
}

// DefaultOptions seeds encode parameters from configuration. Input and
// output paths are left for the caller.
func DefaultOptions(cfg *config.Config) Options {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	return Options{
		World:        cfg.Encode.World,
		MaxFrames:    clampUint32(cfg.Encode.MaxFrames),
		TileSize:     clampUint16(cfg.Encode.TileSize),
		AudioBitrate: cfg.Encode.AudioBitrate,
		NoAudio:      cfg.Encode.NoAudio,
		Strict:       cfg.Encode.StrictNumbers,
	}
}

// Validate checks the options before any external work starts.
func (o Options) Validate() error {
	const stage = "validate"
	if o.MaxFrames == 0 {
		return services.Wrap(services.ErrValidation, stage, "max_frames", "must be at least 1", nil)
	}
	if o.TileSize == 0 {
		return services.Wrap(services.ErrValidation, stage, "tile_size", "must be at least 1", nil)
	}
	if strings.TrimSpace(o.World) == "" {
		return services.Wrap(services.ErrValidation, stage, "world", "world anchor is required", nil)
	}
	if strings.TrimSpace(o.OutputPath) == "" {
		return services.Wrap(services.ErrValidation, stage, "output", "output path is required", nil)
	}
	if !o.NoAudio && strings.TrimSpace(o.AudioBitrate) == "" {
		return services.Wrap(services.ErrValidation, stage, "audio_bitrate", "bitrate is required when audio is enabled", nil)
	}
	if strings.TrimSpace(o.InputPath) == "" {
		return services.Wrap(services.ErrValidation, stage, "input", "input path is required", nil)
	}
	info, err := os.Stat(o.InputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrValidation, stage, "input", fmt.Sprintf("%s does not exist", o.InputPath), err)
		}
		return services.Wrap(services.ErrValidation, stage, "input", "stat input", err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, stage, "input", fmt.Sprintf("%s is a directory", o.InputPath), nil)
	}
	return nil
}

func clampUint32(v int) uint32 {
	if v <= 0 {
		return 0
	}
	if uint64(v) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

func clampUint16(v int) uint16 {
	if v <= 0 {
		return 0
	}
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(v)
}
