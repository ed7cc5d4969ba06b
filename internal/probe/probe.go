package probe

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"vcxenc/internal/media/ffprobe"
)

var (
	ErrNoVideoStream     = errors.New("no video stream")
	ErrMissingDimensions = errors.New("video stream is missing width or height")
	ErrInvalidDimensions = errors.New("video stream has invalid dimensions")
	errUnusableRatio     = errors.New("unusable ratio")
)

const (
	defaultFPSNum uint32 = 30
	defaultFPSDen uint32 = 1
)

// VideoMeta is the canonical description of the source video.
type VideoMeta struct {
	Width           uint32
	Height          uint32
	FPSNum          uint32
	FPSDen          uint32
	DurationSeconds *float64
	FrameCountHint  *uint64
	VideoCodec      string
	AudioCodec      *string
}

// HasAudio reports whether the probe found an audio stream.
func (m VideoMeta) HasAudio() bool {
	return m.AudioCodec != nil
}

// Normalize converts ffprobe output into VideoMeta. The first video stream
// supplies geometry, rate, duration and frame-count hint; the first audio
// stream supplies the audio codec name.
func Normalize(result ffprobe.Result) (VideoMeta, error) {
	video, ok := result.FirstStream("video")
	if !ok {
		return VideoMeta{}, ErrNoVideoStream
	}
	if video.Width == nil || video.Height == nil {
		return VideoMeta{}, ErrMissingDimensions
	}
	width, height := *video.Width, *video.Height
	if width <= 0 || height <= 0 || int64(width) > math.MaxUint32 || int64(height) > math.MaxUint32 {
		return VideoMeta{}, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}

	meta := VideoMeta{
		Width:      uint32(width),
		Height:     uint32(height),
		VideoCodec: strings.TrimSpace(video.CodecName),
	}
	if meta.VideoCodec == "" {
		meta.VideoCodec = "unknown"
	}

	meta.FPSNum, meta.FPSDen = defaultFPSNum, defaultFPSDen
	for _, candidate := range []string{video.AvgFrameRate, video.RFrameRate} {
		if num, den, err := ParseRatio(candidate); err == nil {
			meta.FPSNum, meta.FPSDen = num, den
			break
		}
	}

	for _, candidate := range []string{video.Duration, result.ContainerDuration()} {
		if seconds, ok := parseDuration(candidate); ok {
			meta.DurationSeconds = &seconds
			break
		}
	}

	if hint, err := strconv.ParseUint(strings.TrimSpace(video.NBFrames), 10, 64); err == nil {
		meta.FrameCountHint = &hint
	}

	if audio, ok := result.FirstStream("audio"); ok {
		codec := strings.TrimSpace(audio.CodecName)
		if codec == "" {
			codec = "unknown"
		}
		meta.AudioCodec = &codec
	}

	return meta, nil
}

// ParseRatio parses "num/den" where both parts are positive 32-bit integers
// and returns the pair reduced by their greatest common divisor.
func ParseRatio(value string) (uint32, uint32, error) {
	numText, denText, ok := strings.Cut(strings.TrimSpace(value), "/")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", errUnusableRatio, value)
	}
	num, err := strconv.ParseUint(strings.TrimSpace(numText), 10, 32)
	if err != nil || num == 0 {
		return 0, 0, fmt.Errorf("%w: %q", errUnusableRatio, value)
	}
	den, err := strconv.ParseUint(strings.TrimSpace(denText), 10, 32)
	if err != nil || den == 0 {
		return 0, 0, fmt.Errorf("%w: %q", errUnusableRatio, value)
	}
	g := gcd(num, den)
	return uint32(num / g), uint32(den / g), nil
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func parseDuration(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "N/A") {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0, false
	}
	return seconds, true
}
