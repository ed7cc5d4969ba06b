package decoder

import (
	"context"

	"vcxenc/internal/frames"
	"vcxenc/internal/media/ffmpeg"
	"vcxenc/internal/media/ffprobe"
)

// Decoder is the media decoding capability the encoder depends on.
type Decoder interface {
	Probe(ctx context.Context, path string) (ffprobe.Result, error)
	DecodeFrames(ctx context.Context, path string, maxFrames uint32) (frames.Stream, error)
	TranscodeAudio(ctx context.Context, path, bitrate string) ([]byte, error)
}

// FFmpeg implements Decoder with the ffprobe and ffmpeg binaries.
type FFmpeg struct {
	ffprobeBinary string
	runner        *ffmpeg.Runner
}

// NewFFmpeg constructs a decoder for the given binaries. tempDir holds
// intermediate audio output and may be empty.
func NewFFmpeg(ffmpegBinary, ffprobeBinary, tempDir string) *FFmpeg {
	return &FFmpeg{
		ffprobeBinary: ffprobeBinary,
		runner:        ffmpeg.New(ffmpegBinary, ffmpeg.WithTempDir(tempDir)),
	}
}

// Probe inspects the container and its streams.
func (d *FFmpeg) Probe(ctx context.Context, path string) (ffprobe.Result, error) {
	return ffprobe.Inspect(ctx, d.ffprobeBinary, path)
}

// DecodeFrames starts a raw frame decode of the first video stream.
func (d *FFmpeg) DecodeFrames(ctx context.Context, path string, maxFrames uint32) (frames.Stream, error) {
	proc, err := d.runner.DecodeFrames(ctx, path, maxFrames)
	if err != nil {
		return nil, err
	}
	return proc, nil
}

// TranscodeAudio encodes the first audio stream to Opus.
func (d *FFmpeg) TranscodeAudio(ctx context.Context, path, bitrate string) ([]byte, error) {
	return d.runner.TranscodeAudio(ctx, path, bitrate)
}

var _ Decoder = (*FFmpeg)(nil)
