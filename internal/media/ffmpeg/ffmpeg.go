package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Runner wraps the ffmpeg binary used for frame decoding and audio transcoding.
type Runner struct {
	binary  string
	tempDir string
}

// Option configures a Runner.
type Option func(*Runner)

// WithTempDir sets the directory used for intermediate transcode output.
func WithTempDir(dir string) Option {
	return func(r *Runner) {
		if dir = strings.TrimSpace(dir); dir != "" {
			r.tempDir = dir
		}
	}
}

// New constructs a Runner for the given binary, defaulting to "ffmpeg".
func New(binary string, opts ...Option) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	r := &Runner{binary: binary, tempDir: os.TempDir()}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// DecodeArgs returns the argument list for a raw 4:2:0 frame decode of the
// first video stream.
func DecodeArgs(path string, maxFrames uint32) []string {
	return []string{
		"-v", "error",
		"-nostdin",
		"-i", path,
		"-map", "0:v:0",
		"-pix_fmt", "yuv420p",
		"-vsync", "0",
		"-threads", "1",
		"-frames:v", strconv.FormatUint(uint64(maxFrames), 10),
		"-f", "rawvideo",
		"pipe:1",
	}
}

// AudioArgs returns the argument list for a constant bitrate Opus transcode of
// the first audio stream into output.
func AudioArgs(path, bitrate, output string) []string {
	return []string{
		"-v", "error",
		"-nostdin",
		"-i", path,
		"-map", "0:a:0",
		"-vn", "-sn", "-dn",
		"-c:a", "libopus",
		"-b:a", bitrate,
		"-vbr", "off",
		"-application", "audio",
		"-frame_duration", "20",
		"-compression_level", "10",
		"-f", "opus",
		"-y", output,
	}
}

// FrameProcess is a running decode. Read returns raw frame records from
// ffmpeg's stdout; Wait reports the exit status once stdout is exhausted.
type FrameProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer
	path   string
}

// DecodeFrames starts ffmpeg and returns the live frame stream.
func (r *Runner) DecodeFrames(ctx context.Context, path string, maxFrames uint32) (*FrameProcess, error) {
	cmd := exec.CommandContext(ctx, r.binary, DecodeArgs(path, maxFrames)...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: stdout pipe: %w", path, err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: start %s: %w", path, r.binary, err)
	}
	return &FrameProcess{cmd: cmd, stdout: stdout, stderr: &stderr, path: path}, nil
}

func (p *FrameProcess) Read(buf []byte) (int, error) {
	return p.stdout.Read(buf)
}

// Wait blocks until ffmpeg exits. A non-zero exit carries the captured stderr.
func (p *FrameProcess) Wait() error {
	if err := p.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg decode %s: %w: %s", p.path, err, strings.TrimSpace(p.stderr.String()))
	}
	return nil
}

// TranscodeAudio encodes the first audio stream of path to Opus and returns the
// encoded bytes. The intermediate file is removed on every path.
func (r *Runner) TranscodeAudio(ctx context.Context, path, bitrate string) ([]byte, error) {
	bitrate = strings.TrimSpace(bitrate)
	if bitrate == "" {
		return nil, errors.New("ffmpeg transcode: empty bitrate")
	}
	if err := os.MkdirAll(r.tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("ffmpeg transcode: ensure temp dir: %w", err)
	}
	output := filepath.Join(r.tempDir, fmt.Sprintf("vcx_audio_%d_%d.opus", os.Getpid(), time.Now().UnixNano()))
	defer func() { _ = os.Remove(output) }()

	cmd := exec.CommandContext(ctx, r.binary, AudioArgs(path, bitrate, output)...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg transcode %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg transcode %s: read output: %w", path, err)
	}
	return data, nil
}
