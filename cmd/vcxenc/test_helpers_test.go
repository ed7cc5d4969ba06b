package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vcxenc/internal/config"
	"vcxenc/internal/testsupport"
)

// Two 8x8 yuv420p frames: 96 bytes each.
const (
	stubProbeJSON = `{"streams":[{"index":0,"codec_type":"video","codec_name":"h264","width":8,"height":8,"avg_frame_rate":"30/1","r_frame_rate":"30/1"}],"format":{"duration":"0.066667"}}`
	stubFrameSize = 96 * 2
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	inputPath  string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithMetricsTextfile()}, opts...)...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	binDir := filepath.Join(base, "bin")
	cfg.Tools.FFprobe = filepath.Join(binDir, "ffprobe")
	cfg.Tools.FFmpeg = filepath.Join(binDir, "ffmpeg")
	testsupport.WriteScript(t, cfg.Tools.FFprobe, "cat <<'JSON'\n"+stubProbeJSON+"\nJSON")
	testsupport.WriteScript(t, cfg.Tools.FFmpeg, fmt.Sprintf("head -c %d /dev/zero", stubFrameSize))

	inputPath := filepath.Join(base, "media", "clip.mp4")
	testsupport.WriteBytes(t, inputPath, []byte("synthetic source bytes"))

	configPath := filepath.Join(homeDir, ".config", "vcxenc", "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
		inputPath:  inputPath,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\nlog_dir = %q\nledger_path = %q\ntemp_dir = %q\nmetrics_textfile = %q\n\n",
		cfg.Paths.LogDir, cfg.Paths.LedgerPath, cfg.Paths.TempDir, cfg.Paths.MetricsTextfile)
	fmt.Fprintf(&b, "[tools]\nffmpeg = %q\nffprobe = %q\n\n", cfg.Tools.FFmpeg, cfg.Tools.FFprobe)
	fmt.Fprintf(&b, "[encode]\nworld = %q\nmax_frames = %d\ntile_size = %d\naudio_bitrate = %q\n\n",
		cfg.Encode.World, cfg.Encode.MaxFrames, cfg.Encode.TileSize, cfg.Encode.AudioBitrate)
	fmt.Fprintf(&b, "[logging]\nformat = %q\nlevel = \"error\"\n\n", cfg.Logging.Format)
	fmt.Fprintf(&b, "[ledger]\nenabled = %t\n", cfg.Ledger.Enabled)
	testsupport.WriteBytes(t, path, []byte(b.String()))
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
