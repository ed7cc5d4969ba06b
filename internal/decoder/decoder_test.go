package decoder

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func stub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return path
}

func TestFFmpegDecoderUsesConfiguredBinaries(t *testing.T) {
	dir := t.TempDir()
	probe := stub(t, dir, "ffprobe", `cat <<'JSON'
{"streams":[{"index":0,"codec_type":"video","codec_name":"h264","width":8,"height":8}],"format":{"duration":"1.0"}}
JSON`)
	ffmpeg := stub(t, dir, "ffmpeg", `printf 'xyz'`)

	dec := NewFFmpeg(ffmpeg, probe, dir)
	result, err := dec.Probe(context.Background(), "in.mp4")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected one video stream, got %d", result.VideoStreamCount())
	}

	stream, err := dec.DecodeFrames(context.Background(), "in.mp4", 2)
	if err != nil {
		t.Fatalf("DecodeFrames returned error: %v", err)
	}
	data, _ := io.ReadAll(stream)
	if err := stream.Wait(); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if string(data) != "xyz" {
		t.Fatalf("unexpected decode output %q", data)
	}
}
