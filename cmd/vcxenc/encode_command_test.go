package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vcxenc/internal/pack"
	"vcxenc/internal/services"
	"vcxenc/internal/testsupport"
)

func TestEncodeVerifyInspectRuns(t *testing.T) {
	env := setupCLITestEnv(t)
	out := filepath.Join(env.baseDir, "out", "clip.vcx")
	manifestCopy := filepath.Join(env.baseDir, "out", "manifest.json")

	_, stderr, err := runCLI(t, []string{
		"encode",
		"--input", env.inputPath,
		"--output", out,
		"--tile-size", "4",
		"--manifest-out", manifestCopy,
	}, env.configPath)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	requireContains(t, stderr, "ok: wrote "+out)
	requireContains(t, stderr, "ok: deterministic verify --full passed")
	requireContains(t, stderr, "video: 8x8 codec=h264 fps=30/1 frames=2")
	requireContains(t, stderr, "payloads: tiles=8 sidecar=1 audio=0")
	requireContains(t, stderr, "layout: manifest(72,")
	if strings.Contains(stderr, "audio cid:") {
		t.Fatalf("expected no audio cid line, got %q", stderr)
	}

	copyData, err := os.ReadFile(manifestCopy)
	if err != nil {
		t.Fatalf("read manifest copy: %v", err)
	}
	if !strings.HasSuffix(string(copyData), "}\n") {
		t.Fatalf("expected manifest copy to end with a newline")
	}
	if _, err := os.Stat(env.cfg.Paths.MetricsTextfile); err != nil {
		t.Fatalf("expected metrics textfile: %v", err)
	}

	stdout, _, err := runCLI(t, []string{"verify", out}, "")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	requireContains(t, stdout, "(full)")
	requireContains(t, stdout, "payloads: tiles=8 sidecar=1 audio=0")
	requireContains(t, stdout, "strict=yes")

	stdout, _, err = runCLI(t, []string{"inspect", out}, "")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, stdout, "world:test")
	requireContains(t, stdout, "6000 ticks in 2 GOTs")
	requireContains(t, stdout, "8x8 VCX-IC0-ALPHA @ 30/1 fps, 2 frames, tile 4")
	requireContains(t, stdout, "ic0t")
	requireContains(t, stdout, "sidecar")

	stdout, _, err = runCLI(t, []string{"inspect", "--json", out}, "")
	if err != nil {
		t.Fatalf("inspect --json: %v", err)
	}
	var view inspectView
	if err := json.Unmarshal([]byte(stdout), &view); err != nil {
		t.Fatalf("decode inspect json: %v\n%s", err, stdout)
	}
	if len(view.Entries) != 9 {
		t.Fatalf("expected 9 index entries, got %d", len(view.Entries))
	}
	if view.DurationTicks != 6000 || view.GOTs != 2 || !view.Strict {
		t.Fatalf("unexpected inspect view %+v", view)
	}
	if view.Regions["manifest"].Offset != pack.HeaderSize {
		t.Fatalf("expected manifest at offset %d, got %d", pack.HeaderSize, view.Regions["manifest"].Offset)
	}

	stdout, _, err = runCLI(t, []string{"inspect", "--manifest", out}, "")
	if err != nil {
		t.Fatalf("inspect --manifest: %v", err)
	}
	if stdout != string(copyData) {
		t.Fatalf("expected embedded manifest to match the copy\n got %s\nwant %s", stdout, copyData)
	}

	stdout, _, err = runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, stdout, "succeeded")
	requireContains(t, stdout, out)

	stdout, _, err = runCLI(t, []string{"runs", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("runs --json: %v", err)
	}
	var runs []struct{ RunID string }
	if err := json.Unmarshal([]byte(stdout), &runs); err != nil {
		t.Fatalf("decode runs json: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID == "" {
		t.Fatalf("expected one recorded run, got %+v", runs)
	}

	stdout, _, err = runCLI(t, []string{"runs", "show", runs[0].RunID}, env.configPath)
	if err != nil {
		t.Fatalf("runs show: %v", err)
	}
	requireContains(t, stdout, "[OK] succeeded")
	requireContains(t, stdout, env.inputPath)
}

func TestEncodeFlagsOverrideConfig(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutLedger())
	out := filepath.Join(env.baseDir, "out.vcx")

	_, stderr, err := runCLI(t, []string{
		"encode",
		"-i", env.inputPath,
		"-o", out,
		"--world", "a/demo/t/prod",
		"--manifest-id", "m:custom",
		"--no-strict-unc1",
	}, env.configPath)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	requireContains(t, stderr, "manifest @id: m:custom")
	requireContains(t, stderr, "payloads: tiles=2 sidecar=1 audio=0")

	stdout, _, err := runCLI(t, []string{"inspect", out}, "")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, stdout, "a/demo/t/prod")
	requireContains(t, stdout, "Strict:    no")
}

func TestEncodeRequiresInputAndOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"encode", "--output", filepath.Join(env.baseDir, "x.vcx")}, env.configPath); err == nil {
		t.Fatal("expected missing --input to fail")
	}
	if _, _, err := runCLI(t, []string{"encode", "--input", env.inputPath}, env.configPath); err == nil {
		t.Fatal("expected missing --output to fail")
	}
}

func TestEncodeMissingInputIsValidationError(t *testing.T) {
	env := setupCLITestEnv(t)
	out := filepath.Join(env.baseDir, "missing.vcx")
	_, _, err := runCLI(t, []string{"encode", "-i", filepath.Join(env.baseDir, "nope.mp4"), "-o", out}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing input")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output pack, stat err=%v", statErr)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutLedger())
	out := filepath.Join(env.baseDir, "tamper.vcx")
	if _, _, err := runCLI(t, []string{"encode", "-i", env.inputPath, "-o", out}, env.configPath); err != nil {
		t.Fatalf("encode: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read pack: %v", err)
	}
	data[len(data)-pack.TrailerSize-1] ^= 0xff
	if err := os.WriteFile(out, data, 0o644); err != nil {
		t.Fatalf("write pack: %v", err)
	}

	_, _, err = runCLI(t, []string{"verify", out}, "")
	if !errors.Is(err, pack.ErrChecksumMismatch) {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
}

func TestVerifyRejectsNonPack(t *testing.T) {
	path := testsupport.WriteBytes(t, filepath.Join(t.TempDir(), "junk.vcx"), []byte("not a pack at all"))
	if _, _, err := runCLI(t, []string{"verify", path}, ""); err == nil {
		t.Fatal("expected verify to reject a non-pack file")
	}
}

func TestRunsLedgerDisabled(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutLedger())
	_, _, err := runCLI(t, []string{"runs"}, env.configPath)
	if !errors.Is(err, errLedgerDisabled) {
		t.Fatalf("expected ledger disabled error, got %v", err)
	}
}

func TestRunsShowUnknown(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"runs", "show", "does-not-exist"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}
