package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"vcxenc/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("FFmpeg", statusError, "binary \"ffmpeg\" not found", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "FFmpeg:", "[ERROR] binary \"ffmpeg\" not found")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("FFprobe", statusOK, "/usr/bin/ffprobe", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestResultKind(t *testing.T) {
	if kind := resultKind(preflight.Result{Passed: true}); kind != statusOK {
		t.Fatalf("expected OK for passed result, got %v", kind)
	}
	if kind := resultKind(preflight.Result{}); kind != statusError {
		t.Fatalf("expected ERROR for failed result, got %v", kind)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestRightAligned(t *testing.T) {
	got := rightAligned(4, 1, 3, 9)
	want := []columnAlignment{alignLeft, alignRight, alignLeft, alignRight}
	if len(got) != len(want) {
		t.Fatalf("expected %d alignments, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("alignment %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"Region", "Offset", "Length"}, [][]string{{"manifest", "72"}}, rightAligned(3, 1, 2))
	for _, want := range []string{"REGION", "OFFSET", "manifest", "72"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected table to contain %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}
