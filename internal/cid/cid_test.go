package cid

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// BLAKE3-256 of the empty input.
const emptyDigest = "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"

func TestSumEmptyInput(t *testing.T) {
	raw, id := Sum(nil)
	if id != Prefix+emptyDigest {
		t.Fatalf("unexpected id %q", id)
	}
	if len(raw) != 34 || raw[0] != 0x1e || raw[1] != 0x20 {
		t.Fatalf("unexpected raw prefix % x", raw[:2])
	}
}

func TestSumDeterministic(t *testing.T) {
	data := []byte("IC0T tile payload")
	raw1, id1 := Sum(data)
	raw2, id2 := Sum(append([]byte(nil), data...))
	if id1 != id2 || !bytes.Equal(raw1, raw2) {
		t.Fatal("expected identical identifiers for identical bytes")
	}
	if _, other := Sum([]byte("IC0T tile payloaD")); other == id1 {
		t.Fatal("expected different identifiers for different bytes")
	}
	if ID(data) != id1 {
		t.Fatal("ID disagrees with Sum")
	}
}

func TestHashFileMatchesSum(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB, 0x01}, 5000)
	path := filepath.Join(t.TempDir(), "source.mp4")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	sum, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile returned error: %v", err)
	}
	if Prefix+sum != ID(data) {
		t.Fatalf("streaming hash %s does not match one-shot %s", sum, ID(data))
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParse(t *testing.T) {
	digest, err := Parse(Prefix + emptyDigest)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(digest) != DigestSize {
		t.Fatalf("unexpected digest length %d", len(digest))
	}
	for _, bad := range []string{"", emptyDigest, "b3:zz", "b3:" + strings.Repeat("a", 62), "sha256:" + emptyDigest} {
		if _, err := Parse(bad); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Parse(%q): expected ErrMalformed, got %v", bad, err)
		}
	}
}
