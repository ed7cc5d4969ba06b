package pack

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"vcxenc/internal/cid"
	"vcxenc/internal/manifest"
	"vcxenc/internal/probe"
	"vcxenc/internal/tile"
)

type fixture struct {
	manifest manifest.Manifest
	payloads []Payload
}

func newFixture(t *testing.T, withAudio bool) fixture {
	t.Helper()
	planes := make([][]byte, 2)
	for f := range planes {
		planes[f] = make([]byte, 64)
		for i := range planes[f] {
			planes[f][i] = byte(f*64 + i)
		}
	}
	tiles, err := tile.BuildPayloads(planes, 8, 8, 4, cid.ID)
	if err != nil {
		t.Fatalf("BuildPayloads: %v", err)
	}
	sidecarBytes := []byte(`{"schema":"vcx/sidecar.media.import.v1"}`)
	in := manifest.Input{
		World:         "world:test",
		ID:            "m:mp4:test",
		Meta:          probe.VideoMeta{Width: 8, Height: 8, FPSNum: 30, FPSDen: 1},
		FrameCount:    2,
		TicksPerFrame: 3000,
		TileSize:      4,
		Tiles:         tiles,
		SidecarCID:    cid.ID(sidecarBytes),
	}
	var payloads []Payload
	for _, tp := range tiles {
		payloads = append(payloads, Payload{Tag: TagIC0Tile, CID: tp.CID, Bytes: tp.Bytes})
	}
	payloads = append(payloads, Payload{Tag: TagSidecar, CID: in.SidecarCID, Bytes: sidecarBytes})
	if withAudio {
		audio := []byte("OggS fake opus")
		in.AudioCID = cid.ID(audio)
		payloads = append(payloads, Payload{Tag: TagOpus, CID: in.AudioCID, Bytes: audio})
	}
	m, err := manifest.Build(in)
	if err != nil {
		t.Fatalf("manifest.Build: %v", err)
	}
	return fixture{manifest: m, payloads: payloads}
}

func buildBytes(t *testing.T, f fixture, strict bool) ([]byte, Layout) {
	t.Helper()
	var buf bytes.Buffer
	layout, err := Build(&buf, f.manifest, f.payloads, strict)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	return buf.Bytes(), layout
}

func TestBuildAndVerifyRoundTrip(t *testing.T) {
	f := newFixture(t, true)
	data, layout := buildBytes(t, f, true)

	if uint64(len(data)) != layout.Size() {
		t.Fatalf("pack is %d bytes, layout says %d", len(data), layout.Size())
	}
	if layout.Entries != 10 || !layout.Strict() {
		t.Fatalf("unexpected layout %+v", layout)
	}
	if string(data[:4]) != Magic {
		t.Fatalf("unexpected magic %q", data[:4])
	}

	p, err := Verify(bytes.NewReader(data), true)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if p.Layout.Payload != layout.Payload || p.Layout.Manifest != layout.Manifest {
		t.Fatalf("verified layout %+v differs from built %+v", p.Layout, layout)
	}
	counts := p.CountByTag()
	if counts[TagIC0Tile] != 8 || counts[TagSidecar] != 1 || counts[TagOpus] != 1 {
		t.Fatalf("unexpected tag counts %v", counts)
	}
	audio, tag, ok := p.Payload(f.manifest.Audio.CID)
	if !ok || tag != TagOpus || string(audio) != "OggS fake opus" {
		t.Fatalf("unexpected audio payload %q %v %v", audio, tag, ok)
	}
}

func TestBuildDeterministic(t *testing.T) {
	f := newFixture(t, false)
	a, _ := buildBytes(t, f, true)
	b, _ := buildBytes(t, newFixture(t, false), true)
	if !bytes.Equal(a, b) {
		t.Fatal("expected identical pack bytes for identical input")
	}
}

func TestBuildRejectsCIDMismatch(t *testing.T) {
	f := newFixture(t, false)
	f.payloads[0].CID = f.payloads[1].CID
	var buf bytes.Buffer
	if _, err := Build(&buf, f.manifest, f.payloads, true); !errors.Is(err, ErrCIDMismatch) {
		t.Fatalf("expected ErrCIDMismatch, got %v", err)
	}
}

func TestBuildStrictRejectsEmptyPayload(t *testing.T) {
	f := newFixture(t, false)
	f.payloads = append(f.payloads, Payload{Tag: TagOpus, CID: cid.ID(nil)})
	var buf bytes.Buffer
	if _, err := Build(&buf, f.manifest, f.payloads, true); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("expected ErrEmptyPayload, got %v", err)
	}
	buf.Reset()
	if _, err := Build(&buf, f.manifest, f.payloads, false); err != nil {
		t.Fatalf("non-strict build returned error: %v", err)
	}
}

func TestVerifyDetectsCorruption(t *testing.T) {
	f := newFixture(t, false)
	data, layout := buildBytes(t, f, true)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{
			name:   "magic",
			mutate: func(b []byte) []byte { b[0] = 'X'; return b },
			want:   ErrBadMagic,
		},
		{
			name: "version",
			mutate: func(b []byte) []byte {
				binary.LittleEndian.PutUint16(b[4:6], 9)
				return b
			},
			want: ErrUnsupportedVersion,
		},
		{
			name:   "payload byte",
			mutate: func(b []byte) []byte { b[layout.Payload.Offset+30]++; return b },
			want:   ErrChecksumMismatch,
		},
		{
			name:   "trailing garbage",
			mutate: func(b []byte) []byte { return append(b, 0) },
			want:   ErrCorruptLayout,
		},
		{
			name:   "truncated",
			mutate: func(b []byte) []byte { return b[:len(b)-1] },
			want:   ErrCorruptLayout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corrupted := tt.mutate(append([]byte(nil), data...))
			if _, err := Verify(bytes.NewReader(corrupted), true); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestVerifyFullDetectsMissingReference(t *testing.T) {
	f := newFixture(t, true)
	// Drop the audio payload while the manifest still references it.
	f.payloads = f.payloads[:len(f.payloads)-1]
	data, _ := buildBytes(t, f, true)

	if _, err := Verify(bytes.NewReader(data), false); err != nil {
		t.Fatalf("structural verify returned error: %v", err)
	}
	if _, err := Verify(bytes.NewReader(data), true); !errors.Is(err, ErrMissingReference) {
		t.Fatalf("expected ErrMissingReference, got %v", err)
	}
}

func TestVerifyFullDetectsWrongTag(t *testing.T) {
	f := newFixture(t, false)
	last := len(f.payloads) - 1
	f.payloads[last].Tag = TagOpus
	data, _ := buildBytes(t, f, true)
	if _, err := Verify(bytes.NewReader(data), true); !errors.Is(err, ErrMissingReference) {
		t.Fatalf("expected ErrMissingReference for mistagged sidecar, got %v", err)
	}
}

func TestVerifyFullDetectsDurationMismatch(t *testing.T) {
	f := newFixture(t, false)
	f.manifest.DurationTicks = manifest.NewInt(5999)
	data, _ := buildBytes(t, f, true)
	if _, err := Verify(bytes.NewReader(data), true); !errors.Is(err, ErrDurationMismatch) {
		t.Fatalf("expected ErrDurationMismatch, got %v", err)
	}
}

func TestVerifyFullDetectsTileMismatch(t *testing.T) {
	f := newFixture(t, false)
	f.manifest.GOTs[0].Tiles[0].CropW = "3"
	data, _ := buildBytes(t, f, true)
	if _, err := Verify(bytes.NewReader(data), true); !errors.Is(err, ErrTileHeader) {
		t.Fatalf("expected ErrTileHeader, got %v", err)
	}
}

func TestCheckTaggedNumbers(t *testing.T) {
	if err := CheckTaggedNumbers([]byte(`{"a":{"@num":"int/1","v":"3"},"b":["x",true,null]}`)); err != nil {
		t.Fatalf("expected tagged document to pass, got %v", err)
	}
	for _, doc := range []string{`{"a":3}`, `{"a":[1.5]}`, `{"a":{"b":-0}}`} {
		if err := CheckTaggedNumbers([]byte(doc)); !errors.Is(err, ErrUntaggedNumber) {
			t.Fatalf("CheckTaggedNumbers(%s): expected ErrUntaggedNumber, got %v", doc, err)
		}
	}
}
