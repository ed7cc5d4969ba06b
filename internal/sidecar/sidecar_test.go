package sidecar

import (
	"bytes"
	"strings"
	"testing"
)

func sampleInput() Input {
	duration := 10.01
	codec := "aac"
	return Input{
		Encoder:         "vcxenc/1.2.3",
		Profile:         "vcx-ic0-alpha-luma-raw/v1",
		SourcePath:      "/media/clips/Cafe\u0301.mp4",
		SourceHashHex:   "ABCDEF",
		VideoCodec:      "h264",
		Width:           8,
		Height:          8,
		FPSNum:          30000,
		FPSDen:          1001,
		FramesEncoded:   2,
		TileSize:        4,
		DurationSeconds: &duration,
		HasAudioPayload: true,
		AudioCodec:      &codec,
	}
}

func TestBuildKeyOrderAndValues(t *testing.T) {
	data, err := Build(sampleInput())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	want := `{"schema":"vcx/sidecar.media.import.v1","encoder":"vcxenc/1.2.3","profile":"vcx-ic0-alpha-luma-raw/v1",` +
		`"source":{"name":"Café.mp4","hash_b3":"b3:abcdef"},` +
		`"video":{"codec_in":"h264","codec_out":"VCX-IC0-ALPHA","width":8,"height":8,"fps_num":30000,"fps_den":1001,"frames_encoded":2,"tile_size":4,"duration_seconds":"10.01"},` +
		`"has_audio_payload":true,"audio_codec_in":"aac"}`
	if string(data) != want {
		t.Fatalf("unexpected sidecar:\n got %s\nwant %s", data, want)
	}
}

func TestBuildDeterministic(t *testing.T) {
	a, err := Build(sampleInput())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	b, err := Build(sampleInput())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("expected identical sidecar bytes")
	}
}

func TestBuildOptionalFields(t *testing.T) {
	in := sampleInput()
	in.DurationSeconds = nil
	in.AudioCodec = nil
	in.HasAudioPayload = false
	data, err := Build(in)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	text := string(data)
	if strings.Contains(text, "duration_seconds") {
		t.Fatalf("expected duration_seconds to be omitted: %s", text)
	}
	if !strings.Contains(text, `"audio_codec_in":null`) {
		t.Fatalf("expected null audio codec: %s", text)
	}
	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if doc.AudioCodecIn != nil || doc.HasAudioPayload {
		t.Fatalf("unexpected audio fields %+v", doc)
	}
}

func TestSourceName(t *testing.T) {
	tests := map[string]string{
		"":                     "input.mp4",
		"   ":                  "input.mp4",
		"/":                    "input.mp4",
		"clip.mov":             "clip.mov",
		"/a/b/movie.mkv":       "movie.mkv",
		"e\u0301te\u0301.mp4": "\u00e9t\u00e9.mp4",
	}
	for in, want := range tests {
		if got := SourceName(in); got != want {
			t.Fatalf("SourceName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := map[float64]string{
		0:         "0",
		10:        "10",
		10.01:     "10.01",
		0.1:       "0.1",
		3600.0005: "3600.0005",
	}
	for in, want := range tests {
		if got := FormatSeconds(in); got != want {
			t.Fatalf("FormatSeconds(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestParseRejectsForeignSchema(t *testing.T) {
	if _, err := Parse([]byte(`{"schema":"other"}`)); err == nil {
		t.Fatal("expected schema error")
	}
}
