package probe

import (
	"errors"
	"testing"

	"vcxenc/internal/media/ffprobe"
)

func intPtr(v int) *int { return &v }

func TestParseRatio(t *testing.T) {
	tests := []struct {
		in      string
		num     uint32
		den     uint32
		wantErr bool
	}{
		{in: "30/1", num: 30, den: 1},
		{in: "30000/1001", num: 30000, den: 1001},
		{in: "60000/2002", num: 30000, den: 1001},
		{in: "50/2", num: 25, den: 1},
		{in: "0/1", wantErr: true},
		{in: "1/0", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
		{in: "-1/2", wantErr: true},
		{in: "4294967296/1", wantErr: true},
	}
	for _, tt := range tests {
		num, den, err := ParseRatio(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseRatio(%q): expected error, got %d/%d", tt.in, num, den)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseRatio(%q) returned error: %v", tt.in, err)
		}
		if num != tt.num || den != tt.den {
			t.Fatalf("ParseRatio(%q) = %d/%d, want %d/%d", tt.in, num, den, tt.num, tt.den)
		}
	}
}

func TestNormalizeFullMetadata(t *testing.T) {
	result := ffprobe.Result{
		Streams: []ffprobe.Stream{
			{CodecType: "audio", CodecName: "aac"},
			{CodecType: "video", CodecName: "h264", Width: intPtr(1920), Height: intPtr(1080), AvgFrameRate: "60000/2002", RFrameRate: "30/1", Duration: "10.010", NBFrames: "300"},
			{CodecType: "audio", CodecName: "ac3"},
		},
		Format: &ffprobe.Format{Duration: "12.5"},
	}
	meta, err := Normalize(result)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if meta.Width != 1920 || meta.Height != 1080 {
		t.Fatalf("unexpected geometry %dx%d", meta.Width, meta.Height)
	}
	if meta.FPSNum != 30000 || meta.FPSDen != 1001 {
		t.Fatalf("unexpected fps %d/%d", meta.FPSNum, meta.FPSDen)
	}
	if meta.DurationSeconds == nil || *meta.DurationSeconds != 10.010 {
		t.Fatalf("expected stream duration, got %v", meta.DurationSeconds)
	}
	if meta.FrameCountHint == nil || *meta.FrameCountHint != 300 {
		t.Fatalf("expected frame count hint 300, got %v", meta.FrameCountHint)
	}
	if meta.VideoCodec != "h264" {
		t.Fatalf("unexpected video codec %q", meta.VideoCodec)
	}
	if meta.AudioCodec == nil || *meta.AudioCodec != "aac" {
		t.Fatalf("expected first audio codec aac, got %v", meta.AudioCodec)
	}
	if !meta.HasAudio() {
		t.Fatal("expected HasAudio")
	}
}

func TestNormalizeFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		stream   ffprobe.Stream
		format   *ffprobe.Format
		num, den uint32
		duration *float64
	}{
		{
			name:   "r_frame_rate when avg unusable",
			stream: ffprobe.Stream{AvgFrameRate: "0/0", RFrameRate: "25/1"},
			num:    25,
			den:    1,
		},
		{
			name:   "default rate",
			stream: ffprobe.Stream{AvgFrameRate: "0/1", RFrameRate: "abc"},
			num:    30,
			den:    1,
		},
		{
			name:     "container duration",
			stream:   ffprobe.Stream{AvgFrameRate: "24/1", Duration: "N/A"},
			format:   &ffprobe.Format{Duration: "4.25"},
			num:    24,
			den:    1,
			duration: func() *float64 { v := 4.25; return &v }(),
		},
		{
			name:   "no duration",
			stream: ffprobe.Stream{AvgFrameRate: "24/1", Duration: "garbage"},
			num:    24,
			den:    1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := tt.stream
			stream.CodecType = "video"
			stream.Width = intPtr(8)
			stream.Height = intPtr(8)
			meta, err := Normalize(ffprobe.Result{Streams: []ffprobe.Stream{stream}, Format: tt.format})
			if err != nil {
				t.Fatalf("Normalize returned error: %v", err)
			}
			if meta.FPSNum != tt.num || meta.FPSDen != tt.den {
				t.Fatalf("fps = %d/%d, want %d/%d", meta.FPSNum, meta.FPSDen, tt.num, tt.den)
			}
			switch {
			case tt.duration == nil && meta.DurationSeconds != nil:
				t.Fatalf("expected no duration, got %v", *meta.DurationSeconds)
			case tt.duration != nil && (meta.DurationSeconds == nil || *meta.DurationSeconds != *tt.duration):
				t.Fatalf("duration = %v, want %v", meta.DurationSeconds, *tt.duration)
			}
			if meta.VideoCodec != "unknown" {
				t.Fatalf("expected unknown codec, got %q", meta.VideoCodec)
			}
			if meta.AudioCodec != nil || meta.FrameCountHint != nil {
				t.Fatal("expected optional fields to be unset")
			}
		})
	}
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name   string
		result ffprobe.Result
		want   error
	}{
		{name: "no streams", result: ffprobe.Result{}, want: ErrNoVideoStream},
		{name: "audio only", result: ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "audio"}}}, want: ErrNoVideoStream},
		{name: "missing width", result: ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video", Height: intPtr(8)}}}, want: ErrMissingDimensions},
		{name: "missing height", result: ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video", Width: intPtr(8)}}}, want: ErrMissingDimensions},
		{name: "zero width", result: ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video", Width: intPtr(0), Height: intPtr(8)}}}, want: ErrInvalidDimensions},
		{name: "zero height", result: ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video", Width: intPtr(8), Height: intPtr(0)}}}, want: ErrInvalidDimensions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Normalize(tt.result); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
