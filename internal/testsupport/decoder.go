package testsupport

import (
	"bytes"
	"context"
	"io"
	"sync"

	"vcxenc/internal/frames"
	"vcxenc/internal/media/ffprobe"
)

// FakeDecoder is an in-process media decoder producing synthetic frames.
type FakeDecoder struct {
	Width      int
	Height     int
	FrameRate  string // avg_frame_rate, e.g. "30/1"
	Frames     int
	VideoCodec string
	AudioCodec string // empty means the source has no audio stream
	NBFrames   string
	Duration   string

	Audio     []byte
	ProbeErr  error
	DecodeErr error
	WaitErr   error
	AudioErr  error

	mu             sync.Mutex
	probeCalls     int
	decodeCalls    int
	transcodeCalls int
}

// NewFakeDecoder returns a decoder for an 8x8, 30/1 source with two frames.
func NewFakeDecoder() *FakeDecoder {
	return &FakeDecoder{Width: 8, Height: 8, FrameRate: "30/1", Frames: 2, VideoCodec: "h264"}
}

// Probe reports one video stream and, when AudioCodec is set, one audio stream.
func (d *FakeDecoder) Probe(ctx context.Context, path string) (ffprobe.Result, error) {
	d.mu.Lock()
	d.probeCalls++
	d.mu.Unlock()
	if d.ProbeErr != nil {
		return ffprobe.Result{}, d.ProbeErr
	}
	width, height := d.Width, d.Height
	result := ffprobe.Result{
		Streams: []ffprobe.Stream{{
			Index:        0,
			CodecType:    "video",
			CodecName:    d.VideoCodec,
			Width:        &width,
			Height:       &height,
			AvgFrameRate: d.FrameRate,
			RFrameRate:   d.FrameRate,
			NBFrames:     d.NBFrames,
			Duration:     d.Duration,
		}},
		Format: &ffprobe.Format{Filename: path, NBStreams: 1},
	}
	if d.AudioCodec != "" {
		result.Streams = append(result.Streams, ffprobe.Stream{Index: 1, CodecType: "audio", CodecName: d.AudioCodec, Channels: 2})
		result.Format.NBStreams = 2
	}
	return result, nil
}

// DecodeFrames streams min(Frames, maxFrames) synthetic raw frame records.
func (d *FakeDecoder) DecodeFrames(ctx context.Context, path string, maxFrames uint32) (frames.Stream, error) {
	d.mu.Lock()
	d.decodeCalls++
	d.mu.Unlock()
	if d.DecodeErr != nil {
		return nil, d.DecodeErr
	}
	count := min(d.Frames, int(maxFrames))
	return &memoryStream{
		Reader:  bytes.NewReader(SyntheticFrames(d.Width, d.Height, count)),
		waitErr: d.WaitErr,
	}, nil
}

// TranscodeAudio returns the configured audio bytes.
func (d *FakeDecoder) TranscodeAudio(ctx context.Context, path, bitrate string) ([]byte, error) {
	d.mu.Lock()
	d.transcodeCalls++
	d.mu.Unlock()
	if d.AudioErr != nil {
		return nil, d.AudioErr
	}
	return append([]byte(nil), d.Audio...), nil
}

// TranscodeCalls returns how many times TranscodeAudio ran.
func (d *FakeDecoder) TranscodeCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transcodeCalls
}

// DecodeCalls returns how many times DecodeFrames ran.
func (d *FakeDecoder) DecodeCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.decodeCalls
}

// SyntheticFrames renders count raw 4:2:0 records. Luma sample i of frame f
// is (f*7 + i) mod 251; chroma planes are mid-grey.
func SyntheticFrames(width, height, count int) []byte {
	luma := width * height
	record := luma * 3 / 2
	out := make([]byte, 0, record*count)
	for f := 0; f < count; f++ {
		for i := 0; i < luma; i++ {
			out = append(out, byte((f*7+i)%251))
		}
		for i := luma; i < record; i++ {
			out = append(out, 128)
		}
	}
	return out
}

type memoryStream struct {
	io.Reader
	waitErr error
}

func (s *memoryStream) Wait() error {
	return s.waitErr
}
