package frames

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

type fakeStream struct {
	io.Reader
	waitErr error
	waited  bool
}

func (f *fakeStream) Wait() error {
	f.waited = true
	return f.waitErr
}

func recordBytes(width, height int, frames int) []byte {
	record := width * height * 3 / 2
	out := make([]byte, 0, record*frames)
	for f := 0; f < frames; f++ {
		for i := 0; i < record; i++ {
			out = append(out, byte(f*31+i))
		}
	}
	return out
}

func TestReadKeepsLumaPlanes(t *testing.T) {
	stream := &fakeStream{Reader: bytes.NewReader(recordBytes(4, 2, 3))}
	planes, err := Read(stream, 4, 2, 10)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(planes) != 3 {
		t.Fatalf("expected 3 planes, got %d", len(planes))
	}
	for i, plane := range planes {
		if len(plane) != 8 {
			t.Fatalf("plane %d: expected 8 luma bytes, got %d", i, len(plane))
		}
		if plane[0] != byte(i*31) {
			t.Fatalf("plane %d: unexpected first sample %d", i, plane[0])
		}
	}
	if !stream.waited {
		t.Fatal("expected stream to be waited on")
	}
}

func TestReadStopsAtLimitAndDrains(t *testing.T) {
	reader := bytes.NewReader(recordBytes(2, 2, 5))
	stream := &fakeStream{Reader: reader}
	planes, err := Read(stream, 2, 2, 2)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(planes) != 2 {
		t.Fatalf("expected 2 planes, got %d", len(planes))
	}
	if reader.Len() != 0 {
		t.Fatalf("expected remaining output to be drained, %d bytes left", reader.Len())
	}
}

func TestReadTruncatedRecord(t *testing.T) {
	data := recordBytes(4, 4, 2)
	stream := &fakeStream{Reader: bytes.NewReader(data[:len(data)-3])}
	_, err := Read(stream, 4, 4, 8)
	if !errors.Is(err, ErrTruncatedFrame) {
		t.Fatalf("expected ErrTruncatedFrame, got %v", err)
	}
	if !stream.waited {
		t.Fatal("expected stream to be waited on after truncation")
	}
}

func TestReadNoFrames(t *testing.T) {
	stream := &fakeStream{Reader: bytes.NewReader(nil)}
	_, err := Read(stream, 4, 4, 8)
	if !errors.Is(err, ErrNoFramesDecoded) {
		t.Fatalf("expected ErrNoFramesDecoded, got %v", err)
	}
}

func TestReadDecoderFailureDiscardsFrames(t *testing.T) {
	exitErr := errors.New("exit status 1: corrupt input")
	stream := &fakeStream{Reader: bytes.NewReader(recordBytes(2, 2, 2)), waitErr: exitErr}
	planes, err := Read(stream, 2, 2, 8)
	if !errors.Is(err, ErrDecoderFailed) {
		t.Fatalf("expected ErrDecoderFailed, got %v", err)
	}
	if !errors.Is(err, exitErr) {
		t.Fatalf("expected exit error to be wrapped, got %v", err)
	}
	if planes != nil {
		t.Fatalf("expected no frames on failure, got %d", len(planes))
	}
}

func TestReadDecoderFailureWithTruncation(t *testing.T) {
	data := recordBytes(2, 2, 1)
	stream := &fakeStream{Reader: bytes.NewReader(data[:4]), waitErr: errors.New("killed")}
	_, err := Read(stream, 2, 2, 8)
	if !errors.Is(err, ErrDecoderFailed) || !errors.Is(err, ErrTruncatedFrame) {
		t.Fatalf("expected both decoder failure and truncation, got %v", err)
	}
}

func TestReadRejectsZeroGeometry(t *testing.T) {
	stream := &fakeStream{Reader: bytes.NewReader([]byte{1, 2, 3})}
	_, err := Read(stream, 0, 4, 1)
	if !errors.Is(err, ErrFrameSize) {
		t.Fatalf("expected ErrFrameSize, got %v", err)
	}
	if !stream.waited {
		t.Fatal("expected stream to be waited on")
	}
}

func TestRecordSize(t *testing.T) {
	record, luma, err := RecordSize(8, 8)
	if err != nil {
		t.Fatalf("RecordSize returned error: %v", err)
	}
	if record != 96 || luma != 64 {
		t.Fatalf("unexpected sizes: record=%d luma=%d", record, luma)
	}
}
