package frames

import (
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	// ErrTruncatedFrame reports a decoder stream that ended inside a frame record.
	ErrTruncatedFrame = errors.New("truncated raw frame record")
	// ErrNoFramesDecoded reports a decoder stream without a single complete record.
	ErrNoFramesDecoded = errors.New("decoder produced zero frames")
	// ErrDecoderFailed reports a non-zero decoder exit status.
	ErrDecoderFailed = errors.New("decoder failed")
	// ErrFrameSize reports geometry whose record size cannot be represented.
	ErrFrameSize = errors.New("invalid frame geometry")
)

// Stream is the output of a running decoder process. Wait blocks until the
// process has exited and reports its termination status; it must only be
// called after the reader has been consumed to end of stream.
type Stream interface {
	io.Reader
	Wait() error
}

// RecordSize returns the byte size of one 4:2:0 frame record and of its luma plane.
func RecordSize(width, height uint32) (record int, luma int, err error) {
	if width == 0 || height == 0 {
		return 0, 0, fmt.Errorf("%w: %dx%d", ErrFrameSize, width, height)
	}
	pixels := uint64(width) * uint64(height)
	total := pixels * 3 / 2
	if total > math.MaxInt {
		return 0, 0, fmt.Errorf("%w: %dx%d overflows frame size", ErrFrameSize, width, height)
	}
	return int(total), int(pixels), nil
}

// Read consumes back-to-back raw frame records from stream and returns the
// luma plane of each, up to maxFrames. The stream is always drained and
// waited on before returning so the decoder can neither block on a full pipe
// nor be left running. A decoder failure discards every frame already read.
func Read(stream Stream, width, height, maxFrames uint32) ([][]byte, error) {
	record, luma, sizeErr := RecordSize(width, height)

	var (
		planes  [][]byte
		readErr = sizeErr
	)
	if sizeErr == nil {
		planes = make([][]byte, 0, min(int(maxFrames), 64))
		buf := make([]byte, record)
		for uint32(len(planes)) < maxFrames {
			ok, err := readRecord(stream, buf)
			if err != nil {
				readErr = fmt.Errorf("frame %d: %w", len(planes), err)
				break
			}
			if !ok {
				break
			}
			planes = append(planes, append([]byte(nil), buf[:luma]...))
		}
	}

	if _, err := io.Copy(io.Discard, stream); err != nil && readErr == nil {
		readErr = fmt.Errorf("drain decoder output: %w", err)
	}

	if waitErr := stream.Wait(); waitErr != nil {
		failed := fmt.Errorf("%w: %w", ErrDecoderFailed, waitErr)
		if readErr != nil {
			return nil, errors.Join(failed, readErr)
		}
		return nil, failed
	}
	if readErr != nil {
		return nil, readErr
	}
	if len(planes) == 0 {
		return nil, ErrNoFramesDecoded
	}
	return planes, nil
}

// readRecord fills buf completely. It returns false without error on a clean
// end of stream at a record boundary.
func readRecord(r io.Reader, buf []byte) (bool, error) {
	n, err := io.ReadFull(r, buf)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, io.EOF) && n == 0:
		return false, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		return false, fmt.Errorf("%w: got %d of %d bytes", ErrTruncatedFrame, n, len(buf))
	default:
		return false, fmt.Errorf("read raw frame: %w", err)
	}
}
