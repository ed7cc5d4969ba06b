package tile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// Magic opens every IC0T tile payload.
	Magic = "IC0T"
	// FormatVersion is the IC0T header version.
	FormatVersion = 1
	// ProfileAlphaLumaRaw identifies raw cropped luma samples.
	ProfileAlphaLumaRaw = 1
	// HeaderSize is the fixed IC0T header length in bytes.
	HeaderSize = 26
)

var (
	ErrFrameSizeMismatch = errors.New("luma plane size does not match frame geometry")
	ErrGridOverflow      = errors.New("tile grid index exceeds 16-bit range")
	ErrTileSize          = errors.New("tile size must be positive")
	ErrMalformedTile     = errors.New("malformed IC0T payload")
)

// Header is the decoded fixed-size prefix of an IC0T payload.
type Header struct {
	Version    uint8
	Profile    uint8
	FrameIndex uint32
	TileX      uint16
	TileY      uint16
	CropW      uint16
	CropH      uint16
	TileW      uint16
	TileH      uint16
}

// GridSize returns the number of tile columns and rows covering the frame.
func GridSize(frameW, frameH int, tileSize uint16) (cols, rows int) {
	if tileSize == 0 {
		return 0, 0
	}
	ts := int(tileSize)
	return (frameW + ts - 1) / ts, (frameH + ts - 1) / ts
}

// Crop returns the filled width and height of the tile at (tileX, tileY).
// Tiles on the right and bottom edges may be smaller than tileSize.
func Crop(frameW, frameH int, tileX, tileY, tileSize uint16) (cropW, cropH int) {
	ts := int(tileSize)
	x0 := int(tileX) * ts
	y0 := int(tileY) * ts
	return min(ts, max(frameW-x0, 0)), min(ts, max(frameH-y0, 0))
}

// Encode renders one IC0T tile. The block is always tileSize*tileSize bytes;
// samples outside the crop are zero. plane must hold frameW*frameH samples.
func Encode(plane []byte, frameW, frameH int, frameIndex uint32, tileX, tileY, tileSize uint16) []byte {
	ts := int(tileSize)
	x0 := int(tileX) * ts
	y0 := int(tileY) * ts
	cropW, cropH := Crop(frameW, frameH, tileX, tileY, tileSize)

	out := make([]byte, HeaderSize+ts*ts)
	copy(out[0:4], Magic)
	out[4] = FormatVersion
	out[5] = ProfileAlphaLumaRaw
	binary.LittleEndian.PutUint32(out[6:10], frameIndex)
	binary.LittleEndian.PutUint16(out[10:12], tileX)
	binary.LittleEndian.PutUint16(out[12:14], tileY)
	binary.LittleEndian.PutUint16(out[14:16], uint16(cropW))
	binary.LittleEndian.PutUint16(out[16:18], uint16(cropH))
	binary.LittleEndian.PutUint16(out[18:20], tileSize)
	binary.LittleEndian.PutUint16(out[20:22], tileSize)
	// out[22:26] reserved, zero.

	block := out[HeaderSize:]
	for row := 0; row < cropH; row++ {
		src := (y0+row)*frameW + x0
		copy(block[row*ts:row*ts+cropW], plane[src:src+cropW])
	}
	return out
}

// DecodeHeader parses the IC0T header of payload and checks the block length.
func DecodeHeader(payload []byte) (Header, error) {
	if len(payload) < HeaderSize || string(payload[0:4]) != Magic {
		return Header{}, ErrMalformedTile
	}
	h := Header{
		Version:    payload[4],
		Profile:    payload[5],
		FrameIndex: binary.LittleEndian.Uint32(payload[6:10]),
		TileX:      binary.LittleEndian.Uint16(payload[10:12]),
		TileY:      binary.LittleEndian.Uint16(payload[12:14]),
		CropW:      binary.LittleEndian.Uint16(payload[14:16]),
		CropH:      binary.LittleEndian.Uint16(payload[16:18]),
		TileW:      binary.LittleEndian.Uint16(payload[18:20]),
		TileH:      binary.LittleEndian.Uint16(payload[20:22]),
	}
	if h.Version != FormatVersion || h.Profile != ProfileAlphaLumaRaw {
		return Header{}, fmt.Errorf("%w: version %d profile %d", ErrMalformedTile, h.Version, h.Profile)
	}
	if want := HeaderSize + int(h.TileW)*int(h.TileH); len(payload) != want {
		return Header{}, fmt.Errorf("%w: %d bytes, want %d", ErrMalformedTile, len(payload), want)
	}
	return h, nil
}

func checkGrid(cols, rows int) error {
	if cols-1 > math.MaxUint16 || rows-1 > math.MaxUint16 {
		return fmt.Errorf("%w: %dx%d tiles", ErrGridOverflow, cols, rows)
	}
	return nil
}
