package tile

import "fmt"

// Payload is one encoded tile together with its grid position and CID.
type Payload struct {
	FrameIndex uint32
	TileX      uint16
	TileY      uint16
	CropW      uint16
	CropH      uint16
	Bytes      []byte
	CID        string
}

// CIDFunc computes the content identifier of payload bytes.
type CIDFunc func(data []byte) string

// BuildPayloads encodes every tile of every frame exactly once, frames in
// order and tiles row-major within a frame.
func BuildPayloads(planes [][]byte, width, height uint32, tileSize uint16, cidFn CIDFunc) ([]Payload, error) {
	if tileSize == 0 {
		return nil, ErrTileSize
	}
	frameW, frameH := int(width), int(height)
	cols, rows := GridSize(frameW, frameH, tileSize)
	if err := checkGrid(cols, rows); err != nil {
		return nil, err
	}

	out := make([]Payload, 0, len(planes)*cols*rows)
	for i, plane := range planes {
		if len(plane) != frameW*frameH {
			return nil, fmt.Errorf("%w: frame %d has %d bytes, want %d", ErrFrameSizeMismatch, i, len(plane), frameW*frameH)
		}
		for ty := 0; ty < rows; ty++ {
			for tx := 0; tx < cols; tx++ {
				tileX, tileY := uint16(tx), uint16(ty)
				data := Encode(plane, frameW, frameH, uint32(i), tileX, tileY, tileSize)
				cropW, cropH := Crop(frameW, frameH, tileX, tileY, tileSize)
				out = append(out, Payload{
					FrameIndex: uint32(i),
					TileX:      tileX,
					TileY:      tileY,
					CropW:      uint16(cropW),
					CropH:      uint16(cropH),
					Bytes:      data,
					CID:        cidFn(data),
				})
			}
		}
	}
	return out, nil
}
