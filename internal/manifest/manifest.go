package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"golang.org/x/text/unicode/norm"

	"vcxenc/internal/probe"
	"vcxenc/internal/sidecar"
	"vcxenc/internal/tile"
)

const (
	Type       = "vcx/manifest"
	Version    = "1.0"
	Profile    = "vcx-ic0-alpha-luma-raw/v1"
	VideoCodec = "VCX-IC0-ALPHA"
	Timebase   = 90_000

	MIMETile    = "application/vcx-ic0t"
	MIMESidecar = "application/vcx-sidecar"
	MIMEOpus    = "audio/opus"
	RoleBase    = "base"
	AudioCodec  = "opus"
)

var (
	ErrZeroFrameCount            = errors.New("frame count cannot be zero")
	ErrTileFrameIndexOutOfBounds = errors.New("tile frame index out of bounds")
	ErrTileOutsideGrid           = errors.New("tile coordinates outside the frame grid")
)

// Manifest is the root document. Field order is the wire key order.
type Manifest struct {
	Type            string       `json:"@type"`
	ID              string       `json:"@id"`
	Ver             string       `json:"@ver"`
	World           string       `json:"@world"`
	Profile         string       `json:"profile"`
	Timebase        Rat          `json:"timebase"`
	DurationTicks   Int          `json:"duration_ticks"`
	Video           Video        `json:"video"`
	GOTs            []GOT        `json:"gots"`
	Sidecars        []SidecarRef `json:"sidecars"`
	Audio           *AudioRef    `json:"audio,omitempty"`
	SourceFrameHint *Int         `json:"source_frame_hint,omitempty"`
}

type Video struct {
	Codec    string `json:"codec"`
	Width    Int    `json:"width"`
	Height   Int    `json:"height"`
	FPS      Rat    `json:"fps"`
	Frames   Int    `json:"frames"`
	TileSize Int    `json:"tile_size"`
}

// GOT is the temporal group for one frame.
type GOT struct {
	StartTick Int       `json:"start_tick"`
	DurTicks  Int       `json:"dur_ticks"`
	Tiles     []TileRef `json:"tiles"`
}

type TileRef struct {
	CID   string `json:"cid"`
	MIME  string `json:"mime"`
	Role  string `json:"role"`
	TileX string `json:"tile_x"`
	TileY string `json:"tile_y"`
	CropW string `json:"crop_w"`
	CropH string `json:"crop_h"`
}

type SidecarRef struct {
	CID  string `json:"cid"`
	MIME string `json:"mime"`
	Type string `json:"type"`
}

type AudioRef struct {
	Codec string `json:"codec"`
	CID   string `json:"cid"`
	MIME  string `json:"mime"`
}

// Input carries everything the manifest references.
type Input struct {
	World         string
	ID            string
	Meta          probe.VideoMeta
	FrameCount    uint64
	TicksPerFrame uint64
	TileSize      uint16
	Tiles         []tile.Payload
	SidecarCID    string
	AudioCID      string // empty when no audio payload exists
}

// Build assembles the manifest. Tiles are grouped by frame and ordered
// row-major within each group regardless of their order in the input.
func Build(in Input) (Manifest, error) {
	if in.FrameCount == 0 {
		return Manifest{}, ErrZeroFrameCount
	}
	cols, rows := tile.GridSize(int(in.Meta.Width), int(in.Meta.Height), in.TileSize)
	byFrame := make([][]tile.Payload, in.FrameCount)
	for _, t := range in.Tiles {
		if uint64(t.FrameIndex) >= in.FrameCount {
			return Manifest{}, fmt.Errorf("%w: %d >= %d", ErrTileFrameIndexOutOfBounds, t.FrameIndex, in.FrameCount)
		}
		if int(t.TileX) >= cols || int(t.TileY) >= rows {
			return Manifest{}, fmt.Errorf("%w: (%d,%d) in a %dx%d grid", ErrTileOutsideGrid, t.TileX, t.TileY, cols, rows)
		}
		byFrame[t.FrameIndex] = append(byFrame[t.FrameIndex], t)
	}

	gots := make([]GOT, 0, len(byFrame))
	for idx, tiles := range byFrame {
		slices.SortStableFunc(tiles, func(a, b tile.Payload) int {
			if a.TileY != b.TileY {
				return int(a.TileY) - int(b.TileY)
			}
			return int(a.TileX) - int(b.TileX)
		})
		refs := make([]TileRef, 0, len(tiles))
		for _, t := range tiles {
			refs = append(refs, TileRef{
				CID:   t.CID,
				MIME:  MIMETile,
				Role:  RoleBase,
				TileX: strconv.FormatUint(uint64(t.TileX), 10),
				TileY: strconv.FormatUint(uint64(t.TileY), 10),
				CropW: strconv.FormatUint(uint64(t.CropW), 10),
				CropH: strconv.FormatUint(uint64(t.CropH), 10),
			})
		}
		gots = append(gots, GOT{
			StartTick: NewInt(SaturatingMul(in.TicksPerFrame, uint64(idx))),
			DurTicks:  NewInt(in.TicksPerFrame),
			Tiles:     refs,
		})
	}

	m := Manifest{
		Type:          Type,
		ID:            norm.NFC.String(in.ID),
		Ver:           Version,
		World:         norm.NFC.String(in.World),
		Profile:       Profile,
		Timebase:      NewRat(1, Timebase),
		DurationTicks: NewInt(SaturatingMul(in.TicksPerFrame, in.FrameCount)),
		Video: Video{
			Codec:    VideoCodec,
			Width:    NewInt(uint64(in.Meta.Width)),
			Height:   NewInt(uint64(in.Meta.Height)),
			FPS:      NewRat(uint64(in.Meta.FPSNum), uint64(in.Meta.FPSDen)),
			Frames:   NewInt(in.FrameCount),
			TileSize: NewInt(uint64(in.TileSize)),
		},
		GOTs: gots,
		Sidecars: []SidecarRef{{
			CID:  in.SidecarCID,
			MIME: MIMESidecar,
			Type: sidecar.Schema,
		}},
	}
	if in.AudioCID != "" {
		m.Audio = &AudioRef{Codec: AudioCodec, CID: in.AudioCID, MIME: MIMEOpus}
	}
	if in.Meta.FrameCountHint != nil {
		hint := NewInt(*in.Meta.FrameCountHint)
		m.SourceFrameHint = &hint
	}
	return m, nil
}

// Marshal returns the compact canonical encoding stored in packs.
func Marshal(m Manifest) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// MarshalIndent returns a two-space indented encoding for human inspection.
func MarshalIndent(m Manifest) ([]byte, error) {
	compact, err := Marshal(m)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, fmt.Errorf("indent manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse decodes a manifest produced by Marshal.
func Parse(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Type != Type {
		return Manifest{}, fmt.Errorf("parse manifest: unexpected @type %q", m.Type)
	}
	return m, nil
}

// TileCIDs returns every tile CID in GOT order.
func (m Manifest) TileCIDs() []string {
	var out []string
	for _, got := range m.GOTs {
		for _, ref := range got.Tiles {
			out = append(out, ref.CID)
		}
	}
	return out
}

// TileCount returns the number of tile references across all GOTs.
func (m Manifest) TileCount() int {
	n := 0
	for _, got := range m.GOTs {
		n += len(got.Tiles)
	}
	return n
}

// DefaultID derives the manifest identifier from the source hash.
func DefaultID(sourceHashHex string) string {
	prefix := sourceHashHex
	if len(prefix) > 24 {
		prefix = prefix[:24]
	}
	return "m:mp4:" + prefix
}
