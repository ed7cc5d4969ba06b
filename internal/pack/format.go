package pack

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"vcxenc/internal/cid"
)

const (
	Magic         = "VCX1"
	TrailerMagic  = "VCXE"
	FormatVersion = 1
	HeaderSize    = 72
	TrailerSize   = len(TrailerMagic) + cid.DigestSize

	// FlagStrict records that the manifest passed the tagged-number check.
	FlagStrict uint16 = 1 << 0
)

// Tag identifies the kind of a payload in the index.
type Tag uint8

const (
	TagIC0Tile Tag = 1
	TagSidecar Tag = 2
	TagOpus    Tag = 3
)

func (t Tag) String() string {
	switch t {
	case TagIC0Tile:
		return "ic0t"
	case TagSidecar:
		return "sidecar"
	case TagOpus:
		return "opus"
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

func (t Tag) valid() bool {
	return t >= TagIC0Tile && t <= TagOpus
}

var (
	ErrBadMagic           = errors.New("not a VCX pack")
	ErrUnsupportedVersion = errors.New("unsupported pack version")
	ErrCorruptLayout      = errors.New("corrupt pack layout")
	ErrChecksumMismatch   = errors.New("pack checksum mismatch")
	ErrIndex              = errors.New("invalid pack index")
	ErrCIDMismatch        = errors.New("payload content identifier mismatch")
	ErrMissingReference   = errors.New("manifest references a missing payload")
	ErrDurationMismatch   = errors.New("manifest duration does not match its GOTs")
	ErrTileHeader         = errors.New("tile payload does not match its manifest reference")
	ErrUntaggedNumber     = errors.New("manifest contains an untagged JSON number")
	ErrEmptyPayload       = errors.New("empty payload")
)

// Region is a byte range within the pack file.
type Region struct {
	Offset uint64
	Length uint64
}

// End returns the offset one past the last byte of the region.
func (r Region) End() uint64 {
	return r.Offset + r.Length
}

// Layout describes where each region of a pack lives.
type Layout struct {
	Version  uint16
	Flags    uint16
	Manifest Region
	Index    Region
	Payload  Region
	Trailer  Region
	Entries  int
}

// Size returns the total pack size in bytes.
func (l Layout) Size() uint64 {
	return l.Trailer.End()
}

// Strict reports whether the pack was built with the tagged-number check.
func (l Layout) Strict() bool {
	return l.Flags&FlagStrict != 0
}

// IndexEntry locates one payload. Offsets are relative to the payload region.
type IndexEntry struct {
	Tag    Tag    `cbor:"tag"`
	CID    string `cbor:"cid"`
	Offset uint64 `cbor:"off"`
	Length uint64 `cbor:"len"`
}

var (
	indexEncMode cbor.EncMode
	indexDecMode cbor.DecMode
)

func init() {
	var err error
	indexEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("pack: cbor encode mode: %v", err))
	}
	indexDecMode, err = cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("pack: cbor decode mode: %v", err))
	}
}

func encodeHeader(l Layout) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], Magic)
	binary.LittleEndian.PutUint16(buf[4:6], l.Version)
	binary.LittleEndian.PutUint16(buf[6:8], l.Flags)
	off := 8
	for _, r := range []Region{l.Manifest, l.Index, l.Payload, l.Trailer} {
		binary.LittleEndian.PutUint64(buf[off:off+8], r.Offset)
		binary.LittleEndian.PutUint64(buf[off+8:off+16], r.Length)
		off += 16
	}
	return buf
}

func decodeHeader(buf []byte) (Layout, error) {
	if len(buf) < HeaderSize || string(buf[0:4]) != Magic {
		return Layout{}, ErrBadMagic
	}
	l := Layout{
		Version: binary.LittleEndian.Uint16(buf[4:6]),
		Flags:   binary.LittleEndian.Uint16(buf[6:8]),
	}
	if l.Version != FormatVersion {
		return Layout{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, l.Version)
	}
	regions := []*Region{&l.Manifest, &l.Index, &l.Payload, &l.Trailer}
	off := 8
	for _, r := range regions {
		r.Offset = binary.LittleEndian.Uint64(buf[off : off+8])
		r.Length = binary.LittleEndian.Uint64(buf[off+8 : off+16])
		off += 16
	}
	return l, nil
}

// checkContiguous enforces header, manifest, index, payload, trailer in
// order with no gaps and a fixed-size trailer ending at size.
func (l Layout) checkContiguous(size uint64) error {
	next := uint64(HeaderSize)
	for _, named := range []struct {
		name string
		r    Region
	}{
		{"manifest", l.Manifest},
		{"index", l.Index},
		{"payload", l.Payload},
		{"trailer", l.Trailer},
	} {
		if named.r.Offset != next {
			return fmt.Errorf("%w: %s region at %d, want %d", ErrCorruptLayout, named.name, named.r.Offset, next)
		}
		if named.r.Length > size || named.r.End() > size {
			return fmt.Errorf("%w: %s region exceeds file size %d", ErrCorruptLayout, named.name, size)
		}
		next = named.r.End()
	}
	if l.Trailer.Length != uint64(TrailerSize) {
		return fmt.Errorf("%w: trailer length %d", ErrCorruptLayout, l.Trailer.Length)
	}
	if next != size {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorruptLayout, size-min(next, size))
	}
	return nil
}
