package pack

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"vcxenc/internal/cid"
	"vcxenc/internal/manifest"
	"vcxenc/internal/tile"
)

// Pack is a verified, fully loaded pack.
type Pack struct {
	Layout        Layout
	Manifest      manifest.Manifest
	ManifestBytes []byte
	Index         []IndexEntry
	payload       []byte
	byCID         map[string]int
}

// Payload returns the bytes and tag of the payload with the given CID.
func (p *Pack) Payload(id string) ([]byte, Tag, bool) {
	i, ok := p.byCID[id]
	if !ok {
		return nil, 0, false
	}
	e := p.Index[i]
	return p.payload[e.Offset : e.Offset+e.Length], e.Tag, true
}

// CountByTag returns the number of index entries per tag.
func (p *Pack) CountByTag() map[Tag]int {
	counts := make(map[Tag]int)
	for _, e := range p.Index {
		counts[e.Tag]++
	}
	return counts
}

// Open reads and verifies the pack at path.
func Open(path string, full bool) (*Pack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = f.Close() }()
	p, err := Verify(f, full)
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", path, err)
	}
	return p, nil
}

// Verify reads a pack and checks its structure: header, region layout,
// trailer digest, manifest and index. With full set it also recomputes every
// payload CID, resolves every manifest reference against the index with the
// expected tag, checks tile headers against their references and checks the
// manifest duration against its GOTs.
func Verify(r io.Reader, full bool) (*Pack, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pack: %w", err)
	}
	if len(data) < HeaderSize+TrailerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadMagic, len(data))
	}
	layout, err := decodeHeader(data[:HeaderSize])
	if err != nil {
		return nil, err
	}
	if err := layout.checkContiguous(uint64(len(data))); err != nil {
		return nil, err
	}

	trailer := data[layout.Trailer.Offset:]
	if string(trailer[:len(TrailerMagic)]) != TrailerMagic {
		return nil, fmt.Errorf("%w: bad trailer magic", ErrCorruptLayout)
	}
	digest := cid.Digest(data[:layout.Trailer.Offset])
	if !bytes.Equal(trailer[len(TrailerMagic):], digest[:]) {
		return nil, ErrChecksumMismatch
	}

	manifestBytes := data[layout.Manifest.Offset:layout.Manifest.End()]
	if layout.Strict() {
		if err := CheckTaggedNumbers(manifestBytes); err != nil {
			return nil, err
		}
	}
	m, err := manifest.Parse(manifestBytes)
	if err != nil {
		return nil, err
	}

	var entries []IndexEntry
	if err := indexDecMode.Unmarshal(data[layout.Index.Offset:layout.Index.End()], &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndex, err)
	}
	layout.Entries = len(entries)

	p := &Pack{
		Layout:        layout,
		Manifest:      m,
		ManifestBytes: manifestBytes,
		Index:         entries,
		payload:       data[layout.Payload.Offset:layout.Payload.End()],
		byCID:         make(map[string]int, len(entries)),
	}
	if err := p.checkIndex(); err != nil {
		return nil, err
	}
	if !full {
		return p, nil
	}
	if err := p.checkPayloads(); err != nil {
		return nil, err
	}
	if err := p.checkReferences(); err != nil {
		return nil, err
	}
	if err := p.checkDuration(); err != nil {
		return nil, err
	}
	return p, nil
}

// checkIndex requires entries to tile the payload region exactly, in order.
func (p *Pack) checkIndex() error {
	var next uint64
	for i, e := range p.Index {
		if !e.Tag.valid() {
			return fmt.Errorf("%w: entry %d has unknown tag %d", ErrIndex, i, e.Tag)
		}
		if e.Offset != next || e.Length > uint64(len(p.payload))-next {
			return fmt.Errorf("%w: entry %d at %d+%d out of bounds", ErrIndex, i, e.Offset, e.Length)
		}
		next += e.Length
		if _, dup := p.byCID[e.CID]; !dup {
			p.byCID[e.CID] = i
		}
	}
	if next != uint64(len(p.payload)) {
		return fmt.Errorf("%w: entries cover %d of %d payload bytes", ErrIndex, next, len(p.payload))
	}
	return nil
}

func (p *Pack) checkPayloads() error {
	for i, e := range p.Index {
		if got := cid.ID(p.payload[e.Offset : e.Offset+e.Length]); got != e.CID {
			return fmt.Errorf("%w: entry %d declared %s, computed %s", ErrCIDMismatch, i, e.CID, got)
		}
	}
	return nil
}

func (p *Pack) checkReferences() error {
	for gotIdx, got := range p.Manifest.GOTs {
		for _, ref := range got.Tiles {
			data, err := p.expect(ref.CID, TagIC0Tile)
			if err != nil {
				return err
			}
			if err := checkTileRef(data, uint32(gotIdx), ref); err != nil {
				return err
			}
		}
	}
	for _, ref := range p.Manifest.Sidecars {
		if _, err := p.expect(ref.CID, TagSidecar); err != nil {
			return err
		}
	}
	if p.Manifest.Audio != nil {
		if _, err := p.expect(p.Manifest.Audio.CID, TagOpus); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pack) expect(id string, tag Tag) ([]byte, error) {
	data, got, ok := p.Payload(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrMissingReference, tag, id)
	}
	if got != tag {
		return nil, fmt.Errorf("%w: %s stored as %s, referenced as %s", ErrMissingReference, id, got, tag)
	}
	return data, nil
}

func checkTileRef(data []byte, frameIndex uint32, ref manifest.TileRef) error {
	h, err := tile.DecodeHeader(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTileHeader, ref.CID, err)
	}
	want := []struct {
		field string
		ref   string
		got   uint64
	}{
		{"tile_x", ref.TileX, uint64(h.TileX)},
		{"tile_y", ref.TileY, uint64(h.TileY)},
		{"crop_w", ref.CropW, uint64(h.CropW)},
		{"crop_h", ref.CropH, uint64(h.CropH)},
	}
	for _, w := range want {
		if w.ref != strconv.FormatUint(w.got, 10) {
			return fmt.Errorf("%w: %s %s is %d, manifest says %q", ErrTileHeader, ref.CID, w.field, w.got, w.ref)
		}
	}
	if h.FrameIndex != frameIndex {
		return fmt.Errorf("%w: %s belongs to frame %d, referenced from GOT %d", ErrTileHeader, ref.CID, h.FrameIndex, frameIndex)
	}
	return nil
}

func (p *Pack) checkDuration() error {
	total, err := p.Manifest.DurationTicks.Uint64()
	if err != nil {
		return fmt.Errorf("%w: duration_ticks: %w", ErrDurationMismatch, err)
	}
	var sum uint64
	for i, got := range p.Manifest.GOTs {
		dur, err := got.DurTicks.Uint64()
		if err != nil {
			return fmt.Errorf("%w: GOT %d dur_ticks: %w", ErrDurationMismatch, i, err)
		}
		sum = manifest.SaturatingAdd(sum, dur)
	}
	if sum != total {
		return fmt.Errorf("%w: duration_ticks %d, GOTs sum to %d", ErrDurationMismatch, total, sum)
	}
	return nil
}
