package pack

import (
	"bytes"
	"fmt"
	"io"

	"vcxenc/internal/cid"
	"vcxenc/internal/manifest"
)

// Payload is one content-addressed blob to store in a pack.
type Payload struct {
	Tag   Tag
	CID   string
	Bytes []byte
}

// Build writes a pack holding m and payloads, in payload order, to w. In
// strict mode the manifest must carry no bare JSON numbers and every payload
// must be non-empty. Each payload CID is checked against its bytes.
func Build(w io.Writer, m manifest.Manifest, payloads []Payload, strict bool) (Layout, error) {
	manifestBytes, err := manifest.Marshal(m)
	if err != nil {
		return Layout{}, err
	}
	if strict {
		if err := CheckTaggedNumbers(manifestBytes); err != nil {
			return Layout{}, err
		}
	}

	entries := make([]IndexEntry, 0, len(payloads))
	var payloadLen uint64
	for i, p := range payloads {
		if !p.Tag.valid() {
			return Layout{}, fmt.Errorf("%w: payload %d has unknown tag %d", ErrIndex, i, p.Tag)
		}
		if strict && len(p.Bytes) == 0 {
			return Layout{}, fmt.Errorf("%w: payload %d (%s)", ErrEmptyPayload, i, p.Tag)
		}
		if got := cid.ID(p.Bytes); got != p.CID {
			return Layout{}, fmt.Errorf("%w: payload %d declared %s, computed %s", ErrCIDMismatch, i, p.CID, got)
		}
		entries = append(entries, IndexEntry{Tag: p.Tag, CID: p.CID, Offset: payloadLen, Length: uint64(len(p.Bytes))})
		payloadLen += uint64(len(p.Bytes))
	}
	indexBytes, err := indexEncMode.Marshal(entries)
	if err != nil {
		return Layout{}, fmt.Errorf("encode pack index: %w", err)
	}

	layout := Layout{Version: FormatVersion, Entries: len(entries)}
	if strict {
		layout.Flags |= FlagStrict
	}
	layout.Manifest = Region{Offset: HeaderSize, Length: uint64(len(manifestBytes))}
	layout.Index = Region{Offset: layout.Manifest.End(), Length: uint64(len(indexBytes))}
	layout.Payload = Region{Offset: layout.Index.End(), Length: payloadLen}
	layout.Trailer = Region{Offset: layout.Payload.End(), Length: uint64(TrailerSize)}

	hasher := cid.NewHasher()
	out := io.MultiWriter(w, hasher)
	for _, chunk := range [][]byte{encodeHeader(layout), manifestBytes, indexBytes} {
		if _, err := out.Write(chunk); err != nil {
			return Layout{}, fmt.Errorf("write pack: %w", err)
		}
	}
	for _, p := range payloads {
		if _, err := out.Write(p.Bytes); err != nil {
			return Layout{}, fmt.Errorf("write pack payload %s: %w", p.CID, err)
		}
	}

	var trailer bytes.Buffer
	trailer.WriteString(TrailerMagic)
	trailer.Write(hasher.Sum(nil))
	if _, err := w.Write(trailer.Bytes()); err != nil {
		return Layout{}, fmt.Errorf("write pack trailer: %w", err)
	}
	return layout, nil
}
