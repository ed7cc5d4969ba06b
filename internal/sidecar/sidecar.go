package sidecar

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// Schema tags the sidecar payload and its manifest reference.
	Schema = "vcx/sidecar.media.import.v1"
	// CodecOut names the tile codec written by the encoder.
	CodecOut = "VCX-IC0-ALPHA"

	defaultSourceName = "input.mp4"
)

// Input carries everything recorded in the sidecar.
type Input struct {
	Encoder         string // "vcxenc/<version>"
	Profile         string
	SourcePath      string
	SourceHashHex   string
	VideoCodec      string
	Width           uint32
	Height          uint32
	FPSNum          uint32
	FPSDen          uint32
	FramesEncoded   uint64
	TileSize        uint16
	DurationSeconds *float64
	HasAudioPayload bool
	AudioCodec      *string
}

// Document is the serialized sidecar. Field order is the wire key order.
type Document struct {
	Schema          string  `json:"schema"`
	Encoder         string  `json:"encoder"`
	Profile         string  `json:"profile"`
	Source          Source  `json:"source"`
	Video           Video   `json:"video"`
	HasAudioPayload bool    `json:"has_audio_payload"`
	AudioCodecIn    *string `json:"audio_codec_in"`
}

type Source struct {
	Name   string `json:"name"`
	HashB3 string `json:"hash_b3"`
}

type Video struct {
	CodecIn         string  `json:"codec_in"`
	CodecOut        string  `json:"codec_out"`
	Width           uint32  `json:"width"`
	Height          uint32  `json:"height"`
	FPSNum          uint32  `json:"fps_num"`
	FPSDen          uint32  `json:"fps_den"`
	FramesEncoded   uint64  `json:"frames_encoded"`
	TileSize        uint16  `json:"tile_size"`
	DurationSeconds *string `json:"duration_seconds,omitempty"`
}

// Build renders the sidecar payload bytes.
func Build(in Input) ([]byte, error) {
	doc := Document{
		Schema:  Schema,
		Encoder: in.Encoder,
		Profile: in.Profile,
		Source: Source{
			Name:   SourceName(in.SourcePath),
			HashB3: "b3:" + strings.ToLower(in.SourceHashHex),
		},
		Video: Video{
			CodecIn:       in.VideoCodec,
			CodecOut:      CodecOut,
			Width:         in.Width,
			Height:        in.Height,
			FPSNum:        in.FPSNum,
			FPSDen:        in.FPSDen,
			FramesEncoded: in.FramesEncoded,
			TileSize:      in.TileSize,
		},
		HasAudioPayload: in.HasAudioPayload,
		AudioCodecIn:    in.AudioCodec,
	}
	if in.DurationSeconds != nil {
		formatted := FormatSeconds(*in.DurationSeconds)
		doc.Video.DurationSeconds = &formatted
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal sidecar: %w", err)
	}
	return data, nil
}

// Parse decodes a sidecar payload.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse sidecar: %w", err)
	}
	if doc.Schema != Schema {
		return Document{}, fmt.Errorf("parse sidecar: unexpected schema %q", doc.Schema)
	}
	return doc, nil
}

// SourceName returns the NFC-normalized base name of path, or "input.mp4"
// when path has no usable base name.
func SourceName(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return defaultSourceName
	}
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return defaultSourceName
	}
	return norm.NFC.String(base)
}

// FormatSeconds renders seconds in the shortest decimal form that round-trips.
func FormatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}
