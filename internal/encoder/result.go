package encoder

import (
	"vcxenc/internal/pack"
	"vcxenc/internal/probe"
)

// Result summarizes a successful encode.
type Result struct {
	RunID       string
	InputPath   string
	OutputPath  string
	ManifestOut string
	ManifestID  string
	SourceHash  string
	Meta        probe.VideoMeta
	Frames      int
	Tiles       int
	SidecarCID  string
	AudioCID    string
	Layout      pack.Layout
}
