// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no vcxenc-specific dependencies and could be extracted
// as a standalone library.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, format name)
//
// Primary entry points:
//   - Inspect: executes ffprobe and returns parsed Result
//   - Parse: decodes previously captured ffprobe JSON
package ffprobe
