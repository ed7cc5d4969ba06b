// Package ffmpeg runs the ffmpeg binary for the two decoder operations the
// encoder needs: streaming raw 4:2:0 frames over stdout and transcoding the
// first audio stream to constant bitrate Opus.
//
// Stderr is always captured so failures carry ffmpeg's own diagnostics.
package ffmpeg
