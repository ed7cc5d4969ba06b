// Package decoder defines the media decoding capability used by the encoder
// and its ffmpeg/ffprobe implementation. Tests substitute an in-process
// implementation from internal/testsupport.
package decoder
