// Package probe normalizes ffprobe metadata into VideoMeta.
package probe
