// Package sidecar builds the diagnostic "media import" payload stored next to
// the tiles in every pack. It records where the tiles came from (source name
// and BLAKE3 hash), the probed geometry and rate, and whether an audio
// payload was produced.
package sidecar
