// Package encoder orchestrates one encode run: hash the source, probe and
// decode it, slice frames into IC0T tiles, optionally transcode audio, build
// the sidecar and manifest, then write the pack and verify it from disk.
//
// Stages run sequentially on the caller's goroutine. Every failure is wrapped
// with a services marker so callers can classify it; successful and failed
// runs alike are counted in metrics and, when configured, recorded in the
// run ledger.
package encoder
