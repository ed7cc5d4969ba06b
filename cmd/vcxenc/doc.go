// Command vcxenc encodes a video file into a self-verifying VCX pack.
//
// Subcommands:
//   - encode: probe, decode, tile and pack a source, then verify the result
//   - verify: re-run full pack verification on an existing file
//   - inspect: print a pack's layout and payload index
//   - runs: list encode runs recorded in the ledger
//   - status: check ffmpeg/ffprobe and the configured directories
//   - config: create or validate the configuration file
package main
