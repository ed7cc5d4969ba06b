// Package tile slices luma planes into IC0T tile payloads.
//
// An IC0T payload is a 26-byte little-endian header (magic, version, profile,
// frame index, grid position, crop and tile dimensions, reserved word)
// followed by a tile_size*tile_size block of raw samples. Edge tiles are
// zero-padded beyond their crop.
package tile
