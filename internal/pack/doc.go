// Package pack writes and verifies VCX pack files.
//
// A pack is a single file with five contiguous regions:
//
//	header   72 bytes: "VCX1", u16 version, u16 flags, then (offset, length)
//	         u64 pairs for the manifest, index, payload and trailer regions
//	manifest compact manifest JSON
//	index    deterministic CBOR array of {tag, cid, off, len}; offsets are
//	         relative to the payload region
//	payload  payload bytes in index order
//	trailer  "VCXE" followed by the BLAKE3-256 digest of everything before it
//
// All integers are little-endian.
package pack
