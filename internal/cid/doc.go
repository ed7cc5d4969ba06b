// Package cid computes BLAKE3-256 content identifiers for pack payloads and
// source files. Identifiers render as "b3:" followed by the lowercase hex
// digest; the raw form prefixes the digest with its multicodec and length.
package cid
