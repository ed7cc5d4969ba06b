// Package manifest builds the VCX manifest: the root document that
// references every tile, sidecar and audio payload of a pack by CID and lays
// frames out on a 90 kHz timeline.
//
// Numbers that must survive hashing exactly are written as tagged decimal
// strings (Int, Rat) instead of JSON numbers.
package manifest
