package cid

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"lukechampine.com/blake3"
)

const (
	// Prefix marks the textual form of a BLAKE3-256 content identifier.
	Prefix = "b3:"
	// DigestSize is the BLAKE3 output length used throughout the pack.
	DigestSize = 32

	multicodecBLAKE3 = 0x1e
)

// ErrMalformed reports a string that is not a BLAKE3 content identifier.
var ErrMalformed = errors.New("malformed content identifier")

// Sum returns the raw multihash form (codec, length, digest) and the textual
// identifier of data.
func Sum(data []byte) ([]byte, string) {
	digest := blake3.Sum256(data)
	return rawForm(digest[:]), Prefix + hex.EncodeToString(digest[:])
}

// ID returns only the textual identifier of data.
func ID(data []byte) string {
	_, id := Sum(data)
	return id
}

// Digest returns the raw BLAKE3-256 digest of data.
func Digest(data []byte) [DigestSize]byte {
	return blake3.Sum256(data)
}

// NewHasher returns a streaming BLAKE3-256 hash.
func NewHasher() hash.Hash {
	return blake3.New(DigestSize, nil)
}

// HashReader streams r through BLAKE3 and returns the hex digest.
func HashReader(r io.Reader) (string, error) {
	hasher := NewHasher()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashFile returns the hex BLAKE3-256 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	sum, err := HashReader(f)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return sum, nil
}

// Parse validates a textual identifier and returns its digest bytes.
func Parse(id string) ([]byte, error) {
	hexDigest, ok := strings.CutPrefix(id, Prefix)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, id)
	}
	digest, err := hex.DecodeString(hexDigest)
	if err != nil || len(digest) != DigestSize {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, id)
	}
	return digest, nil
}

func rawForm(digest []byte) []byte {
	raw := make([]byte, 0, 2+len(digest))
	raw = append(raw, multicodecBLAKE3, byte(len(digest)))
	return append(raw, digest...)
}
