// Package checksum computes the SHA-256 digests sent along with uploads.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// SHA256Hex returns the lowercase hex-encoded SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Hasher accumulates a SHA-256 digest over data written to it in pieces.
type Hasher struct {
	h hash.Hash
}

// NewHasher ...
func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

// Write never returns an error.
func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Sum returns the hex digest of everything written so far.
func (h *Hasher) Sum() string {
	return hex.EncodeToString(h.h.Sum(nil))
}
