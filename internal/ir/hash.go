package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns a short content hash of v: "h:" followed by the first eight
// hex characters of SHA-256 over the canonical serialization. Short hashes
// are for provenance legibility, not collision resistance.
func Hash(v Value) string {
	sum := sha256.Sum256(MarshalCanonical(v))
	return "h:" + hex.EncodeToString(sum[:])[:8]
}
