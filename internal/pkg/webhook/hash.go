package webhook

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash is the dedup key of a delivery: lowercase hex SHA-256 of the raw
// body. The bytes are hashed as received, so reordered properties or
// different whitespace produce a different key.
func Hash(rawBody []byte) string {
	sum := sha256.Sum256(rawBody)
	return hex.EncodeToString(sum[:])
}
