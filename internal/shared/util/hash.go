package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns the hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ShortDigest returns the first 16 hex characters of Digest, enough to
// tell artifact versions of one document apart.
func ShortDigest(data []byte) string {
	return Digest(data)[:16]
}
