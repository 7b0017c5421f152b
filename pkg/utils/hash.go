package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentSHA256 computes the hex SHA-256 of a page body.
func ContentSHA256(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
