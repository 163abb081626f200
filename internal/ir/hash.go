package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash returns the lowercase hex SHA-256 of v's canonical JSON encoding.
func Hash(v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// MustHash is like Hash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustHash(v any) string {
	h, err := Hash(v)
	if err != nil {
		panic(err)
	}
	return h
}
