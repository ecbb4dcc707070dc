package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// idBytes is the session identifier size: 32 bytes = 256 bits of entropy.
const idBytes = 32

// NewID generates a cryptographically random, URL-safe session identifier.
func NewID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: generate id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidID reports whether id has the shape produced by [NewID].
// Cookies carrying anything else are treated as absent.
func ValidID(id string) bool {
	if len(id) != base64.RawURLEncoding.EncodedLen(idBytes) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(id)
	return err == nil
}
