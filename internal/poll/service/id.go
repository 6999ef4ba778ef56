package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewID returns byteLen random bytes as lowercase hex.
func NewID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}
