// Package ident produces the short hexadecimal identifiers used to name
// extracted artifacts uniquely per source document.
package ident

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"pdfinsight/internal/model"
)

// DefaultLength is the number of hex characters in a generated id
// (8 chars ≈ 32 bits of entropy).
const DefaultLength = 8

// MaxAttempts bounds collision-checked regeneration before the caller
// gives up with ErrNamingExhausted.
const MaxAttempts = 5

// New returns a random hex string of the given length from a
// cryptographically secure source. Odd lengths are rounded up to the
// next even length's byte count and truncated.
func New(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf)[:length], nil
}

// NewChecked generates ids until taken reports the id as free, up to
// MaxAttempts. The caller supplies the collision predicate so this
// package stays free of store and filesystem knowledge.
func NewChecked(length int, taken func(id string) (bool, error)) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		id, err := New(length)
		if err != nil {
			return "", err
		}
		inUse, err := taken(id)
		if err != nil {
			return "", err
		}
		if !inUse {
			return id, nil
		}
	}
	return "", model.ErrNamingExhausted
}
