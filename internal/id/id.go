// Package id provides random material generation for secrets and
// salts. Record identifiers come from github.com/google/uuid; this
// package covers the non-UUID cases.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Bytes returns n cryptographically random bytes.
func Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return b, nil
}

// Hex returns a random hex string of 2n characters. Used for
// generated credential secrets.
func Hex(n int) (string, error) {
	b, err := Bytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
