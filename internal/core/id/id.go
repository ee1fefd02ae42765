// Package id generates identifiers for requests and lease lock tokens.
// UUIDv7 is time-ordered, so tokens found in the store sort by acquisition time.
package id

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// ID is a type alias for UUID.
type ID = uuid.UUID

// New generates a new UUIDv7, falling back to v4 if the clock source fails.
func New() ID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// Token returns a fresh string token, unique per call.
// Lease locks store it so only the holder can release them.
func Token() string {
	return New().String()
}

// Short returns 16 hex characters from the random half of a new ID.
func Short() string {
	u := New()
	return hex.EncodeToString(u[8:])
}
