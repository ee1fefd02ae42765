// Package numerator provides domain contracts for sequence issuance and number formatting.
// Implementations live in infrastructure layer.
package numerator

import (
	"context"
)

// Issuer hands out sequence values.
// This is the domain contract - implementations live in infrastructure layer.
type Issuer interface {
	// Next returns a value never returned before for prefix, by any process
	// sharing the same store. Values are positive.
	Next(ctx context.Context, prefix string) (uint64, error)

	// Seed makes sure the first value issued for prefix is not below initialSeq.
	// An existing counter is never moved.
	Seed(ctx context.Context, prefix string, initialSeq uint64) error
}
