package numerator

import (
	"context"
	"fmt"

	corenumerator "serialgen/internal/core/numerator"
)

// Direct issues every value with one atomic increment.
// Values are dense and strictly increasing per prefix.
type Direct struct {
	store corenumerator.Store
	keys  corenumerator.Keyspace
}

// Ensure compile-time interface compliance.
var _ corenumerator.Issuer = (*Direct)(nil)

// NewDirect creates a direct issuer.
func NewDirect(store corenumerator.Store, keys corenumerator.Keyspace) *Direct {
	return &Direct{store: store, keys: keys}
}

// Next implements corenumerator.Issuer. The increment is never retried.
func (d *Direct) Next(ctx context.Context, prefix string) (uint64, error) {
	v, err := d.next(ctx, prefix)
	observe(prefix, corenumerator.StrategyDirect, err)
	return v, err
}

func (d *Direct) next(ctx context.Context, prefix string) (uint64, error) {
	key := d.keys.SequenceKey(prefix)

	v, err := d.store.Incr(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", prefix, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%w: counter %s is %d", corenumerator.ErrCorrupt, key, v)
	}
	return uint64(v), nil
}

// Seed implements corenumerator.Issuer.
func (d *Direct) Seed(ctx context.Context, prefix string, initialSeq uint64) error {
	return seed(ctx, d.store, d.keys.SequenceKey(prefix), initialSeq)
}
