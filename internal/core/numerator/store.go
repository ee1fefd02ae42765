package numerator

import (
	"context"
	"time"
)

// Store is the shared counter store. It is the only path to cross-process state.
//
// Implementations must make every method atomic with respect to other callers,
// including callers in other processes. Transport failures are reported wrapped
// in ErrBackendUnavailable; values that cannot be interpreted in ErrCorrupt.
type Store interface {
	// Incr atomically adds 1 to key (absent counts as 0) and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// IncrBy atomically adds n to key and returns the new value.
	IncrBy(ctx context.Context, key string, n int64) (int64, error)

	// Get returns the value of key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key with no expiry.
	Set(ctx context.Context, key, value string) error

	// SetIfAbsent stores value only if key is absent or expired.
	// A zero ttl means the entry never expires.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// DeleteIfEquals deletes key only if its current value equals expected.
	DeleteIfEquals(ctx context.Context, key, expected string) (bool, error)
}

// Backend is a Store with a connection lifecycle.
type Backend interface {
	Store

	// Name identifies the implementation ("memory", "redis", ...).
	Name() string

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
