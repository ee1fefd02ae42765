// Package memory provides an in-process shared counter store.
// Suitable for tests and single-process deployments.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"serialgen/internal/core/numerator"
)

type entry struct {
	value     string
	expiresAt time.Time // zero: no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Store keeps all keys in one map guarded by one mutex.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

var _ numerator.Backend = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements numerator.Backend.
func (s *Store) Name() string { return "memory" }

// Ping implements numerator.Backend.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Close implements numerator.Backend.
func (s *Store) Close() error { return nil }

// lookup returns a live entry, dropping it if expired. Caller holds mu.
func (s *Store) lookup(key string) (entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		return entry{}, false
	}
	return e, true
}

// Incr implements numerator.Store.
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	return s.IncrBy(ctx, key, 1)
}

// IncrBy implements numerator.Store.
func (s *Store) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", numerator.ErrBackendUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var cur int64
	e, ok := s.lookup(key)
	if ok {
		v, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: key %s holds %q", numerator.ErrCorrupt, key, e.value)
		}
		cur = v
	}

	cur += n
	e.value = strconv.FormatInt(cur, 10)
	s.entries[key] = e
	return cur, nil
}

// Get implements numerator.Store.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, fmt.Errorf("%w: %w", numerator.ErrBackendUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set implements numerator.Store.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", numerator.ErrBackendUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{value: value}
	return nil
}

// SetIfAbsent implements numerator.Store.
func (s *Store) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: %w", numerator.ErrBackendUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(key); ok {
		return false, nil
	}

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return true, nil
}

// DeleteIfEquals implements numerator.Store.
func (s *Store) DeleteIfEquals(ctx context.Context, key, expected string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: %w", numerator.ErrBackendUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok || e.value != expected {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

// Len returns the number of live keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	now := s.now()
	for _, e := range s.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}
