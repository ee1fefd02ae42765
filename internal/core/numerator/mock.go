package numerator

import (
	"context"
	"sync"
)

// MockIssuer is a test implementation of Issuer.
// Use in unit tests to avoid store dependencies.
type MockIssuer struct {
	NextFunc func(ctx context.Context, prefix string) (uint64, error)
	SeedFunc func(ctx context.Context, prefix string, initialSeq uint64) error

	mu       sync.Mutex
	counters map[string]uint64
}

// Next implements Issuer.
func (m *MockIssuer) Next(ctx context.Context, prefix string) (uint64, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, prefix)
	}
	// Default: per-prefix counter starting at 1
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]uint64)
	}
	m.counters[prefix]++
	return m.counters[prefix], nil
}

// Seed implements Issuer.
func (m *MockIssuer) Seed(ctx context.Context, prefix string, initialSeq uint64) error {
	if m.SeedFunc != nil {
		return m.SeedFunc(ctx, prefix, initialSeq)
	}
	return nil
}

// Ensure compile-time interface compliance.
var _ Issuer = (*MockIssuer)(nil)
