package numerator

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"serialgen/internal/core/id"
	corenumerator "serialgen/internal/core/numerator"
	"serialgen/internal/infrastructure/metrics"
	"serialgen/pkg/logger"
)

// maxTakeRounds bounds how often one call may lose the race for a fresh lease.
const maxTakeRounds = 8

// lease is a reserved range [next, end] owned by this process.
type lease struct {
	next uint64
	end  uint64
}

// Leased serves values from per-process ranges reserved under a store lock.
// Values are unique across processes but not ordered between them; the unused
// tail of a range is a permanent gap once the process stops.
type Leased struct {
	store    corenumerator.Store
	keys     corenumerator.Keyspace
	opts     corenumerator.Options
	newToken func() string

	// mu protects leases. Never held across store I/O.
	mu     sync.Mutex
	leases map[string]*lease

	// refills coalesces concurrent refills of one prefix.
	refills singleflight.Group
}

// Ensure compile-time interface compliance.
var _ corenumerator.Issuer = (*Leased)(nil)

// NewLeased creates a leased issuer.
func NewLeased(store corenumerator.Store, keys corenumerator.Keyspace, opts corenumerator.Options) *Leased {
	return &Leased{
		store:    store,
		keys:     keys,
		opts:     opts.Normalize(),
		newToken: id.Token,
		leases:   make(map[string]*lease),
	}
}

// Next implements corenumerator.Issuer.
// Returns ErrTryAgain when another holder owns the lease lock.
func (l *Leased) Next(ctx context.Context, prefix string) (uint64, error) {
	v, err := l.next(ctx, prefix)
	observe(prefix, corenumerator.StrategyLeased, err)
	return v, err
}

func (l *Leased) next(ctx context.Context, prefix string) (uint64, error) {
	for round := 0; round < maxTakeRounds; round++ {
		if v, ok := l.take(prefix); ok {
			return v, nil
		}

		_, err, _ := l.refills.Do(prefix, func() (any, error) {
			// Shared by every waiter; one caller's cancellation must not fail the rest.
			return nil, l.refill(context.WithoutCancel(ctx), prefix)
		})
		if err != nil {
			return 0, err
		}
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("next sequence %s: %w", prefix, err)
		}
	}
	return 0, fmt.Errorf("%w: lease for %s drained by concurrent callers", corenumerator.ErrTryAgain, prefix)
}

// take serves one value from the local lease, if any remain.
func (l *Leased) take(prefix string) (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ls, ok := l.leases[prefix]
	if !ok {
		return 0, false
	}
	if ls.next > ls.end {
		delete(l.leases, prefix)
		return 0, false
	}

	v := ls.next
	ls.next++
	return v, true
}

func (l *Leased) hasRemaining(prefix string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	ls, ok := l.leases[prefix]
	return ok && ls.next <= ls.end
}

// refill reserves a new range: lock, incr_by, release.
func (l *Leased) refill(ctx context.Context, prefix string) error {
	if l.hasRemaining(prefix) {
		return nil
	}

	lockKey := l.keys.LockKey(prefix)
	token := l.newToken()

	acquired, err := l.store.SetIfAbsent(ctx, lockKey, token, l.opts.LockTTL)
	if err != nil {
		return fmt.Errorf("acquire lease lock %s: %w", prefix, err)
	}
	if !acquired {
		metrics.LeaseLockContendedTotal.WithLabelValues(prefix).Inc()
		return fmt.Errorf("%w: lease lock for %s is held", corenumerator.ErrTryAgain, prefix)
	}
	defer l.release(ctx, prefix, lockKey, token)

	size := l.opts.LeaseSize
	end, err := l.store.IncrBy(ctx, l.keys.SequenceKey(prefix), size)
	if err != nil {
		return fmt.Errorf("reserve lease %s: %w", prefix, err)
	}

	start := end - size + 1
	if start < 1 {
		return fmt.Errorf("%w: counter %s reserved invalid range ending at %d",
			corenumerator.ErrCorrupt, l.keys.SequenceKey(prefix), end)
	}

	l.mu.Lock()
	l.leases[prefix] = &lease{next: uint64(start), end: uint64(end)}
	l.mu.Unlock()

	metrics.LeaseRefillTotal.WithLabelValues(prefix).Inc()
	logger.Debug(ctx, "sequence lease reserved",
		"prefix", prefix,
		"start", start,
		"end", end,
	)
	return nil
}

// release drops the lock if we still own it. Failures are not fatal: the lock expires.
func (l *Leased) release(ctx context.Context, prefix, lockKey, token string) {
	released, err := l.store.DeleteIfEquals(ctx, lockKey, token)
	if err != nil || !released {
		metrics.LeaseLockReleaseFailedTotal.WithLabelValues(prefix).Inc()
		logger.Warn(ctx, "lease lock not released, waiting for expiry",
			"prefix", prefix,
			"lock_ttl", l.opts.LockTTL,
			"error", err,
		)
	}
}

// Seed implements corenumerator.Issuer.
func (l *Leased) Seed(ctx context.Context, prefix string, initialSeq uint64) error {
	if err := seed(ctx, l.store, l.keys.SequenceKey(prefix), initialSeq); err != nil {
		return err
	}
	// A lease taken before the seed may sit below the new floor.
	if initialSeq > 1 {
		l.Discard(prefix)
	}
	return nil
}

// Discard forgets the local lease of prefix. Its remaining values are never issued.
func (l *Leased) Discard(prefix string) {
	l.mu.Lock()
	delete(l.leases, prefix)
	l.mu.Unlock()
}

// Remaining returns how many values are left in the local lease of prefix.
func (l *Leased) Remaining(prefix string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	ls, ok := l.leases[prefix]
	if !ok || ls.next > ls.end {
		return 0
	}
	return ls.end - ls.next + 1
}
