// Package numerator provides shared-store implementations of sequence issuance.
// This is the infrastructure layer - it implements core/numerator.Issuer interface.
package numerator

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	corenumerator "serialgen/internal/core/numerator"
	"serialgen/internal/infrastructure/metrics"
)

// New creates the issuer selected by opts.Strategy.
func New(store corenumerator.Store, keys corenumerator.Keyspace, opts corenumerator.Options) corenumerator.Issuer {
	opts = opts.Normalize()

	switch opts.Strategy {
	case corenumerator.StrategyLeased:
		return NewLeased(store, keys, opts)
	case corenumerator.StrategyDirect:
		fallthrough
	default:
		return NewDirect(store, keys)
	}
}

// seed makes the counter at least initialSeq-1. An absent counter is created
// at that value; a lower one is raised with IncrBy; a higher one wins.
// Concurrent raises may overshoot, leaving a gap. Counters never move backward.
func seed(ctx context.Context, store corenumerator.Store, key string, initialSeq uint64) error {
	if initialSeq <= 1 {
		return nil
	}
	floor := int64(initialSeq - 1)

	created, err := store.SetIfAbsent(ctx, key, strconv.FormatInt(floor, 10), 0)
	if err != nil {
		return fmt.Errorf("seed %s: %w", key, err)
	}
	if created {
		return nil
	}

	raw, found, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("seed %s: %w", key, err)
	}
	if !found {
		return nil
	}
	cur, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: counter %s holds %q", corenumerator.ErrCorrupt, key, raw)
	}
	if cur >= floor {
		return nil
	}
	if _, err := store.IncrBy(ctx, key, floor-cur); err != nil {
		return fmt.Errorf("seed %s: %w", key, err)
	}
	return nil
}

// observe records the outcome of one Next call.
func observe(prefix string, strategy corenumerator.Strategy, err error) {
	if err == nil {
		metrics.NumbersIssuedTotal.WithLabelValues(prefix, strategy.String()).Inc()
		return
	}
	metrics.IssueErrorsTotal.WithLabelValues(prefix, errorReason(err)).Inc()
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, corenumerator.ErrTryAgain):
		return "try_again"
	case errors.Is(err, corenumerator.ErrBackendUnavailable):
		return "backend"
	case errors.Is(err, corenumerator.ErrCorrupt):
		return "corrupt"
	default:
		return "other"
	}
}
