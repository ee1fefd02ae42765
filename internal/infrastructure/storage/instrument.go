// Package storage holds shared counter store backends and the decorator
// that bounds and observes every store call.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"serialgen/internal/core/numerator"
	"serialgen/internal/infrastructure/metrics"
)

var tracer = otel.Tracer("serialgen/storage")

// DefaultTimeout bounds a store call when none is configured.
const DefaultTimeout = 2 * time.Second

// Instrumented decorates a Backend: every call gets a deadline, a span and
// latency/error metrics. Deadline expiry surfaces as ErrBackendUnavailable.
type Instrumented struct {
	next    numerator.Backend
	timeout time.Duration
}

// Compile-time check that Instrumented implements numerator.Backend.
var _ numerator.Backend = (*Instrumented)(nil)

// Instrument wraps next. A non-positive timeout uses DefaultTimeout.
func Instrument(next numerator.Backend, timeout time.Duration) *Instrumented {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Instrumented{next: next, timeout: timeout}
}

// Unwrap returns the decorated backend.
func (s *Instrumented) Unwrap() numerator.Backend {
	return s.next
}

// Name implements numerator.Backend.
func (s *Instrumented) Name() string {
	return s.next.Name()
}

// Close implements numerator.Backend.
func (s *Instrumented) Close() error {
	return s.next.Close()
}

// Ping implements numerator.Backend.
func (s *Instrumented) Ping(ctx context.Context) error {
	return s.do(ctx, "ping", "", func(ctx context.Context) error {
		return s.next.Ping(ctx)
	})
}

// Incr implements numerator.Store.
func (s *Instrumented) Incr(ctx context.Context, key string) (int64, error) {
	var v int64
	err := s.do(ctx, "incr", key, func(ctx context.Context) error {
		var err error
		v, err = s.next.Incr(ctx, key)
		return err
	})
	return v, err
}

// IncrBy implements numerator.Store.
func (s *Instrumented) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	var v int64
	err := s.do(ctx, "incr_by", key, func(ctx context.Context) error {
		var err error
		v, err = s.next.IncrBy(ctx, key, n)
		return err
	})
	return v, err
}

// Get implements numerator.Store.
func (s *Instrumented) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		v  string
		ok bool
	)
	err := s.do(ctx, "get", key, func(ctx context.Context) error {
		var err error
		v, ok, err = s.next.Get(ctx, key)
		return err
	})
	return v, ok, err
}

// Set implements numerator.Store.
func (s *Instrumented) Set(ctx context.Context, key, value string) error {
	return s.do(ctx, "set", key, func(ctx context.Context) error {
		return s.next.Set(ctx, key, value)
	})
}

// SetIfAbsent implements numerator.Store.
func (s *Instrumented) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	var ok bool
	err := s.do(ctx, "set_if_absent", key, func(ctx context.Context) error {
		var err error
		ok, err = s.next.SetIfAbsent(ctx, key, value, ttl)
		return err
	})
	return ok, err
}

// DeleteIfEquals implements numerator.Store.
func (s *Instrumented) DeleteIfEquals(ctx context.Context, key, expected string) (bool, error) {
	var ok bool
	err := s.do(ctx, "delete_if_equals", key, func(ctx context.Context) error {
		var err error
		ok, err = s.next.DeleteIfEquals(ctx, key, expected)
		return err
	})
	return ok, err
}

func (s *Instrumented) do(ctx context.Context, op, key string, fn func(ctx context.Context) error) error {
	backend := s.next.Name()

	ctx, span := tracer.Start(ctx, "store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("store.backend", backend),
			attribute.String("store.key", key),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	metrics.StoreOpDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())

	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, numerator.ErrBackendUnavailable) {
		err = fmt.Errorf("%w: %s %s timed out after %s: %w", numerator.ErrBackendUnavailable, op, key, s.timeout, err)
	}

	metrics.StoreOpErrorsTotal.WithLabelValues(backend, op).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
