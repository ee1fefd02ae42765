// Package retry provides a bounded retry policy for store calls.
package retry

import (
	"context"
	"time"
)

// Policy bounds how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts, first one included.
	// Values below 1 mean a single attempt.
	MaxAttempts int

	// Delay returns the pause before the given retry (1-based).
	// Nil means no pause.
	Delay func(retry int) time.Duration

	// Retryable decides whether err warrants another attempt.
	// Nil retries every error.
	Retryable func(err error) bool
}

// Once retries a single time after delay when retryable reports true.
func Once(delay time.Duration, retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 2,
		Delay:       Constant(delay),
		Retryable:   retryable,
	}
}

// Constant returns a delay function that always waits d.
func Constant(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// Exponential doubles base on each retry.
func Exponential(base time.Duration) func(int) time.Duration {
	return func(retry int) time.Duration {
		d := base
		for i := 1; i < retry; i++ {
			d *= 2
		}
		return d
	}
}

// Do runs fn until it succeeds, the error is not retryable, attempts run out
// or ctx is done. The attempt number (1-based) is passed to fn.
// The last error from fn is returned.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}

		var d time.Duration
		if p.Delay != nil {
			d = p.Delay(attempt)
		}
		if !sleep(ctx, d) {
			return err
		}
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
