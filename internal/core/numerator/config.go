// Package numerator provides domain contracts for sequence issuance and number formatting.
package numerator

import (
	"fmt"
	"strings"
	"time"
)

// Strategy defines how sequence values are drawn from the shared store.
type Strategy int

const (
	// StrategyDirect performs one atomic increment per issued value.
	// Values are dense and strictly increasing across all processes.
	StrategyDirect Strategy = iota

	// StrategyLeased reserves ranges of values per process.
	// One store round-trip per LeaseSize values; unused tails are lost on restart.
	StrategyLeased
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case StrategyLeased:
		return "leased"
	default:
		return "direct"
	}
}

// ParseStrategy parses "direct" or "leased".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "direct":
		return StrategyDirect, nil
	case "leased", "batch":
		return StrategyLeased, nil
	default:
		return StrategyDirect, fmt.Errorf("unknown issuer strategy %q", s)
	}
}

// Options configures the sequence issuer.
type Options struct {
	// Strategy to use for issuance.
	Strategy Strategy
	// LeaseSize is the number of values reserved per refill in the leased strategy.
	// Default is 50.
	LeaseSize int64
	// LockTTL bounds how long a crashed holder can block lease acquisition.
	// Default is 5s.
	LockTTL time.Duration
}

// DefaultOptions returns standard options (Direct).
func DefaultOptions() Options {
	return Options{
		Strategy:  StrategyDirect,
		LeaseSize: 50,
		LockTTL:   5 * time.Second,
	}
}

// Normalize fills zero values with defaults.
func (o Options) Normalize() Options {
	def := DefaultOptions()
	if o.LeaseSize <= 0 {
		o.LeaseSize = def.LeaseSize
	}
	if o.LockTTL <= 0 {
		o.LockTTL = def.LockTTL
	}
	return o
}
