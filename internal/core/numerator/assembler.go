package numerator

import (
	"errors"
	"fmt"
	"time"

	tmpl "serialgen/pkg/numerator"
)

// DefaultBlockedMarker is appended to numbers of blocked prefixes.
const DefaultBlockedMarker = "-BLK"

// Assembler turns a rule and a sequence value into a number.
// It performs no I/O; the clock is the only environmental input.
type Assembler struct {
	blockedMarker string
	now           func() time.Time
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithBlockedMarker overrides the blocked suffix.
func WithBlockedMarker(marker string) AssemblerOption {
	return func(a *Assembler) { a.blockedMarker = marker }
}

// WithClock sets the time source used for {year}.
func WithClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) { a.now = now }
}

// NewAssembler creates an Assembler using UTC wall time.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		blockedMarker: DefaultBlockedMarker,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble renders rule.Format for prefix and seq.
// Fails only on templates that registration would have rejected.
func (a *Assembler) Assemble(prefix string, rule *PrefixRule, seq uint64) (string, error) {
	if rule == nil {
		return "", fmt.Errorf("%w: nil rule for %q", ErrInvalidFormat, prefix)
	}

	out, err := tmpl.Render(rule.Format, tmpl.Fields{
		Prefix:    prefix,
		Year:      a.now().Year(),
		Seq:       seq,
		SeqLength: rule.SeqLength,
	})
	if err != nil {
		if errors.Is(err, tmpl.ErrWidthTooLarge) {
			return "", fmt.Errorf("%w: %w", ErrInvalidFormat, err)
		}
		return "", err
	}

	if rule.Blocked {
		out += a.blockedMarker
	}
	return out, nil
}
