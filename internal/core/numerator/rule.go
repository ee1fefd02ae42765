package numerator

import (
	"fmt"
	"regexp"

	tmpl "serialgen/pkg/numerator"
)

var prefixKeyRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// PrefixRule describes how numbers for one prefix are formatted.
// It is stored as JSON under the rule key of its prefix.
type PrefixRule struct {
	PrefixKey  string `json:"prefix_key"`
	Format     string `json:"format"`
	SeqLength  int    `json:"seq_length"`
	InitialSeq uint64 `json:"initial_seq"`
	// Blocked marks the prefix as degraded. Assembled numbers carry a marker suffix.
	Blocked bool `json:"blocked,omitempty"`
}

// ValidatePrefixKey checks the key charset and length.
func ValidatePrefixKey(key string) error {
	if !prefixKeyRe.MatchString(key) {
		return fmt.Errorf("%w: prefix key %q must match %s", ErrInvalidFormat, key, prefixKeyRe.String())
	}
	return nil
}

// Validate checks that the rule can be assembled.
// The format must reference {SEQ} and every SEQ width must be resolvable.
func (r *PrefixRule) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: rule is nil", ErrInvalidFormat)
	}
	if err := ValidatePrefixKey(r.PrefixKey); err != nil {
		return err
	}
	if r.Format == "" {
		return fmt.Errorf("%w: format is empty", ErrInvalidFormat)
	}
	if r.SeqLength < 1 || r.SeqLength > tmpl.MaxWidth {
		return fmt.Errorf("%w: seq_length must be between 1 and %d", ErrInvalidFormat, tmpl.MaxWidth)
	}

	hasSeq := false
	for _, p := range tmpl.Placeholders(r.Format) {
		if p.Name != tmpl.NameSeq {
			continue
		}
		hasSeq = true
		if p.Width > tmpl.MaxWidth {
			return fmt.Errorf("%w: %s width exceeds %d", ErrInvalidFormat, p.Raw, tmpl.MaxWidth)
		}
	}
	if !hasSeq {
		return fmt.Errorf("%w: format %q has no {%s} placeholder", ErrInvalidFormat, r.Format, tmpl.NameSeq)
	}
	return nil
}
