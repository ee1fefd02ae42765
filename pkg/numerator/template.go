// Package numerator renders number templates.
//
// A template is free text with placeholders of the form {name} or
// {name:width}. Only a closed set of names is substituted:
//
//	{prefix}  the prefix key
//	{year}    the current year, four digits
//	{SEQ}     the sequence value, zero-padded to width (or the default width)
//
// Any other placeholder is left in the output unchanged.
package numerator

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Recognised placeholder names.
const (
	NamePrefix = "prefix"
	NameYear   = "year"
	NameSeq    = "SEQ"
)

// MaxWidth is the largest padding width accepted for {SEQ}.
const MaxWidth = 32

// ErrWidthTooLarge is returned when a {SEQ} width exceeds MaxWidth.
var ErrWidthTooLarge = errors.New("sequence width too large")

var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_]+)(?::(\d+))?\}`)

// Placeholder is a single {name} or {name:width} occurrence in a template.
// A width of 0, written or omitted, means the default width applies.
type Placeholder struct {
	Raw   string
	Name  string
	Width int
}

// HasWidth reports whether the placeholder overrides the default width.
func (p Placeholder) HasWidth() bool {
	return p.Width > 0
}

func newPlaceholder(m []string) Placeholder {
	p := Placeholder{Raw: m[0], Name: m[1]}
	if m[2] != "" {
		// Digits only; an absurd value is caught by the width check.
		w, err := strconv.Atoi(m[2])
		if err != nil {
			w = MaxWidth + 1
		}
		p.Width = w
	}
	return p
}

// Placeholders lists placeholders in order of appearance.
func Placeholders(format string) []Placeholder {
	matches := placeholderRe.FindAllStringSubmatch(format, -1)
	out := make([]Placeholder, 0, len(matches))
	for _, m := range matches {
		out = append(out, newPlaceholder(m))
	}
	return out
}

// Fields carries the values substituted into a template.
type Fields struct {
	Prefix    string
	Year      int
	Seq       uint64
	SeqLength int // default {SEQ} width
}

// Render substitutes recognised placeholders in format.
// Widths are minimums: a value longer than its width is never truncated.
func Render(format string, f Fields) (string, error) {
	var renderErr error

	out := placeholderRe.ReplaceAllStringFunc(format, func(raw string) string {
		p := newPlaceholder(placeholderRe.FindStringSubmatch(raw))

		switch p.Name {
		case NamePrefix:
			return f.Prefix
		case NameYear:
			return fmt.Sprintf("%04d", f.Year)
		case NameSeq:
			width := f.SeqLength
			if p.HasWidth() {
				width = p.Width
			}
			if width > MaxWidth {
				if renderErr == nil {
					renderErr = fmt.Errorf("%w: %s", ErrWidthTooLarge, raw)
				}
				return raw
			}
			return PadSeq(f.Seq, width)
		default:
			return raw
		}
	})

	if renderErr != nil {
		return "", renderErr
	}
	return out, nil
}

// PadSeq renders seq in decimal, left-padded with zeros to width.
func PadSeq(seq uint64, width int) string {
	s := strconv.FormatUint(seq, 10)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
