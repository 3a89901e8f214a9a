// Package phoneme defines the phonetic units that flow through the
// transliteration pipeline: single Phonemes, the Symbols the tokenizer
// groups them into, and a streaming Lexer that splits IPA text.
package phoneme

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrMalformedToken is returned when a token violates the structural
// invariants of a Symbol, e.g. it holds no phonemes.
var ErrMalformedToken = errors.New("malformed token")

// Stress is the stress level carried by a phoneme.
type Stress uint8

const (
	None Stress = iota
	Primary
	Secondary
)

func (s Stress) String() string {
	switch s {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return "none"
	}
}

// Phoneme is an atomic phonetic unit. ID is the unit's text (a base rune
// plus any combining marks, NFC); the stress mark that preceded it in the
// source text is carried separately.
type Phoneme struct {
	ID     string
	Stress Stress
}

// New returns an unstressed phoneme.
func New(id string) Phoneme { return Phoneme{ID: id} }

// Stressed returns a copy of p with the given stress level.
func (p Phoneme) Stressed(s Stress) Phoneme {
	p.Stress = s
	return p
}

// IsBoundary reports whether p is a whitespace unit separating words.
func (p Phoneme) IsBoundary() bool {
	return p.ID != "" && strings.TrimFunc(p.ID, unicode.IsSpace) == ""
}

func (p Phoneme) String() string {
	switch p.Stress {
	case Primary:
		return string(PrimaryMark) + p.ID
	case Secondary:
		return string(SecondaryMark) + p.ID
	default:
		return p.ID
	}
}

// Symbol is one or more phonemes the tokenizer grouped into a single
// orthographic unit. Glyph, when non-empty, overrides the symbol table
// lookup at emission time; rules use it to emit a fixed rendering.
type Symbol struct {
	Phonemes []Phoneme
	Glyph    string
}

// NewSymbol groups ps into a Symbol. The slice is copied.
func NewSymbol(ps ...Phoneme) Symbol {
	return Symbol{Phonemes: append([]Phoneme(nil), ps...)}
}

// Key is the concatenation of the constituent phoneme IDs.
func (s Symbol) Key() string {
	if len(s.Phonemes) == 1 {
		return s.Phonemes[0].ID
	}
	var b strings.Builder
	for _, p := range s.Phonemes {
		b.WriteString(p.ID)
	}
	return b.String()
}

// Len returns the number of constituent phonemes.
func (s Symbol) Len() int { return len(s.Phonemes) }

// Stress returns the strongest stress level among the constituents.
func (s Symbol) Stress() Stress {
	out := None
	for _, p := range s.Phonemes {
		if p.Stress == Primary {
			return Primary
		}
		if p.Stress == Secondary {
			out = Secondary
		}
	}
	return out
}

// IsBoundary reports whether s is a single whitespace unit.
func (s Symbol) IsBoundary() bool {
	return len(s.Phonemes) == 1 && s.Phonemes[0].IsBoundary()
}

// Validate checks the structural invariants of s.
func (s Symbol) Validate() error {
	if len(s.Phonemes) == 0 {
		return fmt.Errorf("%w: symbol has no phonemes", ErrMalformedToken)
	}
	for i, p := range s.Phonemes {
		if p.ID == "" {
			return fmt.Errorf("%w: phoneme %d of %q has an empty id", ErrMalformedToken, i, s.Key())
		}
	}
	return nil
}

func (s Symbol) String() string {
	if s.Glyph != "" {
		return s.Key() + "→" + s.Glyph
	}
	return s.Key()
}

// Flatten returns the phonemes of all symbols in order.
func Flatten(symbols []Symbol) []Phoneme {
	n := 0
	for _, s := range symbols {
		n += len(s.Phonemes)
	}
	out := make([]Phoneme, 0, n)
	for _, s := range symbols {
		out = append(out, s.Phonemes...)
	}
	return out
}

// IDs returns the ID of every phoneme in ps.
func IDs(ps []Phoneme) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}
