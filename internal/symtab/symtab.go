// Package symtab maps phonemes and multi-phoneme symbols to output glyphs.
//
// A Table is immutable once built and safe for concurrent use by any
// number of transliteration sessions.
package symtab

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/example/go-translit/internal/phoneme"
	"github.com/example/go-translit/internal/text"
	"golang.org/x/text/unicode/norm"
)

// Policy governs what GlyphOf does for a key without a mapping.
type Policy uint8

const (
	// KeepOriginal renders the unmapped key unchanged.
	KeepOriginal Policy = iota
	// Fail reports an UnknownSymbolError.
	Fail
)

const (
	PolicyKeepOriginal = "keep_original"
	PolicyFail         = "fail"
)

func (p Policy) String() string {
	if p == Fail {
		return PolicyFail
	}
	return PolicyKeepOriginal
}

// ParsePolicy converts an on_unknown configuration value. An empty value
// selects KeepOriginal.
func ParsePolicy(raw string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", PolicyKeepOriginal:
		return KeepOriginal, nil
	case PolicyFail:
		return Fail, nil
	default:
		return KeepOriginal, fmt.Errorf("%w %q (expected %s|%s)", ErrUnsupportedPolicy, raw, PolicyKeepOriginal, PolicyFail)
	}
}

// Passthrough is the process-wide class of keys rendered as themselves
// under every policy: Unicode punctuation and whitespace.
var Passthrough = []*unicode.RangeTable{unicode.P, unicode.White_Space}

// Entry is one key → glyph mapping.
type Entry struct {
	Key   string `json:"key"`
	Glyph string `json:"glyph"`
}

// Table is a read-only mapping from symbol keys to glyphs.
type Table struct {
	name       string
	glyphs     map[string]string
	prefixes   map[string]struct{}
	maxUnits   int
	policy     Policy
	stressMark string
}

// Option configures a Table at construction.
type Option func(*Table)

// WithPolicy sets the on_unknown policy.
func WithPolicy(p Policy) Option {
	return func(t *Table) { t.policy = p }
}

// WithStressMark sets a glyph appended after every stressed symbol.
func WithStressMark(mark string) Option {
	return func(t *Table) { t.stressMark = mark }
}

// New builds a table from key → glyph pairs. Keys are NFC-normalised and
// must stay unique after normalisation.
func New(name string, glyphs map[string]string, opts ...Option) (*Table, error) {
	t := &Table{
		name:     name,
		glyphs:   make(map[string]string, len(glyphs)),
		prefixes: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	for raw, glyph := range glyphs {
		key := norm.NFC.String(raw)
		if key == "" {
			return nil, fmt.Errorf("%w in table %q", ErrEmptyKey, name)
		}
		if _, dup := t.glyphs[key]; dup {
			return nil, fmt.Errorf("%w %q in table %q", ErrDuplicateKey, key, name)
		}
		t.glyphs[key] = glyph

		units := phoneme.Parse(key)
		if len(units) > t.maxUnits {
			t.maxUnits = len(units)
		}
		var prefix strings.Builder
		for _, u := range units[:max(len(units)-1, 0)] {
			prefix.WriteString(u.ID)
			t.prefixes[prefix.String()] = struct{}{}
		}
	}

	return t, nil
}

// Name returns the table's name.
func (t *Table) Name() string { return t.name }

// Policy returns the on_unknown policy.
func (t *Table) Policy() Policy { return t.policy }

// StressMark returns the glyph appended after stressed symbols.
func (t *Table) StressMark() string { return t.stressMark }

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.glyphs) }

// MaxUnits returns the phoneme count of the longest key.
func (t *Table) MaxUnits() int { return t.maxUnits }

// With returns a copy of t with opts applied. The entry maps are shared;
// neither copy mutates them.
func (t *Table) With(opts ...Option) *Table {
	cp := *t
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// Has reports whether key has a direct mapping.
func (t *Table) Has(key string) bool {
	_, ok := t.glyphs[key]
	return ok
}

// IsPrefix reports whether key is a proper prefix of some longer key,
// cut at a phoneme boundary.
func (t *Table) IsPrefix(key string) bool {
	_, ok := t.prefixes[key]
	return ok
}

// Lookup returns the glyph mapped to key without any fallback.
func (t *Table) Lookup(key string) (string, bool) {
	g, ok := t.glyphs[key]
	return g, ok
}

// Entries returns all mappings sorted by key.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.glyphs))
	for k, g := range t.glyphs {
		out = append(out, Entry{Key: k, Glyph: g})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// GlyphOf renders a symbol. A rule-assigned glyph wins; otherwise the
// whole key is looked up, then each constituent phoneme on its own (exact
// ID first, then its base form without combining marks). Unmapped units
// fall back according to the table's policy.
func (t *Table) GlyphOf(s phoneme.Symbol) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}

	glyph := s.Glyph
	if glyph == "" {
		var err error
		glyph, err = t.render(s)
		if err != nil {
			return "", err
		}
	}

	if t.stressMark != "" && s.Stress() != phoneme.None {
		glyph += t.stressMark
	}
	return glyph, nil
}

func (t *Table) render(s phoneme.Symbol) (string, error) {
	key := s.Key()
	if g, ok := t.glyphs[key]; ok {
		return g, nil
	}
	if len(s.Phonemes) == 1 {
		return t.unit(key)
	}

	var b strings.Builder
	for _, p := range s.Phonemes {
		g, err := t.unit(p.ID)
		if err != nil {
			if t.policy == Fail {
				return "", &UnknownSymbolError{Key: key}
			}
			return "", err
		}
		b.WriteString(g)
	}
	return b.String(), nil
}

func (t *Table) unit(id string) (string, error) {
	if g, ok := t.glyphs[id]; ok {
		return g, nil
	}
	if base := text.StripMarks(id); base != id {
		if g, ok := t.glyphs[base]; ok {
			return g, nil
		}
	}
	if IsPassthrough(id) || t.policy == KeepOriginal {
		return id, nil
	}
	return "", &UnknownSymbolError{Key: id}
}

// IsPassthrough reports whether every rune of key belongs to the
// Passthrough class.
func IsPassthrough(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		if !unicode.In(r, Passthrough...) {
			return false
		}
	}
	return true
}

// ParseCodepoint converts "U+03C5" or "03C5" into the character it names.
func ParseCodepoint(s string) (string, error) {
	cp := strings.ToUpper(strings.TrimSpace(s))
	cp = strings.TrimPrefix(cp, "U+")

	v, err := strconv.ParseUint(cp, 16, 32)
	if err != nil {
		return "", fmt.Errorf("invalid codepoint string %q: %w", s, err)
	}
	if !utf8.ValidRune(rune(v)) {
		return "", fmt.Errorf("codepoint %q is not a valid rune", s)
	}
	return string(rune(v)), nil
}
