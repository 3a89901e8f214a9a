package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/go-translit/internal/phoneme"
)

const (
	DoubleLength      = "double-length"
	NasalMerge        = "nasal-merge"
	StripStress       = "strip-stress"
	TrimTrailingSpace = "trim-trailing-space"
)

const lengthMark = "ː"

var (
	nasals       = map[string]bool{"m": true, "n": true, "ŋ": true, "ɲ": true, "ɱ": true}
	voicedStops  = map[string]bool{"b": true, "d": true, "g": true, "ɡ": true, "ɟ": true}
	builtinRules = map[string]func() Rule{
		DoubleLength:      doubleLength,
		NasalMerge:        nasalMerge,
		StripStress:       stripStress,
		TrimTrailingSpace: trimTrailingSpace,
	}
)

// Builtin returns the built-in rule registered under name.
func Builtin(name string) (Rule, error) {
	mk, ok := builtinRules[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownRule, name, strings.Join(Available(), ", "))
	}
	return mk(), nil
}

// Parse resolves a list of built-in rule names, keeping their order.
// Blank names are skipped.
func Parse(names []string) ([]Rule, error) {
	out := make([]Rule, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		r, err := Builtin(name)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Available lists the built-in rule names in sorted order.
func Available() []string {
	out := make([]string, 0, len(builtinRules))
	for name := range builtinRules {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// doubleLength spells a length mark as a repetition of the preceding unit:
// [X ː] -> [X X].
func doubleLength() Rule {
	return ContextualRule{
		ID:     DoubleLength,
		Window: 1,
		Fn: func(w []phoneme.Symbol) ([]phoneme.Symbol, int) {
			if len(w) < 2 || w[1].Key() != lengthMark {
				return nil, 0
			}
			if w[0].IsBoundary() || w[0].Key() == lengthMark {
				return nil, 0
			}
			repeat := phoneme.NewSymbol(unstressed(w[0].Phonemes)...)
			repeat.Glyph = w[0].Glyph
			return []phoneme.Symbol{w[0], repeat}, 2
		},
	}
}

// nasalMerge joins a nasal with a following stop that agrees in voicing
// into one token, so a table key such as "nd" can pick it up.
func nasalMerge() Rule {
	return ContextualRule{
		ID:     NasalMerge,
		Window: 1,
		Fn: func(w []phoneme.Symbol) ([]phoneme.Symbol, int) {
			if len(w) < 2 || w[0].Glyph != "" || w[1].Glyph != "" {
				return nil, 0
			}
			if !nasals[w[0].Key()] || !voicedStops[w[1].Key()] {
				return nil, 0
			}
			merged := make([]phoneme.Phoneme, 0, w[0].Len()+w[1].Len())
			merged = append(merged, w[0].Phonemes...)
			merged = append(merged, w[1].Phonemes...)
			return []phoneme.Symbol{phoneme.NewSymbol(merged...)}, 2
		},
	}
}

func stripStress() Rule {
	return LocalRule{
		ID: StripStress,
		Fn: func(s phoneme.Symbol) []phoneme.Symbol {
			out := phoneme.NewSymbol(unstressed(s.Phonemes)...)
			out.Glyph = s.Glyph
			return []phoneme.Symbol{out}
		},
	}
}

// trimTrailingSpace drops whitespace at the very end of the stream, which
// can only be known once the stream is exhausted.
func trimTrailingSpace() Rule {
	return ContextualRule{
		ID:     TrimTrailingSpace,
		Window: Unbounded,
		Fn: func(w []phoneme.Symbol) ([]phoneme.Symbol, int) {
			end := len(w)
			for end > 0 && w[end-1].IsBoundary() {
				end--
			}
			if end == len(w) {
				return nil, 0
			}
			return w[:end], len(w)
		},
	}
}

func unstressed(ps []phoneme.Phoneme) []phoneme.Phoneme {
	out := make([]phoneme.Phoneme, len(ps))
	for i, p := range ps {
		out[i] = p.Stressed(phoneme.None)
	}
	return out
}
