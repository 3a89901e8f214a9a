// Package rules holds the context-sensitive rewrite stage of the pipeline:
// the Rule variants, the built-in rule registry and the Engine that applies
// an ordered rule list to a streaming token buffer.
package rules

import (
	"errors"
	"fmt"

	"github.com/example/go-translit/internal/phoneme"
)

// Unbounded is the lookahead of a rule that needs the whole remaining
// input. Such a rule fires once, at end of stream.
const Unbounded = -1

var (
	ErrUnknownRule = errors.New("rules: unknown rule")
	ErrInvalidRule = errors.New("rules: invalid rule")
)

// Rule is either a LocalRule or a ContextualRule.
type Rule interface {
	Name() string
	// Lookahead is the number of tokens after the focus the rule needs to
	// see before it can decide, or Unbounded.
	Lookahead() int

	rule()
}

// LocalRule rewrites one token at a time without context. The returned
// sequence replaces the token; an empty sequence deletes it.
type LocalRule struct {
	ID string
	Fn func(phoneme.Symbol) []phoneme.Symbol
}

func (r LocalRule) Name() string   { return r.ID }
func (r LocalRule) Lookahead() int { return 0 }
func (LocalRule) rule()            {}

// ContextualRule inspects a window starting at the focus token. Fn returns
// the replacement for the first consumed tokens of the window; consumed == 0
// means the rule does not match at this position.
//
// The window holds Window+1 tokens, fewer at end of stream. For an
// Unbounded rule it is the whole remaining tail.
type ContextualRule struct {
	ID     string
	Window int
	Fn     func(window []phoneme.Symbol) (out []phoneme.Symbol, consumed int)
}

func (r ContextualRule) Name() string   { return r.ID }
func (r ContextualRule) Lookahead() int { return r.Window }
func (ContextualRule) rule()            {}

// Validate reports a rule that the Engine cannot run.
func Validate(r Rule) error {
	switch r := r.(type) {
	case LocalRule:
		if r.Fn == nil {
			return fmt.Errorf("%w: %q has no function", ErrInvalidRule, r.ID)
		}
	case ContextualRule:
		if r.Fn == nil {
			return fmt.Errorf("%w: %q has no function", ErrInvalidRule, r.ID)
		}
		if r.Window < 0 && r.Window != Unbounded {
			return fmt.Errorf("%w: %q has lookahead %d", ErrInvalidRule, r.ID, r.Window)
		}
	case nil:
		return fmt.Errorf("%w: nil rule", ErrInvalidRule)
	default:
		return fmt.Errorf("%w: unsupported variant %T", ErrInvalidRule, r)
	}
	return nil
}

// Names returns the name of each rule in order.
func Names(rs []Rule) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name()
	}
	return out
}
