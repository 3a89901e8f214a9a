package rules

import (
	"fmt"
	"log/slog"

	"github.com/example/go-translit/internal/phoneme"
)

// Engine applies an ordered rule list to one session's buffer. It keeps a
// cursor per rule so that no position is offered to the same rule twice;
// an Engine must therefore not be shared between sessions.
type Engine struct {
	rules   []Rule
	cursors []int
	fired   []bool
	logger  *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for rewrite traces.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine validates rs and returns an Engine with every cursor at zero.
func NewEngine(rs []Rule, opts ...EngineOption) (*Engine, error) {
	for _, r := range rs {
		if err := Validate(r); err != nil {
			return nil, err
		}
	}
	e := &Engine{
		rules:   append([]Rule(nil), rs...),
		cursors: make([]int, len(rs)),
		fired:   make([]bool, len(rs)),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Apply runs every rule over the part of buf it is allowed to see and
// returns the rewritten buffer and the commit index. Tokens below the
// commit index are final; the caller must emit and drop them, passing
// only out[commit:] (plus new tokens) to the next call.
//
// Once eos is set every bounded rule sees truncated windows up to the end
// of the buffer, every Unbounded rule fires once over the remaining tail,
// and commit equals len(out).
func (e *Engine) Apply(buf []phoneme.Symbol, eos bool) (out []phoneme.Symbol, commit int, err error) {
	limit := len(buf)
	for r, rule := range e.rules {
		buf, limit, err = e.run(r, rule, buf, limit, eos)
		if err != nil {
			return buf, 0, err
		}
	}

	commit = len(buf)
	if len(e.rules) > 0 {
		commit = e.cursors[len(e.rules)-1]
	}
	if eos {
		commit = len(buf)
	}
	commit = max(commit, 0)

	for r := range e.cursors {
		e.cursors[r] = max(e.cursors[r]-commit, 0)
	}
	return buf, commit, nil
}

// run offers positions [cursor, limit) to rule r and returns the buffer and
// the finalised prefix handed to the next rule.
func (e *Engine) run(r int, rule Rule, buf []phoneme.Symbol, limit int, eos bool) ([]phoneme.Symbol, int, error) {
	la := rule.Lookahead()
	i := e.cursors[r]

	if la == Unbounded {
		if !eos {
			return buf, i, nil
		}
		if e.fired[r] {
			e.cursors[r] = limit
			return buf, limit, nil
		}
		e.fired[r] = true
		var err error
		buf, limit, _, err = e.rewrite(r, rule, buf, i, limit, buf[i:limit])
		if err != nil {
			return buf, limit, err
		}
		e.cursors[r] = limit
		return buf, limit, nil
	}

	for i < limit {
		end := i + la + 1
		if end > limit {
			if !eos {
				break
			}
			end = limit
		}
		var (
			n   int
			err error
		)
		buf, limit, n, err = e.rewrite(r, rule, buf, i, limit, buf[i:end])
		if err != nil {
			return buf, limit, err
		}
		i += n
	}
	e.cursors[r] = i
	return buf, i, nil
}

// rewrite applies rule to window (which starts at buf[i]) and splices the
// result in. It returns the new buffer and limit, and how far the cursor
// advances: past the output after a rewrite, one token otherwise.
func (e *Engine) rewrite(r int, rule Rule, buf []phoneme.Symbol, i, limit int, window []phoneme.Symbol) ([]phoneme.Symbol, int, int, error) {
	if len(window) == 0 {
		return buf, limit, 1, nil
	}

	var (
		out      []phoneme.Symbol
		consumed int
	)
	switch rule := rule.(type) {
	case LocalRule:
		out, consumed = rule.Fn(window[0]), 1
	case ContextualRule:
		out, consumed = rule.Fn(window)
	}
	if consumed <= 0 {
		return buf, limit, 1, nil
	}
	consumed = min(consumed, len(window))

	for _, s := range out {
		if err := s.Validate(); err != nil {
			return buf, limit, 0, fmt.Errorf("rules: %s at %d: %w", rule.Name(), i, err)
		}
	}

	next := make([]phoneme.Symbol, 0, len(buf)-consumed+len(out))
	next = append(next, buf[:i]...)
	next = append(next, out...)
	next = append(next, buf[i+consumed:]...)

	// Earlier rules already passed this region; keep their cursors on the
	// same tokens.
	delta := len(out) - consumed
	for q := 0; q < r; q++ {
		e.cursors[q] += delta
	}

	e.logger.Debug("rule rewrite",
		"rule", rule.Name(),
		"pos", i,
		"consumed", consumed,
		"produced", len(out),
	)
	return next, limit + delta, len(out), nil
}
