// Package tokenizer groups phoneme streams into symbols by greedily
// extending a window while it stays a key of the symbol table.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/go-translit/internal/phoneme"
)

// ErrUnsupportedMethod is matched by every UnsupportedMethodError.
var ErrUnsupportedMethod = errors.New("tokenizer: unsupported method")

// UnsupportedMethodError names a grouping method that is neither max nor min.
type UnsupportedMethodError struct {
	Value string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("tokenizer: unsupported method %q (expected %s|%s)", e.Value, Max, Min)
}

func (e *UnsupportedMethodError) Is(target error) bool {
	return target == ErrUnsupportedMethod
}

// Method selects the grouping strategy.
type Method string

const (
	// Max extends each symbol while the extension is still a key.
	Max Method = "max"
	// Min makes every phoneme its own symbol.
	Min Method = "min"
)

// ParseMethod validates a method name. An empty value selects Max.
func ParseMethod(raw string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return Max, nil
	case Max, Min:
		return m, nil
	default:
		return "", &UnsupportedMethodError{Value: raw}
	}
}

// Vocabulary is the part of a symbol table the tokenizer consults.
type Vocabulary interface {
	// Has reports whether key maps to a glyph.
	Has(key string) bool
	// IsPrefix reports whether key is a proper prefix of a longer key.
	IsPrefix(key string) bool
}

// Tokenizer is a stateless, reusable grouping configuration.
type Tokenizer struct {
	method Method
	vocab  Vocabulary
}

// New returns a Tokenizer for method over vocab.
func New(method Method, vocab Vocabulary) (*Tokenizer, error) {
	m, err := ParseMethod(string(method))
	if err != nil {
		return nil, err
	}
	if m == Max && vocab == nil {
		return nil, errors.New("tokenizer: max method needs a vocabulary")
	}
	return &Tokenizer{method: m, vocab: vocab}, nil
}

// Method returns the configured grouping method.
func (t *Tokenizer) Method() Method { return t.method }

// Group groups a complete phoneme sequence. Every phoneme ends up in
// exactly one symbol, in order. The only error is a phoneme with an empty
// ID, reported as phoneme.ErrMalformedToken.
func (t *Tokenizer) Group(ps []phoneme.Phoneme) ([]phoneme.Symbol, error) {
	if err := validate(ps); err != nil {
		return nil, err
	}
	out, _ := t.group(nil, ps, true)
	return out, nil
}

func validate(ps []phoneme.Phoneme) error {
	for i, p := range ps {
		if p.ID == "" {
			return fmt.Errorf("tokenizer: phoneme %d: %w", i, phoneme.ErrMalformedToken)
		}
	}
	return nil
}

// group appends the symbols that can be decided from ps to out and
// returns the number of phonemes consumed. Without eos a trailing window
// that could still grow into a longer key is left unconsumed.
func (t *Tokenizer) group(out []phoneme.Symbol, ps []phoneme.Phoneme, eos bool) ([]phoneme.Symbol, int) {
	i := 0
	for i < len(ps) {
		n := t.next(ps[i:], eos)
		if n == 0 {
			break
		}
		out = append(out, phoneme.NewSymbol(ps[i:i+n]...))
		i += n
	}
	return out, i
}

// next returns the length of the symbol starting at ps[0], or 0 when more
// input is needed to decide. The window grows one phoneme at a time while
// the grown window is itself a key; the first unrecognised extension ends
// it. A window that reaches the end of the available input is held back
// while a longer key could still start with it.
func (t *Tokenizer) next(ps []phoneme.Phoneme, eos bool) int {
	if t.method == Min {
		return 1
	}

	var key strings.Builder
	key.WriteString(ps[0].ID)
	for w := 1; ; w++ {
		if w == len(ps) {
			if !eos && t.vocab.IsPrefix(key.String()) {
				return 0
			}
			return w
		}
		key.WriteString(ps[w].ID)
		if !t.vocab.Has(key.String()) {
			return w
		}
	}
}

// Grouper is the streaming form of Group. It holds back an incomplete
// trailing window until more phonemes arrive or Close is called.
type Grouper struct {
	tok     *Tokenizer
	pending []phoneme.Phoneme
}

// NewGrouper returns a Grouper with an empty hold-back buffer.
func (t *Tokenizer) NewGrouper() *Grouper {
	return &Grouper{tok: t}
}

// Push adds phonemes and returns every symbol that is now decided. With
// eos set the held-back window is resolved with what is available and the
// Grouper is left empty.
func (g *Grouper) Push(ps []phoneme.Phoneme, eos bool) ([]phoneme.Symbol, error) {
	if err := validate(ps); err != nil {
		return nil, err
	}
	g.pending = append(g.pending, ps...)
	out, n := g.tok.group(nil, g.pending, eos)
	g.consume(n)
	return out, nil
}

// Held returns the number of phonemes waiting for more input.
func (g *Grouper) Held() int { return len(g.pending) }

func (g *Grouper) consume(n int) {
	rest := copy(g.pending, g.pending[n:])
	g.pending = g.pending[:rest]
}
