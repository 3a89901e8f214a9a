// Package transducer drives the streaming pipeline: it pulls chunks from a
// Source, lexes and groups them into symbols, runs the rule engine over the
// buffered tokens and writes the glyphs of every committed token to a Sink.
package transducer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/example/go-translit/internal/rules"
	"github.com/example/go-translit/internal/symtab"
	"github.com/example/go-translit/internal/tokenizer"
)

// Transducer holds the read-only configuration shared by all sessions.
// It is safe for concurrent use; every call to NewSession gets its own
// buffer and rule cursors.
type Transducer struct {
	table     *symtab.Table
	tok       *tokenizer.Tokenizer
	rules     []rules.Rule
	method    tokenizer.Method
	chunkSize int
	softLimit int
	logger    *slog.Logger
}

// Option configures a Transducer.
type Option func(*Transducer)

// WithMethod selects the tokenizer grouping method (default max).
func WithMethod(m tokenizer.Method) Option {
	return func(t *Transducer) { t.method = m }
}

// WithRules sets the ordered rule list.
func WithRules(rs ...rules.Rule) Option {
	return func(t *Transducer) { t.rules = append([]rules.Rule(nil), rs...) }
}

// WithChunkSize sets the read size used by Transliterate.
func WithChunkSize(n int) Option {
	return func(t *Transducer) { t.chunkSize = n }
}

// WithBufferSoftLimit sets the buffered token count above which a session
// that cannot commit logs a warning. Zero disables the check.
func WithBufferSoftLimit(n int) Option {
	return func(t *Transducer) { t.softLimit = n }
}

// WithLogger sets the logger for session traces.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transducer) {
		if l != nil {
			t.logger = l
		}
	}
}

// New validates the configuration against table. An unsupported method is
// reported here, never mid-stream.
func New(table *symtab.Table, opts ...Option) (*Transducer, error) {
	if table == nil {
		return nil, errors.New("transducer: nil symbol table")
	}
	t := &Transducer{
		table:     table,
		method:    tokenizer.Max,
		chunkSize: DefaultChunkSize,
		softLimit: 1024,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.chunkSize <= 0 {
		return nil, fmt.Errorf("transducer: chunk size must be > 0, got %d", t.chunkSize)
	}
	if t.softLimit < 0 {
		return nil, fmt.Errorf("transducer: buffer soft limit must be >= 0, got %d", t.softLimit)
	}
	tok, err := tokenizer.New(t.method, table)
	if err != nil {
		return nil, err
	}
	t.tok = tok
	t.method = tok.Method()
	if _, err := rules.NewEngine(t.rules); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Transducer) Table() *symtab.Table     { return t.table }
func (t *Transducer) Method() tokenizer.Method { return t.method }
func (t *Transducer) ChunkSize() int           { return t.chunkSize }
func (t *Transducer) Rules() []rules.Rule      { return append([]rules.Rule(nil), t.rules...) }
func (t *Transducer) BufferSoftLimit() int     { return t.softLimit }

// NewSession starts a session in the Reading state.
func (t *Transducer) NewSession(src Source, sink Sink) *Session {
	// Rules were validated in New.
	engine, _ := rules.NewEngine(t.rules, rules.WithLogger(t.logger))
	return &Session{
		t:       t,
		src:     src,
		sink:    sink,
		grouper: t.tok.NewGrouper(),
		engine:  engine,
		logger:  t.logger,
	}
}

// Run transliterates src into sink in a fresh session.
func (t *Transducer) Run(ctx context.Context, src Source, sink Sink) (Stats, error) {
	s := t.NewSession(src, sink)
	err := s.Run(ctx)
	return s.Stats(), err
}

// Transliterate streams r to w in chunks of the configured size.
func (t *Transducer) Transliterate(ctx context.Context, r io.Reader, w io.Writer) (Stats, error) {
	return t.Run(ctx, NewReaderSource(r, t.chunkSize), NewWriterSink(w))
}

// TransliterateString is the one-shot form of Transliterate.
func (t *Transducer) TransliterateString(ctx context.Context, ipa string) (string, error) {
	var sink StringSink
	if _, err := t.Run(ctx, NewReaderSource(strings.NewReader(ipa), t.chunkSize), &sink); err != nil {
		return "", err
	}
	return sink.String(), nil
}
