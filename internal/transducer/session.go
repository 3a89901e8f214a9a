package transducer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/example/go-translit/internal/phoneme"
	"github.com/example/go-translit/internal/rules"
	"github.com/example/go-translit/internal/tokenizer"
)

// State is the lifecycle position of a Session.
type State uint8

const (
	Reading State = iota
	Draining
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Reading:
		return "reading"
	case Draining:
		return "draining"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Stats counts a session's progress.
type Stats struct {
	Chunks  int // chunks read from the source
	Bytes   int // input bytes read
	Tokens  int // tokens emitted
	Glyphs  int // output bytes written
	Flushes int
}

// Session transliterates one stream. It is not safe for concurrent use.
type Session struct {
	t       *Transducer
	src     Source
	sink    Sink
	lexer   phoneme.Lexer
	grouper *tokenizer.Grouper
	engine  *rules.Engine
	logger  *slog.Logger

	state  State
	buf    []phoneme.Symbol
	eos    bool
	warned bool
	stats  Stats
}

func (s *Session) State() State { return s.state }
func (s *Session) Stats() Stats { return s.stats }

// Buffered returns the number of tokens waiting for enough lookahead.
func (s *Session) Buffered() int { return len(s.buf) }

// Run pulls the source dry and returns once the session is Done or
// Aborted. Output already written to the sink is never retracted and is
// flushed even when the session aborts. On cancellation the buffer is
// discarded and ctx.Err() is returned.
func (s *Session) Run(ctx context.Context) error {
	if s.state != Reading {
		return fmt.Errorf("transducer: session is %s", s.state)
	}

	for s.state == Reading {
		if err := ctx.Err(); err != nil {
			return s.abort(err)
		}
		chunk, err := s.src.Next(ctx)
		if err != nil && !errors.Is(err, io.EOF) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return s.abort(ctxErr)
			}
			return s.abort(err)
		}
		if chunk != "" {
			s.stats.Chunks++
			s.stats.Bytes += len(chunk)
			if perr := s.step(s.lexer.Feed(chunk)); perr != nil {
				return s.abort(perr)
			}
		}
		if err != nil || chunk == "" {
			s.state = Draining
		}
	}

	s.eos = true
	if err := s.step(s.lexer.Close()); err != nil {
		return s.abort(err)
	}
	if err := s.flush(); err != nil {
		return s.abort(err)
	}
	s.state = Done
	s.logger.Debug("session done",
		"chunks", s.stats.Chunks,
		"bytes", s.stats.Bytes,
		"tokens", s.stats.Tokens,
	)
	return nil
}

// step groups ps, runs the rules and emits every committed token.
func (s *Session) step(ps []phoneme.Phoneme) error {
	symbols, err := s.grouper.Push(ps, s.eos)
	if err != nil {
		return err
	}
	s.buf = append(s.buf, symbols...)

	out, commit, err := s.engine.Apply(s.buf, s.eos)
	if err != nil {
		return err
	}
	for _, sym := range out[:commit] {
		glyph, err := s.t.table.GlyphOf(sym)
		if err != nil {
			return err
		}
		if err := s.sink.Write(glyph); err != nil {
			return fmt.Errorf("transducer: write: %w", err)
		}
		s.stats.Tokens++
		s.stats.Glyphs += len(glyph)
	}
	s.buf = out[commit:]

	if commit > 0 {
		s.logger.Debug("commit", "tokens", commit, "buffered", len(s.buf))
		if !s.eos {
			return s.flush()
		}
		return nil
	}
	if limit := s.t.softLimit; limit > 0 && len(s.buf) > limit && !s.warned {
		s.warned = true
		s.logger.Warn("buffer exceeds soft limit with nothing committable",
			"buffered", len(s.buf),
			"soft_limit", limit,
			"rules", rules.Names(s.t.rules),
		)
	}
	return nil
}

func (s *Session) flush() error {
	s.stats.Flushes++
	if err := s.sink.Flush(); err != nil {
		return fmt.Errorf("transducer: flush: %w", err)
	}
	return nil
}

// abort drops the uncommitted buffer and pushes glyphs that were already
// emitted out of the sink.
func (s *Session) abort(err error) error {
	s.state = Aborted
	s.buf = nil
	if ferr := s.flush(); ferr != nil {
		s.logger.Debug("flush after abort failed", "error", ferr)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Debug("session cancelled", "error", err, "tokens", s.stats.Tokens)
	} else {
		s.logger.Error("session aborted", "error", err, "tokens", s.stats.Tokens)
	}
	return err
}
