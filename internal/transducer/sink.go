package transducer

import (
	"bufio"
	"io"
	"strings"
)

// Sink receives glyphs in emission order. Flush is called after each
// batch of committed tokens and once more when the stream is done.
type Sink interface {
	Write(glyph string) error
	Flush() error
}

// WriterSink buffers glyphs in front of an io.Writer. If the writer can
// itself be flushed (an http.ResponseWriter, for example) it is flushed
// along with the buffer.
type WriterSink struct {
	w     io.Writer
	buf   *bufio.Writer
	total int
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w, buf: bufio.NewWriter(w)}
}

func (s *WriterSink) Write(glyph string) error {
	n, err := s.buf.WriteString(glyph)
	s.total += n
	return err
}

func (s *WriterSink) Flush() error {
	if err := s.buf.Flush(); err != nil {
		return err
	}
	switch f := s.w.(type) {
	case interface{ Flush() error }:
		return f.Flush()
	case interface{ Flush() }:
		f.Flush()
	}
	return nil
}

// Written returns the number of bytes accepted so far.
func (s *WriterSink) Written() int { return s.total }

// StringSink collects glyphs in memory.
type StringSink struct {
	b       strings.Builder
	flushes int
}

func (s *StringSink) Write(glyph string) error {
	s.b.WriteString(glyph)
	return nil
}

func (s *StringSink) Flush() error {
	s.flushes++
	return nil
}

func (s *StringSink) String() string { return s.b.String() }

// Flushes returns how often Flush was called.
func (s *StringSink) Flushes() int { return s.flushes }
