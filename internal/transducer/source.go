package transducer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Source yields input text chunk by chunk. Exhaustion is signalled by
// io.EOF or an empty chunk; a chunk may be returned together with io.EOF.
type Source interface {
	Next(ctx context.Context) (string, error)
}

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 256

// ReaderSource reads fixed-size chunks from an io.Reader. A multi-byte
// rune split across reads is held back and prefixed to the next chunk, so
// every chunk it returns ends on a rune boundary.
type ReaderSource struct {
	r    io.Reader
	buf  []byte
	tail []byte
	done bool
}

// NewReaderSource returns a Source reading chunkSize bytes at a time.
// A non-positive chunkSize selects DefaultChunkSize.
func NewReaderSource(r io.Reader, chunkSize int) *ReaderSource {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	// One rune may straddle the boundary.
	return &ReaderSource{r: r, buf: make([]byte, chunkSize, chunkSize+utf8.UTFMax)}
}

func (s *ReaderSource) Next(ctx context.Context) (string, error) {
	for !s.done {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := s.r.Read(s.buf)
		if n > 0 {
			s.tail = append(s.tail, s.buf[:n]...)
		}
		switch {
		case errors.Is(err, io.EOF):
			s.done = true
		case err != nil:
			return "", fmt.Errorf("read input: %w", err)
		}

		cut := completePrefix(s.tail)
		if s.done {
			cut = len(s.tail)
		}
		if cut == 0 {
			continue
		}
		chunk := string(s.tail[:cut])
		s.tail = append(s.tail[:0], s.tail[cut:]...)
		return chunk, nil
	}
	return "", io.EOF
}

// completePrefix returns the length of the longest prefix of b that does
// not end in a truncated UTF-8 sequence. Invalid bytes are passed on.
func completePrefix(b []byte) int {
	end := len(b)
	// Walk back over at most UTFMax-1 continuation bytes to the lead byte.
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if !utf8.FullRune(b[i:]) {
			end = i
		}
		break
	}
	return end
}

// StringSource replays a fixed list of chunks.
type StringSource struct {
	chunks []string
}

// NewStringSource returns a Source yielding chunks in order. Empty chunks
// are skipped so that they do not end the stream early.
func NewStringSource(chunks ...string) *StringSource {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return &StringSource{chunks: out}
}

func (s *StringSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(s.chunks) == 0 {
		return "", io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}
