package phoneme

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Stress marks recognised by the lexer. They never become phonemes
// themselves; they set the stress of the phoneme that follows.
const (
	PrimaryMark   = 'ˈ'
	SecondaryMark = 'ˌ'
)

// Tie bars join the units on either side into a single phoneme (t͡ʃ).
const (
	tieAbove = '͡'
	tieBelow = '͜'
)

// Lexer splits IPA text into phonemes incrementally. A phoneme is a base
// rune followed by its combining marks; modifier letters such as ː or ʰ
// are units of their own and left for the tokenizer to group.
//
// The last unit of a chunk is held back because combining marks for it
// may still arrive with the next chunk. Close releases it.
type Lexer struct {
	pending       []rune
	pendingStress Stress
	stress        Stress
}

// Parse lexes a complete string.
func Parse(s string) []Phoneme {
	var l Lexer
	out := l.Feed(s)
	return append(out, l.Close()...)
}

// Feed consumes a chunk and returns every phoneme that is complete.
func (l *Lexer) Feed(chunk string) []Phoneme {
	var out []Phoneme

	for _, r := range chunk {
		switch {
		case r == PrimaryMark || r == SecondaryMark:
			out = l.release(out)
			if r == PrimaryMark {
				l.stress = Primary
			} else {
				l.stress = Secondary
			}
		case unicode.In(r, unicode.Mn, unicode.Me):
			if len(l.pending) == 0 {
				l.start(r)
				continue
			}
			l.pending = append(l.pending, r)
		case l.tied():
			l.pending = append(l.pending, r)
		default:
			out = l.release(out)
			l.start(r)
		}
	}

	return out
}

// Close returns the held-back phoneme, if any. A dangling stress mark
// with no phoneme after it is dropped.
func (l *Lexer) Close() []Phoneme {
	out := l.release(nil)
	l.stress = None
	return out
}

// Pending reports whether the lexer holds input that Close would release.
func (l *Lexer) Pending() bool { return len(l.pending) > 0 }

func (l *Lexer) start(r rune) {
	l.pending = append(l.pending[:0], r)
	if unicode.IsSpace(r) {
		l.pendingStress = None
		return
	}
	l.pendingStress = l.stress
	l.stress = None
}

func (l *Lexer) tied() bool {
	if len(l.pending) == 0 {
		return false
	}
	last := l.pending[len(l.pending)-1]
	return last == tieAbove || last == tieBelow
}

func (l *Lexer) release(out []Phoneme) []Phoneme {
	if len(l.pending) == 0 {
		return out
	}
	p := Phoneme{ID: norm.NFC.String(string(l.pending)), Stress: l.pendingStress}
	l.pending = l.pending[:0]
	l.pendingStress = None
	return append(out, p)
}
