package text

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Suprasegmental marks removed by NormalizeIPA.
const (
	LengthMark          = 'ː'
	HalfLengthMark      = 'ˑ'
	PrimaryStressMark   = 'ˈ'
	SecondaryStressMark = 'ˌ'
	ThinSpace           = '\u2009'
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_'’]+`)

// StripMarks decomposes s (NFD) and drops every nonspacing combining
// mark, so "ã" and "a" share a base form.
func StripMarks(s string) string {
	decomposed := norm.NFD.String(s)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

// NormalizeIPA reduces an IPA token to its base form: combining marks,
// length marks and stress marks are removed and surrounding space trimmed.
func NormalizeIPA(token string) string {
	s := StripMarks(token)
	s = strings.Map(func(r rune) rune {
		switch r {
		case LengthMark, HalfLengthMark, PrimaryStressMark, SecondaryStressMark:
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

// CompactIPA joins the space or thin-space separated segments of a
// single dictionary pronunciation into one run, e.g. "t uː" → "tuː".
func CompactIPA(ipa string) string {
	return strings.Map(func(r rune) rune {
		if r == ThinSpace || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, ipa)
}

// Words returns the word-like runs of s: letters, digits, underscores and
// apostrophes. Punctuation and whitespace separate words.
func Words(s string) []string {
	return wordPattern.FindAllString(s, -1)
}
