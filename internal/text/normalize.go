package text

import (
	"errors"
	"strings"
)

// ErrEmptyText is returned when the input text is empty or whitespace-only.
var ErrEmptyText = errors.New("text is empty")

// Normalize prepares raw input text for dictionary lookup.
// It trims surrounding whitespace, normalizes line endings to \n,
// and rejects empty or whitespace-only input.
func Normalize(s string) (string, error) {
	// Normalize line endings: CRLF → LF, then bare CR → LF.
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	s = strings.TrimSpace(s)

	if s == "" {
		return "", ErrEmptyText
	}

	return s, nil
}

// NormalizeWord returns the dictionary key form of a word: trimmed,
// lowercased, with a trailing "▶" play marker removed.
func NormalizeWord(word string) string {
	word = strings.TrimSpace(word)
	word = strings.TrimSuffix(word, "▶")

	return strings.ToLower(strings.TrimSpace(word))
}
