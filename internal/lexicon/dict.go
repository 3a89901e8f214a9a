// Package lexicon is the pronunciation source: a word → IPA dictionary
// loaded from CSV, and the text-to-IPA lookup built on it.
package lexicon

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/example/go-translit/internal/text"
)

// Dictionary maps normalised words to IPA. It is read-only after loading
// and safe for concurrent lookups.
type Dictionary struct {
	entries map[string]string
}

// New creates an empty dictionary.
func New() *Dictionary {
	return &Dictionary{entries: make(map[string]string)}
}

// Add records the pronunciation of word. The word is normalised with
// text.NormalizeWord and the IPA compacted; later entries replace earlier
// ones. Empty words or pronunciations are ignored.
func (d *Dictionary) Add(word, ipa string) {
	word = text.NormalizeWord(word)
	ipa = text.CompactIPA(strings.TrimSpace(ipa))
	if word == "" || ipa == "" {
		return
	}
	d.entries[word] = ipa
}

// Load reads a two-column CSV: word (optionally followed by "▶") and IPA.
// Rows with fewer than two columns are skipped, as is a header row whose
// second column is "ipa".
func Load(r io.Reader) (*Dictionary, error) {
	d := New()
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) < 2 {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[1]), "ipa") {
			continue
		}
		d.Add(row[0], row[1])
	}

	return d, nil
}

// LoadFile is a convenience wrapper that opens a file path.
func LoadFile(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load dictionary %s: %w", path, err)
	}
	return d, nil
}

// Lookup returns the IPA for word, normalising it first.
func (d *Dictionary) Lookup(word string) (string, bool) {
	if d == nil {
		return "", false
	}
	ipa, ok := d.entries[text.NormalizeWord(word)]
	return ipa, ok
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Words returns all words in sorted order.
func (d *Dictionary) Words() []string {
	if d == nil {
		return nil
	}
	words := make([]string, 0, len(d.entries))
	for w := range d.entries {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}
