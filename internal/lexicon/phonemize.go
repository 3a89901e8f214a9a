package lexicon

import (
	"strings"

	"github.com/example/go-translit/internal/text"
)

// Segment is one unit of looked-up text. Found segments carry IPA;
// missing ones only the word.
type Segment struct {
	Word  string `json:"word"`
	IPA   string `json:"ipa,omitempty"`
	Found bool   `json:"found"`
}

// Phonemize looks up the pronunciation of s. The whole normalised text is
// tried first, so multi-word entries win; otherwise every word is looked
// up on its own. Words without an entry are returned with Found unset.
func (d *Dictionary) Phonemize(s string) []Segment {
	whole := text.NormalizeWord(s)
	if whole == "" {
		return nil
	}
	if ipa, ok := d.Lookup(whole); ok {
		return []Segment{{Word: whole, IPA: ipa, Found: true}}
	}

	words := text.Words(whole)
	out := make([]Segment, 0, len(words))
	for _, w := range words {
		ipa, ok := d.Lookup(w)
		out = append(out, Segment{Word: w, IPA: ipa, Found: ok})
	}
	return out
}

// Missing returns the words of segs that had no entry, in order.
func Missing(segs []Segment) []string {
	var out []string
	for _, s := range segs {
		if !s.Found {
			out = append(out, s.Word)
		}
	}
	return out
}

// IPA joins the pronunciations of segs with single spaces, keeping missing
// words as they are.
func IPA(segs []Segment) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		if s.Found {
			parts[i] = s.IPA
		} else {
			parts[i] = s.Word
		}
	}
	return strings.Join(parts, " ")
}
