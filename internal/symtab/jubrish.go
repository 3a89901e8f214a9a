package symtab

import "fmt"

const PresetJubrish = "jubrish"

// JubrishStressMark is the combining acute Jubrish writes after stressed vowels.
const JubrishStressMark = "\u0301"

var presets = map[string]func(...Option) (*Table, error){
	PresetJubrish: Jubrish,
}

// jubrishCodepoints is the Jubrish alphabet: IPA unit → glyph code point.
var jubrishCodepoints = map[string]string{
	"b":  "U+A7FA",
	"c":  "U+03E5",
	"tʃ": "U+444",
	"ʃ":  "U+64",
	"ð":  "U+1D91",
	"θ":  "U+257",
	"d":  "U+0271",
	"f":  "U+211C",
	"g":  "U+0563",
	"h":  "U+286",
	"dʒ": "U+0282",
	"ʒ":  "U+73",
	"l":  "U+3B6",
	"m":  "U+05E2",
	"n":  "U+27F",
	"ŋ":  "U+1D77",
	"p":  "U+77",
	"r":  "U+3B3",
	"s":  "U+292",
	"t":  "U+6D",
	"v":  "U+21D",
	"w":  "U+1BF",
	"j":  "U+028E",
	"z":  "U+293",
	"ə":  "U+2202",
	"əw": "U+294",
	"ɛ":  "U+441",
	"ɛj": "U+465",
	"ɔ":  "U+296",
	"ɔw": "U+295",
	"o":  "U+6F",
	"oj": "U+3ED",
	"a":  "U+19E",
	"aw": "U+1AA",
	"ɑ":  "U+3B4",
	"ɑj": "U+490",
	"ɪ":  "U+44C",
	"ɪj": "U+3D2",
	"ʉ":  "U+3C6",
	"ʌ":  "U+3C5",
}

// Jubrish returns the built-in Jubrish table. Stressed symbols carry
// JubrishStressMark unless opts override it.
func Jubrish(opts ...Option) (*Table, error) {
	glyphs := make(map[string]string, len(jubrishCodepoints))
	for key, cp := range jubrishCodepoints {
		g, err := ParseCodepoint(cp)
		if err != nil {
			return nil, fmt.Errorf("jubrish %q: %w", key, err)
		}
		glyphs[key] = g
	}
	base := []Option{WithStressMark(JubrishStressMark)}
	return New(PresetJubrish, glyphs, append(base, opts...)...)
}
