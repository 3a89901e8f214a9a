package symtab

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var codepointValue = regexp.MustCompile(`^[Uu]\+[0-9A-Fa-f]{1,6}$`)

// tableFile is the on-disk form of a table. JSON documents parse too,
// since JSON is a subset of YAML.
type tableFile struct {
	Name       string            `yaml:"name"`
	StressMark string            `yaml:"stress_mark"`
	Glyphs     map[string]string `yaml:"glyphs"`
}

// Parse reads a YAML or JSON table document. Glyph values of the form
// U+XXXX are decoded to the character they name; anything else is used
// literally.
func Parse(r io.Reader, opts ...Option) (*Table, error) {
	var doc tableFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode symbol table: %w", err)
	}
	if len(doc.Glyphs) == 0 {
		return nil, fmt.Errorf("symbol table %q has no glyphs", doc.Name)
	}

	glyphs := make(map[string]string, len(doc.Glyphs))
	for key, raw := range doc.Glyphs {
		glyph, err := DecodeGlyph(raw)
		if err != nil {
			return nil, fmt.Errorf("glyph for %q: %w", key, err)
		}
		glyphs[key] = glyph
	}

	base := []Option{}
	if doc.StressMark != "" {
		mark, err := DecodeGlyph(doc.StressMark)
		if err != nil {
			return nil, fmt.Errorf("stress mark: %w", err)
		}
		base = append(base, WithStressMark(mark))
	}

	return New(doc.Name, glyphs, append(base, opts...)...)
}

// Load reads a table file from disk. The table name defaults to the
// file's base name when the document does not set one.
func Load(path string, opts ...Option) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open symbol table: %w", err)
	}
	defer func() { _ = f.Close() }()

	t, err := Parse(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if t.name == "" {
		t.name = path
	}
	return t, nil
}

// Resolve returns the built-in preset called ref, or loads ref as a file.
func Resolve(ref string, opts ...Option) (*Table, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		ref = PresetJubrish
	}
	if build, ok := presets[strings.ToLower(ref)]; ok {
		return build(opts...)
	}
	return Load(ref, opts...)
}

// Presets lists the names of the built-in tables.
func Presets() []string {
	return []string{PresetJubrish}
}

// DecodeGlyph decodes a U+XXXX value to the character it names and
// returns any other value unchanged.
func DecodeGlyph(raw string) (string, error) {
	if codepointValue.MatchString(raw) {
		return ParseCodepoint(raw)
	}
	return raw, nil
}
