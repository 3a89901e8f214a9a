// Package translit wires the configured symbol table, rules, tokenizer and
// pronunciation dictionary into the service used by the CLI and the HTTP
// server.
package translit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/example/go-translit/internal/config"
	"github.com/example/go-translit/internal/lexicon"
	"github.com/example/go-translit/internal/rules"
	"github.com/example/go-translit/internal/symtab"
	"github.com/example/go-translit/internal/text"
	"github.com/example/go-translit/internal/tokenizer"
	"github.com/example/go-translit/internal/transducer"
)

// NoStressMark disables the table's stress mark when used as
// translit.stress_mark.
const NoStressMark = "none"

type Service struct {
	tr     *transducer.Transducer
	dict   *lexicon.Dictionary
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used by the service and, through NewService,
// by its transducer. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService builds a Service from cfg. A missing dictionary file is not an
// error: translation then keeps every word as written.
func NewService(cfg config.Config, opts ...Option) (*Service, error) {
	logger := (&Service{logger: slog.Default()}).apply(opts).logger

	table, err := LoadTable(cfg.Translit)
	if err != nil {
		return nil, err
	}

	rs, err := rules.Parse(cfg.Translit.Rules)
	if err != nil {
		return nil, err
	}

	tr, err := transducer.New(table,
		transducer.WithMethod(tokenizer.Method(cfg.Translit.Method)),
		transducer.WithRules(rs...),
		transducer.WithChunkSize(cfg.Translit.ChunkSize),
		transducer.WithBufferSoftLimit(cfg.Translit.BufferSoftLimit),
		transducer.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	dict, err := LoadDictionary(cfg.Lexicon.DictPath)
	if err != nil {
		return nil, err
	}
	if dict.Len() == 0 {
		logger.Warn("pronunciation dictionary is empty", "path", cfg.Lexicon.DictPath)
	}

	return New(tr, dict, WithLogger(logger)), nil
}

// New returns a Service over an existing transducer and dictionary.
// dict may be nil.
func New(tr *transducer.Transducer, dict *lexicon.Dictionary, opts ...Option) *Service {
	if dict == nil {
		dict = lexicon.New()
	}
	s := &Service{tr: tr, dict: dict, logger: slog.Default()}
	return s.apply(opts)
}

func (s *Service) apply(opts []Option) *Service {
	for _, o := range opts {
		o(s)
	}
	return s
}

// LoadTable resolves the configured table and applies the unknown-symbol
// policy and stress mark override.
func LoadTable(cfg config.TranslitConfig) (*symtab.Table, error) {
	policy, err := symtab.ParsePolicy(cfg.OnUnknown)
	if err != nil {
		return nil, err
	}
	opts := []symtab.Option{symtab.WithPolicy(policy)}

	switch mark := strings.TrimSpace(cfg.StressMark); {
	case mark == "":
	case strings.EqualFold(mark, NoStressMark):
		opts = append(opts, symtab.WithStressMark(""))
	default:
		glyph, err := symtab.DecodeGlyph(mark)
		if err != nil {
			return nil, fmt.Errorf("stress mark: %w", err)
		}
		opts = append(opts, symtab.WithStressMark(glyph))
	}

	table, err := symtab.Resolve(cfg.Table, opts...)
	if err != nil {
		return nil, fmt.Errorf("load symbol table: %w", err)
	}
	return table, nil
}

// LoadDictionary loads path, returning an empty dictionary when path is
// empty or does not exist.
func LoadDictionary(path string) (*lexicon.Dictionary, error) {
	if strings.TrimSpace(path) == "" {
		return lexicon.New(), nil
	}
	dict, err := lexicon.LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return lexicon.New(), nil
	}
	return dict, err
}

func (s *Service) Transducer() *transducer.Transducer { return s.tr }
func (s *Service) Table() *symtab.Table               { return s.tr.Table() }
func (s *Service) Dictionary() *lexicon.Dictionary    { return s.dict }

// Transliterate streams IPA from r to glyphs on w.
func (s *Service) Transliterate(ctx context.Context, r io.Reader, w io.Writer) (transducer.Stats, error) {
	return s.tr.Transliterate(ctx, r, w)
}

// TransliterateString converts one IPA string.
func (s *Service) TransliterateString(ctx context.Context, ipa string) (string, error) {
	return s.tr.TransliterateString(ctx, ipa)
}

// Translation is the result of converting orthographic text.
type Translation struct {
	Text     string            `json:"text"`
	IPA      string            `json:"ipa"`
	Glyphs   string            `json:"glyphs"`
	Missing  []string          `json:"missing"`
	Segments []lexicon.Segment `json:"segments"`
}

// Translate looks text up in the dictionary and transliterates the
// pronunciation of every word found. Words without an entry appear in the
// output as written and are listed in Missing.
func (s *Service) Translate(ctx context.Context, input string) (Translation, error) {
	normalized, err := text.Normalize(input)
	if err != nil {
		return Translation{}, err
	}

	segs := s.dict.Phonemize(normalized)
	parts := make([]string, 0, len(segs))
	for _, seg := range segs {
		if !seg.Found {
			parts = append(parts, seg.Word)
			continue
		}
		glyphs, err := s.tr.TransliterateString(ctx, seg.IPA)
		if err != nil {
			return Translation{}, fmt.Errorf("transliterate %q: %w", seg.Word, err)
		}
		parts = append(parts, glyphs)
	}

	missing := lexicon.Missing(segs)
	if missing == nil {
		missing = []string{}
	}
	if len(missing) > 0 {
		s.logger.Debug("words missing from dictionary", "missing", missing)
	}

	return Translation{
		Text:     normalized,
		IPA:      lexicon.IPA(segs),
		Glyphs:   strings.Join(parts, " "),
		Missing:  missing,
		Segments: segs,
	}, nil
}
