// Package speech renders text to audio with the espeak-ng command line
// synthesizer.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/example/go-translit/internal/audio"
	"github.com/example/go-translit/internal/config"
	"github.com/example/go-translit/internal/text"
)

const (
	DefaultExecutable    = "espeak-ng"
	DefaultVoice         = "en-us"
	DefaultMaxChunkChars = 220
)

// Runner executes name with args, feeding stdin, and returns its stdout.
type Runner func(ctx context.Context, name string, args []string, stdin string) ([]byte, error)

type Synthesizer struct {
	exe           string
	voice         string
	maxChunkChars int
	dsp           audio.DSPOptions
	run           Runner
	logger        *slog.Logger
}

type Option func(*Synthesizer)

// WithExecutable sets the espeak-ng binary path. Empty keeps the default.
func WithExecutable(path string) Option {
	return func(s *Synthesizer) {
		if strings.TrimSpace(path) != "" {
			s.exe = path
		}
	}
}

// WithVoice sets the voice used when a call does not name one.
func WithVoice(voice string) Option {
	return func(s *Synthesizer) {
		if strings.TrimSpace(voice) != "" {
			s.voice = voice
		}
	}
}

// WithDSP sets the post-processing applied to every rendered clip.
func WithDSP(o audio.DSPOptions) Option {
	return func(s *Synthesizer) { s.dsp = o }
}

// WithMaxChunkChars bounds the size of each sentence chunk sent to espeak-ng.
func WithMaxChunkChars(n int) Option {
	return func(s *Synthesizer) { s.maxChunkChars = n }
}

func WithRunner(r Runner) Option {
	return func(s *Synthesizer) { s.run = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Synthesizer) { s.logger = l }
}

func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		exe:           DefaultExecutable,
		voice:         DefaultVoice,
		maxChunkChars: DefaultMaxChunkChars,
		run:           execRunner,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromConfig builds a Synthesizer from the speech configuration section.
func FromConfig(cfg config.SpeechConfig, opts ...Option) *Synthesizer {
	base := []Option{
		WithExecutable(cfg.EspeakPath),
		WithVoice(cfg.Voice),
		WithDSP(audio.DSPOptions{
			Normalize: cfg.Normalize,
			DCBlock:   cfg.DCBlock,
			FadeInMS:  cfg.FadeInMS,
			FadeOutMS: cfg.FadeOutMS,
		}),
	}
	return New(append(base, opts...)...)
}

func (s *Synthesizer) Executable() string { return s.exe }
func (s *Synthesizer) Voice() string      { return s.voice }

// Synthesize renders one piece of text without chunking or post-processing.
func (s *Synthesizer) Synthesize(ctx context.Context, input, voice string) (audio.Clip, error) {
	if strings.TrimSpace(input) == "" {
		return audio.Clip{}, text.ErrEmptyText
	}
	if strings.TrimSpace(voice) == "" {
		voice = s.voice
	}

	dir, err := os.MkdirTemp("", "translit-speech-")
	if err != nil {
		return audio.Clip{}, fmt.Errorf("create speech workspace: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	// espeak-ng cannot patch the RIFF sizes when writing to a pipe, so the
	// WAV goes to a file instead of stdout.
	out := filepath.Join(dir, "speech.wav")
	args := []string{"-v", voice, "-w", out, "--stdin"}
	if _, err := s.run(ctx, s.exe, args, input); err != nil {
		return audio.Clip{}, err
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("read espeak-ng output: %w", err)
	}
	return audio.DecodeWAV(data)
}

// SynthesizeChunks splits input into sentences, renders them in order and
// joins the clips.
func (s *Synthesizer) SynthesizeChunks(ctx context.Context, input, voice string) (audio.Clip, error) {
	normalized, err := text.Normalize(input)
	if err != nil {
		return audio.Clip{}, err
	}

	chunks := text.ChunkBySentence(normalized, s.maxChunkChars)
	clips := make([]audio.Clip, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return audio.Clip{}, err
		}
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		clip, err := s.Synthesize(ctx, chunk, voice)
		if err != nil {
			return audio.Clip{}, fmt.Errorf("chunk %d synthesis failed: %w", i+1, err)
		}
		clips = append(clips, clip)
	}
	if len(clips) == 0 {
		return audio.Clip{}, text.ErrEmptyText
	}
	return audio.Concat(clips...)
}

// Speak renders input to WAV bytes, applying the configured post-processing.
func (s *Synthesizer) Speak(ctx context.Context, input, voice string) ([]byte, error) {
	clip, err := s.SynthesizeChunks(ctx, input, voice)
	if err != nil {
		return nil, err
	}
	if s.dsp.Enabled() {
		clip = s.dsp.Process(clip)
	}
	s.logger.Debug("speech rendered",
		slog.Int("text_len", len(input)),
		slog.Int("samples", len(clip.Samples)),
		slog.Int("sample_rate", clip.SampleRate),
	)
	return audio.EncodeWAV(clip)
}

// Version returns the first line of `espeak-ng --version`.
func (s *Synthesizer) Version(ctx context.Context) (string, error) {
	out, err := s.run(ctx, s.exe, []string{"--version"}, "")
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	if line == "" {
		return "", fmt.Errorf("%s --version printed nothing", s.exe)
	}
	return strings.TrimSpace(line), nil
}

// MapError adds a hint to errors from a failed espeak-ng invocation.
func MapError(err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("speech failed: espeak-ng executable not found; set --espeak-path or TRANSLIT_SPEECH_ESPEAK_PATH: %w", err)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("speech failed: espeak-ng returned non-zero exit: %w", err)
	}

	return err
}

func execRunner(ctx context.Context, name string, args []string, stdin string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(stdin)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out.Bytes(), nil
}
