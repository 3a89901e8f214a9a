package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/example/go-translit/internal/config"
	"github.com/example/go-translit/internal/speech"
	"github.com/spf13/cobra"
)

// newSpeaker builds the synthesizer used by speak; tests replace it.
var newSpeaker = func(cfg config.SpeechConfig, opts ...speech.Option) *speech.Synthesizer {
	return speech.FromConfig(cfg, opts...)
}

func newSpeakCmd() *cobra.Command {
	var text string
	var out string
	var maxChunkChars int

	cmd := &cobra.Command{
		Use:   "speak",
		Short: "Read text aloud with espeak-ng and write a WAV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			input, err := readText(text, cmd.InOrStdin())
			if err != nil {
				return err
			}

			sp := newSpeaker(cfg.Speech, speech.WithMaxChunkChars(maxChunkChars))
			wav, err := speak(cmd.Context(), sp, input)
			if err != nil {
				return err
			}
			return writeWAV(out, wav, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to speak (if empty, read from stdin)")
	cmd.Flags().StringVar(&out, "out", "out.wav", "Output WAV path ('-' for stdout)")
	cmd.Flags().IntVar(&maxChunkChars, "max-chunk-chars", speech.DefaultMaxChunkChars, "Maximum characters per sentence chunk (0 disables chunking)")

	return cmd
}

func speak(ctx context.Context, sp *speech.Synthesizer, input string) ([]byte, error) {
	wav, err := sp.Speak(ctx, input, "")
	if err != nil {
		return nil, speech.MapError(err)
	}
	return wav, nil
}

func writeWAV(outPath string, wavData []byte, stdout io.Writer) error {
	if outPath == "-" {
		if stdout == nil {
			return fmt.Errorf("stdout writer is nil")
		}
		_, err := stdout.Write(wavData)
		return err
	}
	return os.WriteFile(outPath, wavData, 0o644)
}
