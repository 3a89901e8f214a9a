package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/example/go-translit/internal/translit"
	"github.com/spf13/cobra"
)

func newTranslateCmd() *cobra.Command {
	var text string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "translate [words...]",
		Short: "Look words up in the pronunciation dictionary and transliterate them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if text == "" && len(args) > 0 {
				text = strings.Join(args, " ")
			}
			input, err := readText(text, cmd.InOrStdin())
			if err != nil {
				return err
			}

			svc, err := translit.NewService(cfg)
			if err != nil {
				return err
			}
			res, err := svc.Translate(cmd.Context(), input)
			if err != nil {
				return err
			}
			if len(res.Missing) > 0 {
				slog.Warn("words missing from pronunciation dictionary",
					"missing", res.Missing,
					"dict", cfg.Lexicon.DictPath,
				)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(res)
			}
			_, err = fmt.Fprintln(out, res.Glyphs)
			return err
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to translate (if empty, use arguments or stdin)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result (IPA, glyphs, missing words) as JSON")

	return cmd
}

// readText returns text, or all of stdin when text is blank.
func readText(text string, stdin io.Reader) (string, error) {
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	input := strings.TrimSpace(string(b))
	if input == "" {
		return "", fmt.Errorf("either provide --text or pipe text on stdin")
	}
	return input, nil
}
