package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/go-translit/internal/translit"
	"github.com/spf13/cobra"
)

func newTransliterateCmd() *cobra.Command {
	var text string
	var in string
	var out string

	cmd := &cobra.Command{
		Use:     "transliterate",
		Aliases: []string{"tr"},
		Short:   "Convert IPA to glyphs, streaming stdin to stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			svc, err := translit.NewService(cfg)
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			switch {
			case text != "":
				r = strings.NewReader(text)
			case in != "" && in != "-":
				f, err := os.Open(in)
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer func() { _ = f.Close() }()
				r = f
			}

			w, closeOut, err := openOutput(out, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			_, err = svc.Transliterate(cmd.Context(), r, w)
			if err == nil && text != "" {
				_, err = fmt.Fprintln(w)
			}
			if closeErr := closeOut(); err == nil {
				err = closeErr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "IPA to convert (if empty, read --in or stdin)")
	cmd.Flags().StringVar(&in, "in", "", "Input file ('-' for stdin)")
	cmd.Flags().StringVar(&out, "out", "-", "Output file ('-' for stdout)")

	return cmd
}

// openOutput returns stdout for "-" or an empty path, otherwise a created
// file. The returned func closes the file.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		if stdout == nil {
			return nil, nil, fmt.Errorf("stdout writer is nil")
		}
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}
