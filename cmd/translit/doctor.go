package main

import (
	"errors"
	"fmt"

	"github.com/example/go-translit/internal/doctor"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	var skipSpeech bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check espeak-ng, the symbol table and the pronunciation dictionary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			sp := newSpeaker(cfg.Speech)
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "table: %s  method: %s  rules: %v\n", cfg.Translit.Table, cfg.Translit.Method, cfg.Translit.Rules)

			result := doctor.Run(doctor.Config{
				EspeakVersion: func() (string, error) {
					ver, err := sp.Version(cmd.Context())
					if err != nil {
						return "", fmt.Errorf("%s --version failed: %w", sp.Executable(), err)
					}
					return ver, nil
				},
				SkipEspeak:     skipSpeech,
				DictionaryPath: cfg.Lexicon.DictPath,
				Table:          cfg.Translit.Table,
				StressMark:     cfg.Translit.StressMark,
			}, out)

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "doctor checks passed")

			return nil
		},
	}

	cmd.Flags().BoolVar(&skipSpeech, "skip-speech", false, "Skip the espeak-ng check")

	return cmd
}
