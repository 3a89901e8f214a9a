package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/go-translit/internal/bench"
	"github.com/example/go-translit/internal/translit"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var (
		text          string
		runs          int
		format        string
		minThroughput float64
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark transliteration latency and throughput",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("--text is required for bench")
			}
			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			svc, err := translit.NewService(cfg)
			if err != nil {
				return err
			}
			results, err := bench.Run(cmd.Context(), svc.Transducer(), text, runs)
			if err != nil {
				return err
			}

			durations := make([]time.Duration, len(results))
			for i, r := range results {
				durations[i] = r.Duration
			}
			stats := bench.ComputeStats(durations)

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				bench.FormatJSON(results, stats, out)
			default:
				bench.FormatTable(results, stats, out)
			}

			return bench.CheckMinThroughput(bench.MeanThroughput(results), minThroughput)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "IPA to transliterate on each run (required)")
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of runs")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().Float64Var(&minThroughput, "min-throughput", 0, "Exit non-zero if mean input bytes/s falls below this value (0 = disabled)")

	return cmd
}
