// Package bench provides benchmarking primitives for the translit bench command.
package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/example/go-translit/internal/transducer"
)

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing and stream counters for a single run.
type RunResult struct {
	Index      int
	Cold       bool // true for the first run (cold-start)
	Duration   time.Duration
	Bytes      int // input bytes
	Glyphs     int // output bytes
	Throughput float64
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// ComputeStats calculates min, max and mean over a slice of durations.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}
	mn, mx := durations[0], durations[0]
	var sum time.Duration
	for _, d := range durations {
		if d < mn {
			mn = d
		}
		if d > mx {
			mx = d
		}
		sum += d
	}
	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

// CalcThroughput returns input bytes per second.
// Returns 0 if d is zero to avoid division by zero.
func CalcThroughput(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}

// MeanThroughput averages the per-run throughput.
func MeanThroughput(runs []RunResult) float64 {
	if len(runs) == 0 {
		return 0
	}
	var total float64
	for _, r := range runs {
		total += r.Throughput
	}
	return total / float64(len(runs))
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

// Run transliterates input runs times, discarding the output.
func Run(ctx context.Context, tr *transducer.Transducer, input string, runs int) ([]RunResult, error) {
	if runs < 1 {
		return nil, fmt.Errorf("runs must be at least 1")
	}
	results := make([]RunResult, 0, runs)

	for i := range runs {
		start := time.Now()
		stats, err := tr.Transliterate(ctx, strings.NewReader(input), io.Discard)
		if err != nil {
			return nil, fmt.Errorf("run %d failed: %w", i+1, err)
		}
		dur := time.Since(start)

		results = append(results, RunResult{
			Index:      i,
			Cold:       i == 0,
			Duration:   dur,
			Bytes:      stats.Bytes,
			Glyphs:     stats.Glyphs,
			Throughput: CalcThroughput(stats.Bytes, dur),
		})
	}
	return results, nil
}

// ---------------------------------------------------------------------------
// Throughput gate
// ---------------------------------------------------------------------------

// CheckMinThroughput returns an error if mean falls below min bytes/s.
// A minimum of 0 disables the gate.
func CheckMinThroughput(mean, minimum float64) error {
	if minimum <= 0 {
		return nil
	}
	if mean < minimum {
		return fmt.Errorf("mean throughput %.0f B/s below minimum %.0f B/s", mean, minimum)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

// FormatTable writes a human-readable ASCII table of bench results to w.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %8s  %8s  %12s\n", "Run", "Cold", "MS", "Bytes", "Glyphs", "B/s")
	fmt.Fprintln(sb, strings.Repeat("-", 56))

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}
		fmt.Fprintf(sb, "%-5d  %-5s  %10.3f  %8d  %8d  %12.0f\n",
			r.Index+1,
			cold,
			ms(r.Duration),
			r.Bytes,
			r.Glyphs,
			r.Throughput,
		)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 56))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.3f  (min)\n", "", "", ms(stats.Min))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.3f  (mean)\n", "", "", ms(stats.Mean))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.3f  (max)\n", "", "", ms(stats.Max))

	fmt.Fprint(w, sb.String())
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// jsonReport is the top-level JSON structure emitted by FormatJSON.
type jsonReport struct {
	Runs  []jsonRun `json:"runs"`
	Stats jsonStats `json:"stats"`
}

type jsonRun struct {
	Index      int     `json:"index"`
	Cold       bool    `json:"cold"`
	DurationMS float64 `json:"duration_ms"`
	Bytes      int     `json:"bytes"`
	Glyphs     int     `json:"glyph_bytes"`
	Throughput float64 `json:"bytes_per_sec"`
}

type jsonStats struct {
	MinMS          float64 `json:"min_ms"`
	MeanMS         float64 `json:"mean_ms"`
	MaxMS          float64 `json:"max_ms"`
	MeanThroughput float64 `json:"mean_bytes_per_sec"`
}

// FormatJSON writes a JSON report of bench results to w.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) {
	jr := jsonReport{
		Runs: make([]jsonRun, len(runs)),
		Stats: jsonStats{
			MinMS:          ms(stats.Min),
			MeanMS:         ms(stats.Mean),
			MaxMS:          ms(stats.Max),
			MeanThroughput: MeanThroughput(runs),
		},
	}
	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Index:      r.Index,
			Cold:       r.Cold,
			DurationMS: ms(r.Duration),
			Bytes:      r.Bytes,
			Glyphs:     r.Glyphs,
			Throughput: r.Throughput,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(jr)
}
