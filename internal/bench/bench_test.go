package bench_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/go-translit/internal/bench"
	"github.com/example/go-translit/internal/symtab"
	"github.com/example/go-translit/internal/transducer"
)

// ---------------------------------------------------------------------------
// Aggregation
// ---------------------------------------------------------------------------

func TestStats_MinMaxMean(t *testing.T) {
	durations := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
	}
	s := bench.ComputeStats(durations)

	if s.Min != 100*time.Millisecond {
		t.Errorf("want min=100ms, got %v", s.Min)
	}

	if s.Max != 300*time.Millisecond {
		t.Errorf("want max=300ms, got %v", s.Max)
	}

	if s.Mean != 200*time.Millisecond {
		t.Errorf("want mean=200ms, got %v", s.Mean)
	}
}

func TestStats_SingleRun(t *testing.T) {
	s := bench.ComputeStats([]time.Duration{150 * time.Millisecond})
	if s.Min != s.Max || s.Min != s.Mean {
		t.Errorf("single run: min/max/mean should all be equal, got min=%v max=%v mean=%v", s.Min, s.Max, s.Mean)
	}
}

func TestStats_Empty(t *testing.T) {
	if s := bench.ComputeStats(nil); s != (bench.Stats{}) {
		t.Errorf("want zero stats, got %+v", s)
	}
}

// ---------------------------------------------------------------------------
// Throughput
// ---------------------------------------------------------------------------

func TestThroughput_Calculation(t *testing.T) {
	// 1000 bytes in 500ms → 2000 B/s
	got := bench.CalcThroughput(1000, 500*time.Millisecond)
	if got < 1999.9 || got > 2000.1 {
		t.Errorf("want 2000 B/s, got %.2f", got)
	}
}

func TestThroughput_ZeroDuration(t *testing.T) {
	if got := bench.CalcThroughput(1000, 0); got != 0 {
		t.Errorf("want 0 for zero duration, got %.2f", got)
	}
}

func TestMeanThroughput(t *testing.T) {
	runs := []bench.RunResult{{Throughput: 100}, {Throughput: 300}}
	if got := bench.MeanThroughput(runs); got != 200 {
		t.Errorf("want 200, got %.2f", got)
	}
	if got := bench.MeanThroughput(nil); got != 0 {
		t.Errorf("want 0 for no runs, got %.2f", got)
	}
}

func TestMinThroughput(t *testing.T) {
	tests := []struct {
		name    string
		mean    float64
		minimum float64
		wantErr bool
	}{
		{"below", 500, 1000, true},
		{"above", 1500, 1000, false},
		{"exact", 1000, 1000, false},
		{"disabled", 1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := bench.CheckMinThroughput(tt.mean, tt.minimum)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckMinThroughput(%v, %v) error = %v, wantErr %v", tt.mean, tt.minimum, err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

func newTransducer(t *testing.T, opts ...symtab.Option) *transducer.Transducer {
	t.Helper()
	table, err := symtab.Jubrish(opts...)
	if err != nil {
		t.Fatalf("Jubrish: %v", err)
	}
	tr, err := transducer.New(table)
	if err != nil {
		t.Fatalf("transducer.New: %v", err)
	}
	return tr
}

func TestRun(t *testing.T) {
	tr := newTransducer(t)

	results, err := bench.Run(context.Background(), tr, "hɛləw wɜrld", 3)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("want 3 results, got %d", len(results))
	}
	if !results[0].Cold || results[1].Cold {
		t.Error("only the first run should be cold")
	}
	for _, r := range results {
		if r.Bytes != len("hɛləw wɜrld") {
			t.Errorf("run %d: bytes = %d", r.Index, r.Bytes)
		}
		if r.Glyphs == 0 {
			t.Errorf("run %d: no output", r.Index)
		}
	}
}

func TestRun_Errors(t *testing.T) {
	tr := newTransducer(t)
	if _, err := bench.Run(context.Background(), tr, "a", 0); err == nil {
		t.Error("want error for zero runs")
	}

	strict := newTransducer(t, symtab.WithPolicy(symtab.Fail))
	_, err := bench.Run(context.Background(), strict, "ax", 2)
	if !errors.Is(err, symtab.ErrUnknownSymbol) {
		t.Fatalf("want ErrUnknownSymbol, got %v", err)
	}
	if !strings.Contains(err.Error(), "run 1 failed") {
		t.Errorf("error should name the run: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Output formatting
// ---------------------------------------------------------------------------

func TestFormatTable_ContainsHeaders(t *testing.T) {
	runs := []bench.RunResult{
		{Index: 0, Cold: true, Duration: 800 * time.Microsecond, Bytes: 12, Glyphs: 30, Throughput: 15000},
		{Index: 1, Cold: false, Duration: 500 * time.Microsecond, Bytes: 12, Glyphs: 30, Throughput: 24000},
	}
	stats := bench.ComputeStats([]time.Duration{800 * time.Microsecond, 500 * time.Microsecond})

	var buf strings.Builder
	bench.FormatTable(runs, stats, &buf)
	out := buf.String()

	for _, want := range []string{"run", "cold", "ms", "glyphs", "b/s", "0.500", "(mean)"} {
		if !strings.Contains(strings.ToLower(out), want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatJSON_IsValidJSON(t *testing.T) {
	runs := []bench.RunResult{
		{Index: 0, Cold: true, Duration: 2 * time.Millisecond, Bytes: 10, Glyphs: 20, Throughput: 5000},
	}
	stats := bench.ComputeStats([]time.Duration{2 * time.Millisecond})

	var buf bytes.Buffer
	bench.FormatJSON(runs, stats, &buf)

	var out struct {
		Runs []struct {
			Bytes int `json:"bytes"`
		} `json:"runs"`
		Stats struct {
			MeanMS         float64 `json:"mean_ms"`
			MeanThroughput float64 `json:"mean_bytes_per_sec"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("FormatJSON produced invalid JSON: %v\n%s", err, buf.String())
	}
	if len(out.Runs) != 1 || out.Runs[0].Bytes != 10 || out.Stats.MeanMS != 2 || out.Stats.MeanThroughput != 5000 {
		t.Errorf("unexpected report: %+v", out)
	}
}
