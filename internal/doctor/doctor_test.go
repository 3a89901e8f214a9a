package doctor_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-translit/internal/doctor"
	"github.com/example/go-translit/internal/symtab"
)

const espeakVersion = "eSpeak NG text-to-speech: 1.51  Data at: /usr/share/espeak-ng-data"

func writeDict(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dict.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write dict: %v", err)
	}
	return path
}

func passingConfig(t *testing.T) doctor.Config {
	t.Helper()
	return doctor.Config{
		EspeakVersion:  func() (string, error) { return espeakVersion, nil },
		DictionaryPath: writeDict(t, "word,ipa\nhello,hɛˈləw\n"),
		Table:          symtab.PresetJubrish,
	}
}

// ---------------------------------------------------------------------------
// all-pass scenario
// ---------------------------------------------------------------------------

func TestRun_AllChecksPass(t *testing.T) {
	var out strings.Builder
	result := doctor.Run(passingConfig(t), &out)

	if result.Failed() {
		t.Errorf("expected all checks to pass; failures: %v", result.Failures())
	}

	body := out.String()
	for _, want := range []string{"espeak-ng binary: eSpeak NG", "symbol table: jubrish", "(1 words)"} {
		if !strings.Contains(body, want) {
			t.Errorf("output missing %q:\n%s", want, body)
		}
	}
}

// ---------------------------------------------------------------------------
// espeak-ng binary
// ---------------------------------------------------------------------------

func TestRun_EspeakMissingFails(t *testing.T) {
	cfg := passingConfig(t)
	cfg.EspeakVersion = func() (string, error) { return "", errBinaryNotFound }

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !result.Failed() {
		t.Fatal("expected failure when espeak-ng is not found")
	}

	if !hasFailureContaining(result.Failures(), "espeak-ng") {
		t.Errorf("expected failure mentioning espeak-ng, got: %v", result.Failures())
	}
}

func TestRun_EspeakTooOldFails(t *testing.T) {
	cfg := passingConfig(t)
	cfg.EspeakVersion = func() (string, error) { return "eSpeak NG text-to-speech: 1.48.03", nil }

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "version") {
		t.Errorf("expected version failure, got: %v", result.Failures())
	}
}

func TestRun_NoVersionCheckFails(t *testing.T) {
	cfg := passingConfig(t)
	cfg.EspeakVersion = nil

	var out strings.Builder
	if result := doctor.Run(cfg, &out); !result.Failed() {
		t.Fatal("expected failure without a version check")
	}
}

func TestRun_SkipEspeak(t *testing.T) {
	cfg := passingConfig(t)
	cfg.EspeakVersion = nil
	cfg.SkipEspeak = true

	var out strings.Builder

	result := doctor.Run(cfg, &out)
	if result.Failed() {
		t.Fatalf("expected no failures when espeak-ng is skipped, got: %v", result.Failures())
	}

	if !strings.Contains(out.String(), "espeak-ng binary: skipped") {
		t.Fatalf("expected espeak-ng skipped output, got:\n%s", out.String())
	}
}

// ---------------------------------------------------------------------------
// symbol table
// ---------------------------------------------------------------------------

func TestRun_TableFileMissingFails(t *testing.T) {
	cfg := passingConfig(t)
	cfg.Table = "/nonexistent/table.yaml"

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "symbol table") {
		t.Errorf("expected failure mentioning symbol table, got: %v", result.Failures())
	}
}

func TestRun_TableFileLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greek.yaml")
	if err := os.WriteFile(path, []byte("name: greek\nglyphs:\n  a: α\n  b: β\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := passingConfig(t)
	cfg.Table = path

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if result.Failed() {
		t.Fatalf("expected pass; failures: %v", result.Failures())
	}
	if !strings.Contains(out.String(), "symbol table: greek (2 entries)") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRun_BadStressMarkFails(t *testing.T) {
	cfg := passingConfig(t)
	cfg.StressMark = "U+D800"

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "stress mark") {
		t.Errorf("expected stress mark failure, got: %v", result.Failures())
	}
}

// ---------------------------------------------------------------------------
// pronunciation dictionary
// ---------------------------------------------------------------------------

func TestRun_DictionaryChecks(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"missing file", "/nonexistent/dict.csv", true},
		{"no entries", writeDict(t, "word,ipa\n"), true},
		{"not configured", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := passingConfig(t)
			cfg.DictionaryPath = tt.path

			var out strings.Builder
			result := doctor.Run(cfg, &out)

			if result.Failed() != tt.wantErr {
				t.Fatalf("Failed() = %v, want %v; failures: %v", result.Failed(), tt.wantErr, result.Failures())
			}
			if tt.wantErr && !hasFailureContaining(result.Failures(), "dictionary") {
				t.Errorf("expected failure mentioning dictionary, got: %v", result.Failures())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// colour-coded output
// ---------------------------------------------------------------------------

func TestRun_OutputContainsPassAndFailMarkers(t *testing.T) {
	cfg := passingConfig(t)
	cfg.EspeakVersion = func() (string, error) { return "", errBinaryNotFound }

	var out strings.Builder
	doctor.Run(cfg, &out)

	body := out.String()
	if !strings.Contains(body, doctor.PassMark) {
		t.Errorf("output missing pass marker %q:\n%s", doctor.PassMark, body)
	}

	if !strings.Contains(body, doctor.FailMark) {
		t.Errorf("output missing fail marker %q:\n%s", doctor.FailMark, body)
	}
}

func TestResult_AddFailure(t *testing.T) {
	var r doctor.Result
	r.AddFailure("external check")

	got := r.Failures()
	if !r.Failed() || len(got) != 1 || got[0] != "external check" {
		t.Fatalf("Failures() = %v", got)
	}

	got[0] = "mutated"
	if r.Failures()[0] != "external check" {
		t.Error("Failures() should return a copy")
	}
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

var errBinaryNotFound = sentinelError("binary not found")

func hasFailureContaining(failures []string, substr string) bool {
	substr = strings.ToLower(substr)
	for _, f := range failures {
		if strings.Contains(strings.ToLower(f), substr) {
			return true
		}
	}
	return false
}
