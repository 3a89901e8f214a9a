package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-translit/internal/audio"
	"github.com/example/go-translit/internal/config"
	"github.com/example/go-translit/internal/speech"
	"github.com/example/go-translit/internal/testutil"
	"github.com/example/go-translit/internal/translit"
)

func TestNewRootCmd_HasExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()

	want := []string{"transliterate", "translate", "table", "speak", "serve", "health", "doctor", "bench"}
	for _, name := range want {
		found := false

		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}

		if !found {
			t.Errorf("expected subcommand %q not found in root", name)
		}
	}
}

func TestNewRootCmd_HasPersistentConfigFlag(t *testing.T) {
	root := NewRootCmd()
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("expected --config persistent flag to be registered")
	}
	if root.PersistentFlags().Lookup("method") == nil {
		t.Error("expected config flags to be registered as persistent flags")
	}
}

func TestSetupLogger_DoesNotPanic(_ *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		setupLogger(level)
	}
}

func TestSetupLogger_InvalidLevelFallsBackToInfo(_ *testing.T) {
	// Should not panic on invalid level.
	setupLogger("not-a-level")
}

func TestRequireConfig_FailsWhenNotInitialized(t *testing.T) {
	orig := activeCfg

	t.Cleanup(func() { activeCfg = orig })

	activeCfg = config.Config{}

	_, err := requireConfig()
	if err == nil {
		t.Fatal("expected error when config is not loaded")
	}
}

func TestRequireConfig_SucceedsWhenLoaded(t *testing.T) {
	orig := activeCfg

	t.Cleanup(func() { activeCfg = orig })

	activeCfg = config.DefaultConfig()

	got, err := requireConfig()
	if err != nil {
		t.Fatalf("requireConfig returned unexpected error: %v", err)
	}

	if got.Translit.Method != "max" {
		t.Errorf("unexpected method: %q", got.Translit.Method)
	}
}

// ---------------------------------------------------------------------------
// command execution
// ---------------------------------------------------------------------------

// fixture writes a two-letter table and a small dictionary and returns the
// flags selecting them.
func fixture(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()

	table := filepath.Join(dir, "greek.yaml")
	if err := os.WriteFile(table, []byte("name: greek\nglyphs:\n  a: α\n  b: β\n  d: U+03B4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	dict := filepath.Join(dir, "dict.csv")
	if err := os.WriteFile(dict, []byte("word,ipa\nbad,bad\nab,ab\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return []string{"--table", table, "--dict", dict}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	orig := activeCfg
	t.Cleanup(func() { activeCfg = orig })

	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func TestTransliterateCmd(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{"text flag", "", []string{"--text", "abad"}, "αβαδ\n"},
		{"stdin", "ba, ab", nil, "βα, αβ"},
		{"min method", "", []string{"--text", "ab", "--method", "min"}, "αβ\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"transliterate"}, fixture(t)...)
			got, err := execute(t, tt.stdin, append(args, tt.args...)...)
			if err != nil {
				t.Fatalf("transliterate: %v", err)
			}
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTransliterateCmd_FilesInAndOut(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(in, []byte("dab"), 0o644); err != nil {
		t.Fatal(err)
	}

	args := append([]string{"transliterate"}, fixture(t)...)
	if _, err := execute(t, "", append(args, "--in", in, "--out", out)...); err != nil {
		t.Fatalf("transliterate: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != "δαβ" {
		t.Errorf("output = %q, want δαβ", got)
	}
}

func TestTransliterateCmd_FailPolicy(t *testing.T) {
	args := append([]string{"transliterate"}, fixture(t)...)
	_, err := execute(t, "", append(args, "--text", "abx", "--on-unknown", "fail")...)
	if err == nil || !strings.Contains(err.Error(), "unknown symbol") {
		t.Fatalf("err = %v, want unknown symbol", err)
	}
}

func TestRootCmd_InvalidConfigRejected(t *testing.T) {
	_, err := execute(t, "", "transliterate", "--text", "a", "--method", "longest")
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Fatalf("err = %v, want invalid configuration", err)
	}
}

func TestTranslateCmd(t *testing.T) {
	args := append([]string{"translate"}, fixture(t)...)

	got, err := execute(t, "", append(args, "bad", "ab", "zebra")...)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if got != "βαδ αβ zebra\n" {
		t.Errorf("output = %q", got)
	}
}

func TestTranslateCmd_JSON(t *testing.T) {
	args := append([]string{"translate"}, fixture(t)...)

	got, err := execute(t, "Bad\n", append(args, "--json")...)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}

	var res translit.Translation
	if err := json.Unmarshal([]byte(got), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, got)
	}
	if res.IPA != "bad" || res.Glyphs != "βαδ" || len(res.Missing) != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestTranslateCmd_EmptyInput(t *testing.T) {
	args := append([]string{"translate"}, fixture(t)...)
	if _, err := execute(t, "  ", args...); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestTableCmd(t *testing.T) {
	args := append([]string{"table"}, fixture(t)...)

	got, err := execute(t, "", args...)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if !strings.Contains(got, "# table: greek") || !strings.Contains(got, "δ") || !strings.Contains(got, "U+03B4") {
		t.Errorf("unexpected output:\n%s", got)
	}

	got, err = execute(t, "", append(args, "--json", "--stress-mark", "none")...)
	if err != nil {
		t.Fatalf("table --json: %v", err)
	}
	var doc struct {
		Name    string `json:"name"`
		Entries []struct {
			Key   string `json:"key"`
			Glyph string `json:"glyph"`
		} `json:"entries"`
	}
	if err := json.Unmarshal([]byte(got), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Name != "greek" || len(doc.Entries) != 3 {
		t.Errorf("doc = %+v", doc)
	}

	got, err = execute(t, "", "table", "--list-rules")
	if err != nil {
		t.Fatalf("table --list-rules: %v", err)
	}
	if !strings.Contains(got, "nasal-merge") {
		t.Errorf("rules output = %q", got)
	}
}

func TestSpeakCmd_WritesWAV(t *testing.T) {
	orig := newSpeaker
	t.Cleanup(func() { newSpeaker = orig })

	var gotStdin []string
	newSpeaker = func(cfg config.SpeechConfig, opts ...speech.Option) *speech.Synthesizer {
		run := func(_ context.Context, _ string, args []string, stdin string) ([]byte, error) {
			gotStdin = append(gotStdin, stdin)
			data, err := audio.EncodeWAV(audio.Clip{Samples: make([]float32, 441), SampleRate: audio.DefaultSampleRate})
			if err != nil {
				return nil, err
			}
			for i, a := range args {
				if a == "-w" {
					return nil, os.WriteFile(args[i+1], data, 0o644)
				}
			}
			return nil, errors.New("no -w argument")
		}
		return speech.FromConfig(cfg, append(opts, speech.WithRunner(run))...)
	}

	out := filepath.Join(t.TempDir(), "hello.wav")
	if _, err := execute(t, "", "speak", "--text", "Hello. World.", "--out", out, "--max-chunk-chars", "8"); err != nil {
		t.Fatalf("speak: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	testutil.AssertValidWAV(t, data)
	testutil.AssertWAVDurationApprox(t, data, 0.039, 0.041)

	if len(gotStdin) != 2 {
		t.Errorf("espeak-ng calls = %v, want one per sentence", gotStdin)
	}
}

func TestSpeakCmd_MissingBinary(t *testing.T) {
	_, err := execute(t, "", "speak", "--text", "Hello.", "--out", "-", "--espeak-path", "/nonexistent/espeak-ng")
	if err == nil {
		t.Fatal("expected error for a missing espeak-ng binary")
	}
}

func TestDoctorCmd(t *testing.T) {
	args := append([]string{"doctor", "--skip-speech"}, fixture(t)...)

	got, err := execute(t, "", args...)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, got)
	}
	if !strings.Contains(got, "doctor checks passed") {
		t.Errorf("output = %q", got)
	}

	_, err = execute(t, "", "doctor", "--skip-speech", "--dict", filepath.Join(t.TempDir(), "absent.csv"))
	if err == nil {
		t.Fatal("expected doctor failure for a missing dictionary")
	}
}

func TestHealthCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	got, err := execute(t, "", "health", "--addr", srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if got != "ok\n" {
		t.Errorf("output = %q", got)
	}
}

func TestDialAddr(t *testing.T) {
	if got := dialAddr(":8080"); got != "127.0.0.1:8080" {
		t.Errorf("dialAddr(:8080) = %q", got)
	}
	if got := dialAddr("0.0.0.0:9000"); got != "0.0.0.0:9000" {
		t.Errorf("dialAddr = %q", got)
	}
}

func TestBenchCmd(t *testing.T) {
	args := append([]string{"bench"}, fixture(t)...)

	got, err := execute(t, "", append(args, "--text", "abad", "--runs", "2", "--format", "json")...)
	if err != nil {
		t.Fatalf("bench: %v", err)
	}
	var report struct {
		Runs []struct {
			Bytes int `json:"bytes"`
		} `json:"runs"`
	}
	if err := json.Unmarshal([]byte(got), &report); err != nil {
		t.Fatalf("decode: %v\n%s", err, got)
	}
	if len(report.Runs) != 2 || report.Runs[0].Bytes != 4 {
		t.Errorf("report = %+v", report)
	}

	for _, bad := range [][]string{
		{"--runs", "1"},
		{"--text", "ab", "--runs", "0"},
		{"--text", "ab", "--format", "xml"},
		{"--text", "ab", "--min-throughput", "1e18"},
	} {
		if _, err := execute(t, "", append(args, bad...)...); err == nil {
			t.Errorf("bench %v: expected error", bad)
		}
	}
}
