// Package testutil provides shared skip helpers and WAV assertions for
// integration tests.
//
// Each helper calls t.Skip with a clear human-readable reason when the named
// prerequisite is absent, so integration tests remain runnable in partial
// environments without failing noisily.
//
// Typical usage:
//
//	func TestSpeakIntegration(t *testing.T) {
//	    exe := testutil.RequireEspeak(t)
//	    ...
//	}
package testutil

import (
	"os"
	"os/exec"
	"testing"
)

// EspeakPath returns the espeak-ng executable named by
// TRANSLIT_SPEECH_ESPEAK_PATH or ESPEAK_NG_PATH, defaulting to "espeak-ng".
func EspeakPath() string {
	for _, env := range []string{"TRANSLIT_SPEECH_ESPEAK_PATH", "ESPEAK_NG_PATH"} {
		if p := os.Getenv(env); p != "" {
			return p
		}
	}
	return "espeak-ng"
}

// RequireEspeak skips the test if the espeak-ng binary cannot be found and
// returns its resolved path otherwise.
func RequireEspeak(tb testing.TB) string {
	tb.Helper()

	exe := EspeakPath()
	path, err := exec.LookPath(exe)
	if err != nil {
		tb.Skipf("espeak-ng binary not available (%q not in PATH); set TRANSLIT_SPEECH_ESPEAK_PATH to override", exe)
		return ""
	}
	return path
}

// RequireFile skips the test if path does not exist.
func RequireFile(tb testing.TB, path string) {
	tb.Helper()

	if _, err := os.Stat(path); err != nil {
		tb.Skipf("fixture %q not available: %v", path, err)
	}
}
