// Package doctor provides environment preflight checks for translit.
package doctor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/example/go-translit/internal/lexicon"
	"github.com/example/go-translit/internal/symtab"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// Oldest espeak-ng release known to write WAV files the audio package reads.
const (
	minEspeakMajor = 1
	minEspeakMinor = 49
)

// VersionFunc returns a version string or an error if the component is unavailable.
type VersionFunc func() (string, error)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// EspeakVersion returns the first line of `espeak-ng --version`.
	EspeakVersion VersionFunc
	// SkipEspeak skips the espeak-ng check when speech is not used.
	SkipEspeak bool
	// DictionaryPath is the pronunciation CSV to load.
	DictionaryPath string
	// Table is a preset name or table file path.
	Table string
	// StressMark, when set, is decoded as the table check does at startup.
	StressMark string
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- espeak-ng binary -------------------------------------------------
	switch {
	case cfg.SkipEspeak:
		fmt.Fprintf(w, "%s espeak-ng binary: skipped\n", PassMark)
	case cfg.EspeakVersion == nil:
		res.fail("espeak-ng binary: no version check configured")
		fmt.Fprintf(w, "%s espeak-ng binary: no version check configured\n", FailMark)
	default:
		ver, err := cfg.EspeakVersion()
		if err != nil {
			res.fail(fmt.Sprintf("espeak-ng binary: %v", err))
			fmt.Fprintf(w, "%s espeak-ng binary: not found (%v)\n", FailMark, err)
		} else if verErr := checkEspeakVersion(ver); verErr != nil {
			res.fail(fmt.Sprintf("espeak-ng version: %v", verErr))
			fmt.Fprintf(w, "%s espeak-ng version %s: %v\n", FailMark, ver, verErr)
		} else {
			fmt.Fprintf(w, "%s espeak-ng binary: %s\n", PassMark, ver)
		}
	}

	// ---- symbol table -----------------------------------------------------
	if mark := strings.TrimSpace(cfg.StressMark); mark != "" && !strings.EqualFold(mark, "none") {
		if _, err := symtab.DecodeGlyph(mark); err != nil {
			res.fail(fmt.Sprintf("stress mark %q: %v", mark, err))
			fmt.Fprintf(w, "%s stress mark %s: %v\n", FailMark, mark, err)
		}
	}
	table, err := symtab.Resolve(cfg.Table)
	if err != nil {
		res.fail(fmt.Sprintf("symbol table %q: %v", cfg.Table, err))
		fmt.Fprintf(w, "%s symbol table %s: %v\n", FailMark, cfg.Table, err)
	} else {
		fmt.Fprintf(w, "%s symbol table: %s (%d entries)\n", PassMark, table.Name(), table.Len())
	}

	// ---- pronunciation dictionary ------------------------------------------
	if cfg.DictionaryPath == "" {
		fmt.Fprintf(w, "%s pronunciation dictionary: skipped (no path configured)\n", PassMark)
		return res
	}
	dict, err := lexicon.LoadFile(cfg.DictionaryPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		res.fail(fmt.Sprintf("pronunciation dictionary %q: %v", cfg.DictionaryPath, err))
		fmt.Fprintf(w, "%s pronunciation dictionary %s: not found\n", FailMark, cfg.DictionaryPath)
	case err != nil:
		res.fail(fmt.Sprintf("pronunciation dictionary %q: %v", cfg.DictionaryPath, err))
		fmt.Fprintf(w, "%s pronunciation dictionary %s: %v\n", FailMark, cfg.DictionaryPath, err)
	case dict.Len() == 0:
		res.fail(fmt.Sprintf("pronunciation dictionary %q: no entries", cfg.DictionaryPath))
		fmt.Fprintf(w, "%s pronunciation dictionary %s: no entries\n", FailMark, cfg.DictionaryPath)
	default:
		fmt.Fprintf(w, "%s pronunciation dictionary: %s (%d words)\n", PassMark, cfg.DictionaryPath, dict.Len())
	}

	return res
}

var versionPattern = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// checkEspeakVersion returns an error if the version in out is older than
// 1.49. out is the first line of `espeak-ng --version`, e.g.
// "eSpeak NG text-to-speech: 1.51  Data at: /usr/share/espeak-ng-data".
func checkEspeakVersion(out string) error {
	ver := versionPattern.FindString(out)
	if ver == "" {
		return fmt.Errorf("no version number in %q", out)
	}
	major, minor, err := parseMajorMinor(ver)
	if err != nil {
		return fmt.Errorf("cannot parse %q: %w", ver, err)
	}
	if major < minEspeakMajor || (major == minEspeakMajor && minor < minEspeakMinor) {
		return fmt.Errorf("requires espeak-ng >=%d.%d, got %d.%d", minEspeakMajor, minEspeakMinor, major, minor)
	}
	return nil
}

func parseMajorMinor(ver string) (major, minor int, err error) {
	parts := strings.SplitN(ver, ".", 3)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("unexpected version format %q", ver)
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad major in %q: %w", ver, err)
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad minor in %q: %w", ver, err)
	}
	return major, minor, nil
}
