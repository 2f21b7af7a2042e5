// Package selector resolves which window model files take part in a run
// from a selection manifest of per-window topic counts.
package selector

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// DefaultExtension is the suffix of window model files.
const DefaultExtension = ".pkl"

// ManifestEntry is one row of a selection manifest: a window file prefix
// and the number of topics chosen for that window.
type ManifestEntry struct {
	Prefix string
	K      int
	Line   int
}

// Config controls how manifest entries become file paths.
type Config struct {
	// Pattern is matched against the start of each candidate file name.
	// Empty selects every entry.
	Pattern string
	// BaseDir is joined in front of every selected name.
	BaseDir string
	// Extension replaces DefaultExtension when set.
	Extension string
}

// ParseManifest reads a manifest whose first line is a header and whose
// remaining lines are "prefix,k" rows. Blank lines are ignored.
func ParseManifest(r io.Reader) ([]ManifestEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	var entries []ManifestEntry
	header := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing manifest: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if header {
			header = false
			continue
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("manifest line %d: expected prefix,k", line)
		}
		k, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil || k < 0 {
			return nil, fmt.Errorf("manifest line %d: invalid k %q", line, row[1])
		}
		entries = append(entries, ManifestEntry{
			Prefix: strings.TrimSpace(row[0]),
			K:      k,
			Line:   line,
		})
	}
	return entries, nil
}

// WindowFileName builds "{prefix}_windowtopics_k{NN}{ext}", with k
// zero-padded to two digits.
func WindowFileName(prefix string, k int, ext string) string {
	if ext == "" {
		ext = DefaultExtension
	}
	return fmt.Sprintf("%s_windowtopics_k%02d%s", prefix, k, ext)
}

// Select returns the paths of the entries whose file name matches the
// configured pattern, in manifest order.
func Select(entries []ManifestEntry, cfg Config) ([]string, error) {
	var re *regexp.Regexp
	if cfg.Pattern != "" {
		var err error
		re, err = regexp.Compile(`^(?:` + cfg.Pattern + `)`)
		if err != nil {
			return nil, fmt.Errorf("invalid selection pattern %q: %w", cfg.Pattern, err)
		}
	}

	var paths []string
	for _, e := range entries {
		name := WindowFileName(e.Prefix, e.K, cfg.Extension)
		if re != nil && !re.MatchString(name) {
			continue
		}
		paths = append(paths, filepath.Join(cfg.BaseDir, name))
	}
	return paths, nil
}

// SelectFile parses the manifest at path and selects from it.
func SelectFile(path string, cfg Config) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	entries, err := ParseManifest(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Select(entries, cfg)
}
