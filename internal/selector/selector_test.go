package selector

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const manifest = `prefix,k
month1,5
month2,12

month3, 8
`

func TestParseManifest(t *testing.T) {
	entries, err := ParseManifest(strings.NewReader(manifest))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].Prefix != "month1" || entries[0].K != 5 {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[2].Prefix != "month3" || entries[2].K != 8 {
		t.Fatalf("unexpected third entry: %+v", entries[2])
	}
}

func TestParseManifest_BadK(t *testing.T) {
	_, err := ParseManifest(strings.NewReader("prefix,k\nmonth1,five\n"))
	if err == nil {
		t.Fatal("expected error for non-numeric k")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line number in error, got %v", err)
	}
}

func TestWindowFileName(t *testing.T) {
	cases := []struct {
		prefix string
		k      int
		want   string
	}{
		{"month1", 5, "month1_windowtopics_k05.pkl"},
		{"month2", 10, "month2_windowtopics_k10.pkl"},
		{"2010-03", 0, "2010-03_windowtopics_k00.pkl"},
	}
	for _, tc := range cases {
		if got := WindowFileName(tc.prefix, tc.k, ""); got != tc.want {
			t.Fatalf("WindowFileName(%q, %d) = %q, want %q", tc.prefix, tc.k, got, tc.want)
		}
	}
	if got := WindowFileName("m", 3, ".json"); got != "m_windowtopics_k03.json" {
		t.Fatalf("custom extension ignored: %q", got)
	}
}

func TestSelect_PatternAnchoredAtStart(t *testing.T) {
	entries, err := ParseManifest(strings.NewReader(manifest))
	if err != nil {
		t.Fatal(err)
	}

	paths, err := Select(entries, Config{Pattern: "month[12]", BaseDir: "models"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	want := []string{
		filepath.Join("models", "month1_windowtopics_k05.pkl"),
		filepath.Join("models", "month2_windowtopics_k12.pkl"),
	}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("Select = %v, want %v", paths, want)
	}

	// "windowtopics" occurs mid-name only, so an anchored match rejects all.
	paths, err = Select(entries, Config{Pattern: "windowtopics"})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected no matches for unanchored substring, got %v", paths)
	}

	paths, err = Select(entries, Config{Pattern: ".*_k0|month2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected alternation to stay anchored as a group, got %v", paths)
	}
}

func TestSelect_EmptyPatternSelectsAll(t *testing.T) {
	entries := []ManifestEntry{{Prefix: "a", K: 1}, {Prefix: "b", K: 2}}
	paths, err := Select(entries, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(paths, []string{"a_windowtopics_k01.pkl", "b_windowtopics_k02.pkl"}) {
		t.Fatalf("unexpected paths: %v", paths)
	}
}

func TestSelect_InvalidPattern(t *testing.T) {
	if _, err := Select(nil, Config{Pattern: "("}); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestSelectFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selected.csv")
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	paths, err := SelectFile(path, Config{Pattern: "month3", BaseDir: dir})
	if err != nil {
		t.Fatalf("SelectFile: %v", err)
	}
	if len(paths) != 1 || paths[0] != filepath.Join(dir, "month3_windowtopics_k08.pkl") {
		t.Fatalf("unexpected paths: %v", paths)
	}

	if _, err := SelectFile(filepath.Join(dir, "missing.csv"), Config{}); err == nil {
		t.Fatal("expected error for missing manifest")
	}
}
