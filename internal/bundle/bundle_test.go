package bundle

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func sampleResult() *Result {
	return &Result{
		DocumentIDs:  []string{"d1", "d2", "d3"},
		Terms:        []string{"alpha", "beta", "gamma", "delta"},
		TermRankings: [][]string{{"alpha", "beta"}, {"gamma", "delta", "alpha"}},
		Partition:    []int{0, 0, 1},
		W:            mat.NewDense(3, 2, []float64{0.9, 0.1, 0.8, 0.2, 0.1, 0.7}),
		H:            mat.NewDense(2, 4, []float64{1, 0.5, 0, 0, 0.1, 0, 1, 0.6}),
		TopicLabels:  []string{"2010-03_01", "2010-03_02"},
	}
}

func TestResultValidate(t *testing.T) {
	if err := sampleResult().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestResultValidate_Malformed(t *testing.T) {
	cases := map[string]func(r *Result){
		"labels short":       func(r *Result) { r.TopicLabels = r.TopicLabels[:1] },
		"partition short":    func(r *Result) { r.Partition = r.Partition[:2] },
		"topic out of range": func(r *Result) { r.Partition[2] = 2 },
		"negative topic":     func(r *Result) { r.Partition[0] = -1 },
		"W wrong shape":      func(r *Result) { r.W = mat.NewDense(2, 2, nil) },
		"H wrong rows":       func(r *Result) { r.H = mat.NewDense(3, 4, nil) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := sampleResult()
			mutate(r)
			if err := r.Validate(); !errors.Is(err, ErrMalformedBundle) {
				t.Fatalf("expected ErrMalformedBundle, got %v", err)
			}
		})
	}
}

func TestDynamicModelValidate(t *testing.T) {
	dm := &DynamicModel{
		WindowTopicLabels: []string{"w1_0", "w1_1", "w2_0"},
		Assignments:       []int{0, 1, 0},
		TermRankings:      [][]string{{"a"}, {"b"}},
		TopicLabels:       []string{"D01", "D02"},
	}
	if err := dm.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	dm.Assignments = dm.Assignments[:2]
	if err := dm.Validate(); !errors.Is(err, ErrMalformedBundle) {
		t.Fatalf("expected ErrMalformedBundle for short assignments, got %v", err)
	}
}

func TestRecordInterpretations(t *testing.T) {
	rec := Record{
		IDs:          []string{"w1_0", "w1_1"},
		TermRankings: [][]string{{"a"}, {"b"}},
		Partition:    []int{1, 0},
		TopicLabels:  []string{"D01", "D02"},
	}

	dm := rec.AsDynamic()
	if !reflect.DeepEqual(dm.WindowTopicLabels, rec.IDs) || !reflect.DeepEqual(dm.Assignments, rec.Partition) {
		t.Fatalf("dynamic interpretation lost fields: %+v", dm)
	}
	if back := dm.Record(); !reflect.DeepEqual(back, rec) {
		t.Fatalf("dynamic round trip mismatch: %+v", back)
	}

	r := rec.AsResult()
	if !reflect.DeepEqual(r.DocumentIDs, rec.IDs) || !reflect.DeepEqual(r.Partition, rec.Partition) {
		t.Fatalf("result interpretation lost fields: %+v", r)
	}
}

func TestTruncateRankings(t *testing.T) {
	in := [][]string{{"a", "b", "c"}, {"d"}, {}}
	got := TruncateRankings(in, 2)
	want := [][]string{{"a", "b"}, {"d"}, nil}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TruncateRankings = %v, want %v", got, want)
	}
	if len(in[0]) != 3 {
		t.Fatalf("input was modified: %v", in)
	}

	got[0][0] = "z"
	if in[0][0] != "a" {
		t.Fatal("truncated ranking shares storage with input")
	}

	if all := TruncateRankings(in, 0); len(all[0]) != 3 {
		t.Fatalf("top=0 should keep everything, got %v", all[0])
	}
}

func TestSaveLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "month1_windowtopics_k02.pkl")
	want := sampleResult()
	if err := Save(path, want.Record(), FormatJSON); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertSameResult(t, rec.AsResult(), want)
}

func TestSaveLoad_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "dynamic-combined.pkl")
	want := sampleResult()
	if err := Save(path, want.Record(), FormatSQLite); err != nil {
		t.Fatalf("Save: %v", err)
	}

	head := make([]byte, len(sqliteMagic))
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.Read(head)
	f.Close()
	if string(head) != string(sqliteMagic) {
		t.Fatalf("expected sqlite header, got %q", head)
	}

	rec, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertSameResult(t, rec.AsResult(), want)
}

func TestSaveLoad_AbsentFactors(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatSQLite} {
		path := filepath.Join(t.TempDir(), "merged."+string(format))
		r := sampleResult()
		r.W, r.H = nil, nil
		if err := Save(path, r.Record(), format); err != nil {
			t.Fatalf("%s Save: %v", format, err)
		}
		rec, err := Load(path)
		if err != nil {
			t.Fatalf("%s Load: %v", format, err)
		}
		if rec.W != nil || rec.H != nil {
			t.Fatalf("%s: expected absent factors, got W=%v H=%v", format, rec.W, rec.H)
		}
	}
}

func TestSave_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.pkl")
	if err := os.WriteFile(path, []byte("old contents"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, sampleResult().Record(), FormatJSON); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("Load after overwrite: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected only the saved file, found %d entries", len(entries))
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.pkl")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	bad := filepath.Join(dir, "bad.pkl")
	if err := os.WriteFile(bad, []byte("\x80\x04\x95 not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("expected ErrCorruptFile, got %v", err)
	}

	badMatrix := filepath.Join(dir, "matrix.pkl")
	if err := os.WriteFile(badMatrix, []byte(`{"w":{"rows":2,"cols":2,"data":[1]}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(badMatrix); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("expected ErrCorruptFile for bad matrix, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, "sqlite": FormatSQLite, "db": FormatSQLite} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("pickle"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func assertSameResult(t *testing.T, got, want *Result) {
	t.Helper()
	if !reflect.DeepEqual(got.DocumentIDs, want.DocumentIDs) {
		t.Fatalf("document ids: got %v want %v", got.DocumentIDs, want.DocumentIDs)
	}
	if !reflect.DeepEqual(got.Terms, want.Terms) {
		t.Fatalf("terms: got %v want %v", got.Terms, want.Terms)
	}
	if !reflect.DeepEqual(got.TermRankings, want.TermRankings) {
		t.Fatalf("rankings: got %v want %v", got.TermRankings, want.TermRankings)
	}
	if !reflect.DeepEqual(got.Partition, want.Partition) {
		t.Fatalf("partition: got %v want %v", got.Partition, want.Partition)
	}
	if !reflect.DeepEqual(got.TopicLabels, want.TopicLabels) {
		t.Fatalf("labels: got %v want %v", got.TopicLabels, want.TopicLabels)
	}
	if !mat.Equal(got.W, want.W) {
		t.Fatalf("W mismatch: %v", mat.Formatted(got.W))
	}
	if !mat.Equal(got.H, want.H) {
		t.Fatalf("H mismatch: %v", mat.Formatted(got.H))
	}
}
