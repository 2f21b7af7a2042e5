package render

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/hurttlocker/dyntopics/internal/align"
	"github.com/hurttlocker/dyntopics/internal/bundle"
)

func TestTableRows_PadsShortRankings(t *testing.T) {
	overall := []string{"overall_term_1", "overall_term_2", "overall_term_3"}
	cols := Columns(overall, []align.Entry{{Window: 1, Ranking: []string{"a", "b"}}})

	rows := TableRows(cols, 3)
	want := [][]string{
		{"1", "overall_term_1", "a"},
		{"2", "overall_term_2", "b"},
		{"3", "overall_term_3", ""},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("TableRows = %v, want %v", rows, want)
	}
}

func TestTableRows_ZeroTopShowsWholeRankings(t *testing.T) {
	cols := Columns([]string{"tax"}, []align.Entry{{Window: 1, Ranking: []string{"vote", "poll", "seat"}}})

	rows := TableRows(cols, 0)
	want := [][]string{
		{"1", "tax", "vote"},
		{"2", "", "poll"},
		{"3", "", "seat"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("TableRows = %v, want %v", rows, want)
	}

	var buf bytes.Buffer
	Table(&buf, Columns([]string{"tax", "budget"}, nil), 0)
	if out := buf.String(); !strings.Contains(out, "tax") || !strings.Contains(out, "budget") {
		t.Fatalf("table with top=0 dropped terms:\n%s", out)
	}
}

func TestColumns_DisambiguatesRepeatedWindow(t *testing.T) {
	cols := Columns([]string{"x"}, []align.Entry{
		{Window: 1, Ranking: []string{"a"}},
		{Window: 2, Ranking: []string{"b"}},
		{Window: 2, Ranking: []string{"c"}},
		{Window: 2, Ranking: []string{"d"}},
	})
	var labels []string
	for _, c := range cols {
		labels = append(labels, c.Label)
	}
	want := []string{"Overall", "Window 1", "Window 2", "Window 2(2)", "Window 2(3)"}
	if !reflect.DeepEqual(labels, want) {
		t.Fatalf("labels = %v, want %v", labels, want)
	}
	if cols[3].Ranking[0] != "c" {
		t.Fatalf("disambiguated column kept wrong ranking: %v", cols[3].Ranking)
	}
}

func TestTable_RendersHeaderAndTerms(t *testing.T) {
	cols := Columns([]string{"tax", "budget"}, []align.Entry{
		{Window: 2, Ranking: []string{"spend"}},
		{Window: 2, Ranking: []string{"deficit", "debt"}},
	})
	var buf bytes.Buffer
	Table(&buf, cols, 2)
	out := buf.String()
	for _, s := range []string{"Rank", "Overall", "Window 2", "Window 2(2)", "tax", "budget", "spend", "deficit", "debt"} {
		if !strings.Contains(out, s) {
			t.Fatalf("table missing %q:\n%s", s, out)
		}
	}
}

func TestLong(t *testing.T) {
	cols := Columns([]string{"tax", "budget", "spend"}, []align.Entry{{Window: 3, Ranking: []string{"vote"}}})
	var buf bytes.Buffer
	if err := Long(&buf, cols, 2); err != nil {
		t.Fatal(err)
	}
	want := "Overall: tax, budget\nWindow 3: vote\n"
	if buf.String() != want {
		t.Fatalf("Long = %q, want %q", buf.String(), want)
	}
}

func TestParseTopicFilter(t *testing.T) {
	f, err := ParseTopicFilter("1, 3")
	if err != nil {
		t.Fatalf("ParseTopicFilter: %v", err)
	}
	if !f.Includes(0) || f.Includes(1) || !f.Includes(2) {
		t.Fatalf("unexpected selection: %s", f)
	}
	if f.String() != "1,3" {
		t.Fatalf("String = %q", f.String())
	}

	all, err := ParseTopicFilter("")
	if err != nil || !all.Includes(41) || all.String() != "all" {
		t.Fatalf("empty filter should select all: %v %v", all, err)
	}

	for _, bad := range []string{"0", "x", "2,-1"} {
		if _, err := ParseTopicFilter(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestReport_FilterAndLongForm(t *testing.T) {
	dm := &bundle.DynamicModel{
		WindowTopicLabels: []string{"w1_0", "w1_1"},
		Assignments:       []int{0, 1},
		TermRankings:      [][]string{{"tax", "budget"}, {"vote", "poll"}},
		TopicLabels:       []string{"D01", "D02"},
	}
	m, err := align.BuildWindowMap(dm)
	if err != nil {
		t.Fatal(err)
	}
	w := &bundle.Result{
		DocumentIDs:  []string{"d1"},
		TermRankings: [][]string{{"tax"}, {"vote"}},
		Partition:    []int{0},
		TopicLabels:  []string{"w1_0", "w1_1"},
	}
	h, err := align.TrackHistory(m, dm.TermRankings, align.NumberWindows([]*bundle.Result{w}, nil), 10)
	if err != nil {
		t.Fatal(err)
	}

	filter, _ := ParseTopicFilter("2")
	var buf bytes.Buffer
	if err := Report(&buf, h, ReportOptions{Labels: dm.TopicLabels, Top: 10, Long: true, Topics: filter}); err != nil {
		t.Fatal(err)
	}
	want := "- Dynamic Topic: D02\nOverall: vote, poll\nWindow 1: vote\n"
	if buf.String() != want {
		t.Fatalf("Report = %q, want %q", buf.String(), want)
	}
}
