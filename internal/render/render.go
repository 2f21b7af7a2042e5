// Package render formats tracked dynamic topics for display, either as a
// rank-by-column table or as stacked labeled term lists.
package render

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/hurttlocker/dyntopics/internal/align"
)

// Column is one labeled ranking shown for a dynamic topic.
type Column struct {
	Label   string
	Ranking []string
}

// Columns lays out a dynamic topic's overall ranking followed by one
// column per window contribution. A window that contributed several
// topics gets "Window k", "Window k(2)", "Window k(3)", ... in order.
func Columns(overall []string, entries []align.Entry) []Column {
	cols := make([]Column, 0, len(entries)+1)
	cols = append(cols, Column{Label: "Overall", Ranking: overall})
	used := map[string]bool{"Rank": true, "Overall": true}
	for _, e := range entries {
		label := fmt.Sprintf("Window %d", e.Window)
		for suffix := 2; used[label]; suffix++ {
			label = fmt.Sprintf("Window %d(%d)", e.Window, suffix)
		}
		used[label] = true
		cols = append(cols, Column{Label: label, Ranking: e.Ranking})
	}
	return cols
}

// TableRows returns top rows of "rank, term per column"; a column whose
// ranking is shorter than the row number contributes an empty cell.
// top <= 0 shows every term of the longest ranking.
func TableRows(cols []Column, top int) [][]string {
	if top <= 0 {
		top = 0
		for _, c := range cols {
			if len(c.Ranking) > top {
				top = len(c.Ranking)
			}
		}
	}
	rows := make([][]string, 0, top)
	for pos := 0; pos < top; pos++ {
		row := make([]string, 0, len(cols)+1)
		row = append(row, strconv.Itoa(pos+1))
		for _, c := range cols {
			if pos < len(c.Ranking) {
				row = append(row, c.Ranking[pos])
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Table writes the columns as a bordered table with a right-aligned Rank
// column and left-aligned term columns.
func Table(w io.Writer, cols []Column, top int) {
	header := make([]string, 0, len(cols)+1)
	header = append(header, "Rank")
	aligns := []int{tablewriter.ALIGN_RIGHT}
	for _, c := range cols {
		header = append(header, c.Label)
		aligns = append(aligns, tablewriter.ALIGN_LEFT)
	}

	tab := tablewriter.NewWriter(w)
	tab.SetHeader(header)
	tab.SetAutoFormatHeaders(false)
	tab.SetAutoWrapText(false)
	tab.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tab.SetColumnAlignment(aligns)
	tab.AppendBulk(TableRows(cols, top))
	tab.Render()
}

// Long writes one "label: term, term, ..." line per column, each ranking
// capped at top terms.
func Long(w io.Writer, cols []Column, top int) error {
	for _, c := range cols {
		terms := c.Ranking
		if top > 0 && len(terms) > top {
			terms = terms[:top]
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", c.Label, strings.Join(terms, ", ")); err != nil {
			return err
		}
	}
	return nil
}

// Filter selects dynamic topics by 1-based number. The zero value selects all.
type Filter struct {
	numbers map[int]bool
}

// ParseTopicFilter parses comma separated 1-based topic numbers.
// An empty string selects every topic.
func ParseTopicFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Filter{}, nil
	}
	f := Filter{numbers: map[int]bool{}}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return Filter{}, fmt.Errorf("invalid dynamic topic number %q", part)
		}
		f.numbers[n] = true
	}
	return f, nil
}

// Includes reports whether the 0-based dynamic topic index is selected.
func (f Filter) Includes(idx int) bool {
	if len(f.numbers) == 0 {
		return true
	}
	return f.numbers[idx+1]
}

// String lists the selected topic numbers, or "all".
func (f Filter) String() string {
	if len(f.numbers) == 0 {
		return "all"
	}
	nums := make([]int, 0, len(f.numbers))
	for n := range f.numbers {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// ReportOptions controls Report.
type ReportOptions struct {
	Labels []string // dynamic topic labels, by index
	Top    int
	Long   bool
	Topics Filter
}

// Report writes every selected dynamic topic of h, each introduced by a
// "- Dynamic Topic: <label>" line.
func Report(w io.Writer, h *align.History, opts ReportOptions) error {
	for d := 0; d < h.TopicCount(); d++ {
		if !opts.Topics.Includes(d) {
			continue
		}
		label := strconv.Itoa(d + 1)
		if d < len(opts.Labels) {
			label = opts.Labels[d]
		}
		if _, err := fmt.Fprintf(w, "- Dynamic Topic: %s\n", label); err != nil {
			return err
		}
		cols := Columns(h.Overall(d), h.Entries(d))
		if opts.Long {
			if err := Long(w, cols, opts.Top); err != nil {
				return err
			}
			continue
		}
		Table(w, cols, opts.Top)
	}
	return nil
}
