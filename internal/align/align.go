// Package align propagates a dynamic topic model's alignment of window
// topics onto the window models themselves: it maps window topic labels
// to dynamic topics, merges per-window document partitions into one
// partition over dynamic topics, and collects the window term rankings
// that contributed to each dynamic topic.
package align

import (
	"errors"
	"fmt"

	"github.com/hurttlocker/dyntopics/internal/bundle"
)

// ErrUnmappedTopic means a window topic label is not known to the dynamic model.
var ErrUnmappedTopic = errors.New("unmapped window topic")

// UnmappedTopicError reports which window topic could not be resolved.
type UnmappedTopicError struct {
	Label  string
	Window int
	Source string
}

func (e *UnmappedTopicError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%v: label %q in window %d (%s) is not an input of the dynamic model", ErrUnmappedTopic, e.Label, e.Window, e.Source)
	}
	return fmt.Sprintf("%v: label %q in window %d is not an input of the dynamic model", ErrUnmappedTopic, e.Label, e.Window)
}

func (e *UnmappedTopicError) Unwrap() error { return ErrUnmappedTopic }

// Window is one window model in processing order. Number is the
// 1-based chronological window number reported in topic histories.
type Window struct {
	Number int
	Source string
	Bundle *bundle.Result
}

// NumberWindows pairs results with window numbers 1..n in slice order.
func NumberWindows(results []*bundle.Result, sources []string) []Window {
	out := make([]Window, len(results))
	for i, r := range results {
		w := Window{Number: i + 1, Bundle: r}
		if i < len(sources) {
			w.Source = sources[i]
		}
		out[i] = w
	}
	return out
}

// WindowMap maps window topic labels to dynamic topic indices.
type WindowMap struct {
	index      map[string]int
	topicCount int
	duplicates []string
}

// BuildWindowMap reads the dynamic model's window topic assignments.
// A label listed more than once keeps its last assignment; such labels
// are reported by Duplicates.
func BuildWindowMap(dm *bundle.DynamicModel) (*WindowMap, error) {
	if len(dm.WindowTopicLabels) != len(dm.Assignments) {
		return nil, fmt.Errorf("%w: %d window topic labels but %d assignments",
			bundle.ErrMalformedBundle, len(dm.WindowTopicLabels), len(dm.Assignments))
	}

	m := &WindowMap{
		index:      make(map[string]int, len(dm.WindowTopicLabels)),
		topicCount: dm.TopicCount(),
	}
	seen := make(map[string]bool)
	for i, label := range dm.WindowTopicLabels {
		if _, ok := m.index[label]; ok && !seen[label] {
			seen[label] = true
			m.duplicates = append(m.duplicates, label)
		}
		m.index[label] = dm.Assignments[i]
	}
	return m, nil
}

// Lookup returns the dynamic topic a window topic label was assigned to.
func (m *WindowMap) Lookup(label string) (int, bool) {
	d, ok := m.index[label]
	return d, ok
}

// Len is the number of distinct window topic labels.
func (m *WindowMap) Len() int { return len(m.index) }

// TopicCount is the number of dynamic topics in the source model.
func (m *WindowMap) TopicCount() int { return m.topicCount }

// Duplicates lists labels that appeared more than once, in first-repeat order.
func (m *WindowMap) Duplicates() []string { return m.duplicates }

// resolve maps every local topic of w to its dynamic topic.
func (m *WindowMap) resolve(w Window) ([]int, error) {
	labels := w.Bundle.TopicLabels
	out := make([]int, len(labels))
	for t, label := range labels {
		d, ok := m.index[label]
		if !ok {
			return nil, &UnmappedTopicError{Label: label, Window: w.Number, Source: w.Source}
		}
		if d < 0 || (m.topicCount > 0 && d >= m.topicCount) {
			return nil, fmt.Errorf("%w: label %q mapped to dynamic topic %d, want [0,%d)",
				bundle.ErrMalformedBundle, label, d, m.topicCount)
		}
		out[t] = d
	}
	return out, nil
}
