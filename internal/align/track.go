package align

import (
	"fmt"

	"github.com/hurttlocker/dyntopics/internal/bundle"
)

// Entry is one window topic's contribution to a dynamic topic.
type Entry struct {
	Window  int
	Ranking []string
}

// History holds, per dynamic topic, its own truncated ranking and the
// window topic rankings aligned to it in window processing order.
type History struct {
	overall [][]string
	entries [][]Entry
}

// TopicCount is the number of dynamic topics tracked.
func (h *History) TopicCount() int { return len(h.entries) }

// Overall returns the dynamic topic's own truncated ranking.
func (h *History) Overall(d int) []string { return h.overall[d] }

// Entries returns the window contributions to dynamic topic d.
func (h *History) Entries(d int) []Entry { return h.entries[d] }

// EntryCount is the total number of window topics across all dynamic topics.
func (h *History) EntryCount() int {
	n := 0
	for _, e := range h.entries {
		n += len(e)
	}
	return n
}

// TrackHistory collects, for every dynamic topic, the top-N rankings of
// the window topics aligned to it. dynamicRankings are the dynamic
// model's term rankings; they and every window ranking are truncated to
// top terms (top <= 0 keeps whole rankings).
func TrackHistory(m *WindowMap, dynamicRankings [][]string, windows []Window, top int) (*History, error) {
	k := len(dynamicRankings)
	h := &History{
		overall: bundle.TruncateRankings(dynamicRankings, top),
		entries: make([][]Entry, k),
	}

	for _, w := range windows {
		if w.Bundle == nil {
			return nil, fmt.Errorf("%w: window %d has no model", bundle.ErrMalformedBundle, w.Number)
		}
		if len(w.Bundle.TopicLabels) != len(w.Bundle.TermRankings) {
			return nil, fmt.Errorf("%w: window %d has %d topic labels but %d term rankings",
				bundle.ErrMalformedBundle, w.Number, len(w.Bundle.TopicLabels), len(w.Bundle.TermRankings))
		}
		dyn, err := m.resolve(w)
		if err != nil {
			return nil, err
		}
		rankings := bundle.TruncateRankings(w.Bundle.TermRankings, top)
		for t, d := range dyn {
			if d >= k {
				return nil, fmt.Errorf("%w: window %d topic %q mapped to dynamic topic %d, want [0,%d)",
					bundle.ErrMalformedBundle, w.Number, w.Bundle.TopicLabels[t], d, k)
			}
			h.entries[d] = append(h.entries[d], Entry{Window: w.Number, Ranking: rankings[t]})
		}
	}
	return h, nil
}
