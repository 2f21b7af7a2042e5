package align

import (
	"fmt"

	"github.com/hurttlocker/dyntopics/internal/bundle"
)

// MergedPartition assigns every window document to a dynamic topic.
// Documents that occur in several windows appear once per window.
type MergedPartition struct {
	DocumentIDs []string
	Partition   []int
}

// Len returns the number of merged entries.
func (p *MergedPartition) Len() int { return len(p.DocumentIDs) }

// MergePartitions combines the window partitions into one partition over
// dynamic topics. Within each window, documents are emitted grouped by
// local topic index, each group in document order. Every window topic is
// resolved before anything is emitted, so an unmapped label yields no
// partial result.
func MergePartitions(m *WindowMap, windows []Window) (*MergedPartition, error) {
	resolved := make([][]int, len(windows))
	total := 0
	for i, w := range windows {
		if w.Bundle == nil {
			return nil, fmt.Errorf("%w: window %d has no model", bundle.ErrMalformedBundle, w.Number)
		}
		if len(w.Bundle.Partition) != len(w.Bundle.DocumentIDs) {
			return nil, fmt.Errorf("%w: window %d has %d documents but partition of length %d",
				bundle.ErrMalformedBundle, w.Number, len(w.Bundle.DocumentIDs), len(w.Bundle.Partition))
		}
		dyn, err := m.resolve(w)
		if err != nil {
			return nil, err
		}
		resolved[i] = dyn
		total += len(w.Bundle.DocumentIDs)
	}

	out := &MergedPartition{
		DocumentIDs: make([]string, 0, total),
		Partition:   make([]int, 0, total),
	}
	for i, w := range windows {
		groups, err := groupByTopic(w, len(resolved[i]))
		if err != nil {
			return nil, err
		}
		for t, docs := range groups {
			for _, doc := range docs {
				out.DocumentIDs = append(out.DocumentIDs, w.Bundle.DocumentIDs[doc])
				out.Partition = append(out.Partition, resolved[i][t])
			}
		}
	}
	return out, nil
}

// groupByTopic inverts a window partition into document indices per local topic.
func groupByTopic(w Window, k int) ([][]int, error) {
	groups := make([][]int, k)
	for doc, t := range w.Bundle.Partition {
		if t < 0 || t >= k {
			return nil, fmt.Errorf("%w: window %d assigns document %d to topic %d, want [0,%d)",
				bundle.ErrMalformedBundle, w.Number, doc, t, k)
		}
		groups[t] = append(groups[t], doc)
	}
	return groups, nil
}

// Bundle builds the result stored for a merged partition: the merged
// documents with the dynamic model's vocabulary, rankings and labels.
// Factor matrices cannot be reconstructed from a merge and are left nil.
func (p *MergedPartition) Bundle(dm *bundle.DynamicModel) *bundle.Result {
	return &bundle.Result{
		DocumentIDs:  p.DocumentIDs,
		Terms:        dm.Terms,
		TermRankings: dm.TermRankings,
		Partition:    p.Partition,
		TopicLabels:  dm.TopicLabels,
	}
}
