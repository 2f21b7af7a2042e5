// Package bundle holds the fitted-model records exchanged between the
// topic modeling tools: per-window topic results, the dynamic model that
// aligns window topics, and the positional file record both are stored as.
package bundle

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrMalformedBundle means a bundle's parallel sequences disagree.
	ErrMalformedBundle = errors.New("malformed bundle")
	// ErrNotFound means the bundle path does not exist.
	ErrNotFound = errors.New("bundle not found")
	// ErrCorruptFile means the bundle file exists but cannot be decoded.
	ErrCorruptFile = errors.New("corrupt bundle file")
)

// Result is one fitted topic model over a set of documents.
// Partition[i] is the topic index assigned to DocumentIDs[i].
type Result struct {
	DocumentIDs  []string
	Terms        []string
	TermRankings [][]string
	Partition    []int
	W            *mat.Dense // documents x topics; nil when absent
	H            *mat.Dense // topics x terms; nil when absent
	TopicLabels  []string
}

// TopicCount returns the number of topics in the model.
func (r *Result) TopicCount() int { return len(r.TermRankings) }

// DocumentCount returns the number of documents in the partition.
func (r *Result) DocumentCount() int { return len(r.DocumentIDs) }

// Validate checks the length and range invariants of the result.
func (r *Result) Validate() error {
	k := r.TopicCount()
	if len(r.TopicLabels) != k {
		return fmt.Errorf("%w: %d term rankings but %d topic labels", ErrMalformedBundle, k, len(r.TopicLabels))
	}
	if len(r.Partition) != len(r.DocumentIDs) {
		return fmt.Errorf("%w: %d documents but partition of length %d", ErrMalformedBundle, len(r.DocumentIDs), len(r.Partition))
	}
	if err := checkAssignments(r.Partition, k, "document"); err != nil {
		return err
	}
	return checkFactors(r.W, r.H, len(r.DocumentIDs), k)
}

// Record converts the result to its positional file form.
func (r *Result) Record() Record {
	return Record{
		IDs:          r.DocumentIDs,
		Terms:        r.Terms,
		TermRankings: r.TermRankings,
		Partition:    r.Partition,
		W:            r.W,
		H:            r.H,
		TopicLabels:  r.TopicLabels,
	}
}

// DynamicModel is the model fitted over window topics. Each entry of
// WindowTopicLabels names one window topic that was an input to the
// dynamic model; Assignments holds the dynamic topic it was placed in.
type DynamicModel struct {
	WindowTopicLabels []string
	Assignments       []int
	Terms             []string
	TermRankings      [][]string
	W                 *mat.Dense // window topics x dynamic topics; nil when absent
	H                 *mat.Dense
	TopicLabels       []string
}

// TopicCount returns the number of dynamic topics.
func (d *DynamicModel) TopicCount() int { return len(d.TermRankings) }

// Validate checks the length and range invariants of the dynamic model.
func (d *DynamicModel) Validate() error {
	k := d.TopicCount()
	if len(d.TopicLabels) != k {
		return fmt.Errorf("%w: %d dynamic term rankings but %d topic labels", ErrMalformedBundle, k, len(d.TopicLabels))
	}
	if len(d.Assignments) != len(d.WindowTopicLabels) {
		return fmt.Errorf("%w: %d window topic labels but %d assignments", ErrMalformedBundle, len(d.WindowTopicLabels), len(d.Assignments))
	}
	if err := checkAssignments(d.Assignments, k, "window topic"); err != nil {
		return err
	}
	return checkFactors(d.W, d.H, len(d.WindowTopicLabels), k)
}

// Record converts the dynamic model to its positional file form.
func (d *DynamicModel) Record() Record {
	return Record{
		IDs:          d.WindowTopicLabels,
		Terms:        d.Terms,
		TermRankings: d.TermRankings,
		Partition:    d.Assignments,
		W:            d.W,
		H:            d.H,
		TopicLabels:  d.TopicLabels,
	}
}

// Record is the seven-field shape every model file is stored as. The
// meaning of IDs and Partition depends on which model wrote the file:
// documents and their topics for a window model, window topic labels and
// their dynamic topics for a dynamic model. Use AsResult or AsDynamic to
// pick the interpretation.
type Record struct {
	IDs          []string
	Terms        []string
	TermRankings [][]string
	Partition    []int
	W            *mat.Dense
	H            *mat.Dense
	TopicLabels  []string
}

// AsResult interprets the record as a document-level topic result.
func (rec Record) AsResult() *Result {
	return &Result{
		DocumentIDs:  rec.IDs,
		Terms:        rec.Terms,
		TermRankings: rec.TermRankings,
		Partition:    rec.Partition,
		W:            rec.W,
		H:            rec.H,
		TopicLabels:  rec.TopicLabels,
	}
}

// AsDynamic interprets the record as a dynamic model over window topics.
func (rec Record) AsDynamic() *DynamicModel {
	return &DynamicModel{
		WindowTopicLabels: rec.IDs,
		Assignments:       rec.Partition,
		Terms:             rec.Terms,
		TermRankings:      rec.TermRankings,
		W:                 rec.W,
		H:                 rec.H,
		TopicLabels:       rec.TopicLabels,
	}
}

func checkAssignments(assign []int, k int, what string) error {
	for i, t := range assign {
		if t < 0 || t >= k {
			return fmt.Errorf("%w: %s %d assigned to topic %d, want [0,%d)", ErrMalformedBundle, what, i, t, k)
		}
	}
	return nil
}

func checkFactors(w, h *mat.Dense, rows, k int) error {
	if w != nil {
		r, c := w.Dims()
		if r != rows || c != k {
			return fmt.Errorf("%w: W is %dx%d, want %dx%d", ErrMalformedBundle, r, c, rows, k)
		}
	}
	if h != nil {
		if r, _ := h.Dims(); r != k {
			return fmt.Errorf("%w: H has %d rows, want %d", ErrMalformedBundle, r, k)
		}
	}
	return nil
}
