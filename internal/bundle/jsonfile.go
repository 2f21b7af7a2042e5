package bundle

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"
)

type jsonMatrix struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

type jsonRecord struct {
	IDs          []string    `json:"document_ids"`
	Terms        []string    `json:"terms"`
	TermRankings [][]string  `json:"term_rankings"`
	Partition    []int       `json:"partition"`
	W            *jsonMatrix `json:"w"`
	H            *jsonMatrix `json:"h"`
	TopicLabels  []string    `json:"topic_labels"`
}

func writeJSON(w io.Writer, rec Record) error {
	out := jsonRecord{
		IDs:          rec.IDs,
		Terms:        rec.Terms,
		TermRankings: rec.TermRankings,
		Partition:    rec.Partition,
		W:            toJSONMatrix(rec.W),
		H:            toJSONMatrix(rec.H),
		TopicLabels:  rec.TopicLabels,
	}
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func readJSON(path string) (Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	var in jsonRecord
	if err := json.Unmarshal(b, &in); err != nil {
		return Record{}, fmt.Errorf("decoding json: %w", err)
	}
	w, err := fromJSONMatrix(in.W)
	if err != nil {
		return Record{}, fmt.Errorf("matrix w: %w", err)
	}
	h, err := fromJSONMatrix(in.H)
	if err != nil {
		return Record{}, fmt.Errorf("matrix h: %w", err)
	}
	return Record{
		IDs:          in.IDs,
		Terms:        in.Terms,
		TermRankings: in.TermRankings,
		Partition:    in.Partition,
		W:            w,
		H:            h,
		TopicLabels:  in.TopicLabels,
	}, nil
}

func toJSONMatrix(m *mat.Dense) *jsonMatrix {
	if m == nil {
		return nil
	}
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data = append(data, m.At(i, j))
		}
	}
	return &jsonMatrix{Rows: r, Cols: c, Data: data}
}

func fromJSONMatrix(m *jsonMatrix) (*mat.Dense, error) {
	if m == nil || m.Rows == 0 || m.Cols == 0 {
		return nil, nil
	}
	if m.Rows < 0 || m.Cols < 0 || len(m.Data) != m.Rows*m.Cols {
		return nil, fmt.Errorf("%dx%d matrix with %d values", m.Rows, m.Cols, len(m.Data))
	}
	return mat.NewDense(m.Rows, m.Cols, m.Data), nil
}
