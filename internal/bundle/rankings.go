package bundle

// TruncateRankings caps every ranking to its first top terms, keeping the
// existing order. top <= 0 keeps whole rankings. The input is not modified.
func TruncateRankings(rankings [][]string, top int) [][]string {
	out := make([][]string, len(rankings))
	for i, r := range rankings {
		n := len(r)
		if top > 0 && top < n {
			n = top
		}
		out[i] = append([]string(nil), r[:n]...)
	}
	return out
}
