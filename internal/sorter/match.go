// Package sorter reorders the combined document to follow the master drawing list.
package sorter

import (
	"strings"

	"github.com/Alisasanian/PDFsorter/internal/dataset"
)

// Result is the outcome of matching the master list against the dataset.
type Result struct {
	Entries int      // master entries considered
	Pages   []int    // resolved page numbers, in master order
	Found   int
	Missing []string // entries without a record, in master order
}

// Match resolves each entry, in order, to the first record with the same trimmed
// drawing number that no earlier entry has taken. Repeated entries therefore pick
// up repeated sheets in dataset order.
func Match(entries []string, recs []dataset.Record) Result {
	res := Result{Entries: len(entries)}
	used := make([]bool, len(recs))
	for _, e := range entries {
		want := strings.TrimSpace(e)
		hit := -1
		if want != "" {
			for i, r := range recs {
				if !used[i] && strings.TrimSpace(r.DrawingNumber) == want {
					hit = i
					break
				}
			}
		}
		if hit < 0 {
			res.Missing = append(res.Missing, want)
			continue
		}
		used[hit] = true
		res.Found++
		res.Pages = append(res.Pages, recs[hit].Page)
	}
	return res
}
