package domain

// MergeReport counts what a sync merge changed.
type MergeReport struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
}

// Changed reports whether the merge altered the local list.
func (r MergeReport) Changed() bool {
	return r.Added > 0 || r.Updated > 0
}

// Merge applies incoming records to local by text. A record whose text is new
// is appended; a record whose text already exists overwrites the category of
// every local record with that text when the categories differ. The result
// keeps local order followed by appended records. local is not modified.
func Merge(local, incoming []Quote) ([]Quote, MergeReport) {
	out := Clone(local)
	byText := make(map[string][]int, len(out))

	for i, q := range out {
		byText[q.Text] = append(byText[q.Text], i)
	}

	var report MergeReport

	for _, in := range incoming {
		idxs, ok := byText[in.Text]
		if !ok {
			byText[in.Text] = []int{len(out)}
			out = append(out, in)
			report.Added++

			continue
		}

		for _, i := range idxs {
			if out[i].Category != in.Category {
				out[i].Category = in.Category
				report.Updated++
			}
		}
	}

	return out, report
}
