package domain

// IsAllCategory reports whether category selects the unfiltered list.
func IsAllCategory(category string) bool {
	return category == "" || category == CategoryAll
}

// Filter returns the quotes whose category matches exactly. The "all"
// category (or an empty one) returns a copy of the whole list.
func Filter(quotes []Quote, category string) []Quote {
	if IsAllCategory(category) {
		return Clone(quotes)
	}

	out := make([]Quote, 0, len(quotes))
	for _, q := range quotes {
		if q.Category == category {
			out = append(out, q)
		}
	}

	return out
}

// Categories returns "all" followed by the distinct categories in the order
// they first appear.
func Categories(quotes []Quote) []string {
	seen := make(map[string]struct{}, len(quotes))
	out := []string{CategoryAll}

	for _, q := range quotes {
		if _, ok := seen[q.Category]; ok {
			continue
		}

		seen[q.Category] = struct{}{}
		out = append(out, q.Category)
	}

	return out
}

// Clone copies a quote slice so callers cannot alias internal state.
func Clone(quotes []Quote) []Quote {
	if quotes == nil {
		return []Quote{}
	}

	out := make([]Quote, len(quotes))
	copy(out, quotes)

	return out
}

// Contains reports whether an identical record (text and category) exists.
func Contains(quotes []Quote, q Quote) bool {
	for _, existing := range quotes {
		if existing == q {
			return true
		}
	}

	return false
}

// ImportReport counts what an import did.
type ImportReport struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// AppendUnique appends the incoming records whose (text, category) pair is not
// already present, including duplicates inside incoming itself.
func AppendUnique(local, incoming []Quote) ([]Quote, ImportReport) {
	out := Clone(local)
	seen := make(map[string]struct{}, len(local)+len(incoming))

	for _, q := range local {
		seen[q.Key()] = struct{}{}
	}

	var report ImportReport

	for _, q := range incoming {
		if _, ok := seen[q.Key()]; ok {
			report.Skipped++
			continue
		}

		seen[q.Key()] = struct{}{}
		out = append(out, q)
		report.Added++
	}

	return out, report
}
