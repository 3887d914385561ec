package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name       string
		local      []Quote
		incoming   []Quote
		want       []Quote
		wantReport MergeReport
	}{
		{
			name:       "same text different category overwrites",
			local:      []Quote{{Text: "x", Category: "A"}},
			incoming:   []Quote{{Text: "x", Category: "B"}},
			want:       []Quote{{Text: "x", Category: "B"}},
			wantReport: MergeReport{Updated: 1},
		},
		{
			name:       "new text is appended",
			local:      []Quote{{Text: "x", Category: "A"}},
			incoming:   []Quote{{Text: "y", Category: "C"}},
			want:       []Quote{{Text: "x", Category: "A"}, {Text: "y", Category: "C"}},
			wantReport: MergeReport{Added: 1},
		},
		{
			name:     "identical record is a no-op",
			local:    []Quote{{Text: "x", Category: "A"}},
			incoming: []Quote{{Text: "x", Category: "A"}},
			want:     []Quote{{Text: "x", Category: "A"}},
		},
		{
			name:       "every local duplicate of a text is overwritten",
			local:      []Quote{{Text: "x", Category: "A"}, {Text: "x", Category: "Z"}},
			incoming:   []Quote{{Text: "x", Category: "B"}},
			want:       []Quote{{Text: "x", Category: "B"}, {Text: "x", Category: "B"}},
			wantReport: MergeReport{Updated: 2},
		},
		{
			name:       "incoming repeat updates the appended record",
			local:      nil,
			incoming:   []Quote{{Text: "y", Category: "C"}, {Text: "y", Category: "D"}},
			want:       []Quote{{Text: "y", Category: "D"}},
			wantReport: MergeReport{Added: 1, Updated: 1},
		},
		{
			name:       "stand-in quotes merge into seed",
			local:      SeedQuotes(),
			incoming:   StandInServerQuotes(),
			want:       append(SeedQuotes(), StandInServerQuotes()...),
			wantReport: MergeReport{Added: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, report := Merge(tt.local, tt.incoming)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantReport, report)
			assert.Equal(t, tt.wantReport.Added+tt.wantReport.Updated > 0, report.Changed())
		})
	}
}

func TestMerge_LeavesLocalUntouched(t *testing.T) {
	local := []Quote{{Text: "x", Category: "A"}}

	_, _ = Merge(local, []Quote{{Text: "x", Category: "B"}})

	assert.Equal(t, "A", local[0].Category)
}

func TestMerge_IsIdempotent(t *testing.T) {
	first, _ := Merge(SeedQuotes(), StandInServerQuotes())
	second, report := Merge(first, StandInServerQuotes())

	assert.Equal(t, first, second)
	assert.False(t, report.Changed())
}
