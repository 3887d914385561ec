package dto

import (
	"github.com/jsamuelsen/quotekeeper/internal/app"
	"github.com/jsamuelsen/quotekeeper/internal/domain"
)

// AddQuoteRequest is the body of POST /api/v1/quotes.
type AddQuoteRequest struct {
	Text     string `json:"text"     validate:"notempty"`
	Category string `json:"category" validate:"notempty"`
}

// ListQuotesRequest holds the query of GET /api/v1/quotes.
type ListQuotesRequest struct {
	PaginationRequest

	Category string `form:"category" json:"category"`
}

// RandomQuoteRequest holds the query of GET /api/v1/quotes/random. An empty
// category means the stored filter.
type RandomQuoteRequest struct {
	Category string `form:"category" json:"category"`
}

// SelectCategoryRequest is the body of PUT /api/v1/categories/selected. An
// empty category selects "all".
type SelectCategoryRequest struct {
	Category string `json:"category" validate:"max=200"`
}

// QuoteResponse is one quote as the API returns it.
type QuoteResponse struct {
	Text     string `json:"text"`
	Category string `json:"category"`

	// Display is the quote as the page renders it.
	Display string `json:"display"`
}

// NewQuoteResponse converts a domain quote.
func NewQuoteResponse(q domain.Quote) QuoteResponse {
	return QuoteResponse{Text: q.Text, Category: q.Category, Display: q.Render()}
}

// NewQuoteResponses converts a slice of domain quotes.
func NewQuoteResponses(quotes []domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, len(quotes))
	for i, q := range quotes {
		out[i] = NewQuoteResponse(q)
	}

	return out
}

// CategoriesResponse lists the category options and the stored filter.
type CategoriesResponse struct {
	Categories []app.CategoryOption `json:"categories"`
	Selected   string               `json:"selected"`
}

// SelectedCategoryResponse reports the stored filter and the category of the
// last quote shown.
type SelectedCategoryResponse struct {
	Category   string `json:"category"`
	LastViewed string `json:"lastViewed,omitempty"`
}

// ImportResponse reports what an import did.
type ImportResponse struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// SyncResponse reports a manual sync.
type SyncResponse struct {
	Added   int            `json:"added"`
	Updated int            `json:"updated"`
	Changed bool           `json:"changed"`
	Status  app.SyncStatus `json:"status"`
}

// NewSyncResponse builds the sync response from a merge report.
func NewSyncResponse(report domain.MergeReport, status app.SyncStatus) SyncResponse {
	return SyncResponse{
		Added:   report.Added,
		Updated: report.Updated,
		Changed: report.Changed(),
		Status:  status,
	}
}

// NotificationsResponse lists active notifications, newest first.
type NotificationsResponse struct {
	Items []app.Notification `json:"items"`
}
