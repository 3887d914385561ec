// Package ports defines the contracts between the quote application layer and
// its adapters.
//
// Ports take a context first, return domain types, and report failures with
// domain errors (ErrNotFound, ErrValidation, ErrUnavailable).
package ports

import (
	"context"

	"github.com/jsamuelsen/quotekeeper/internal/domain"
)

// KeyValueStore is string key/value storage, the shape of a browser's
// localStorage. Durable implementations survive restarts; session
// implementations live only as long as the process.
type KeyValueStore interface {
	// Get returns the value for key. ok is false when the key is unset.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Close releases the underlying resources.
	Close() error
}

// QuoteRepository loads and saves the quote collection.
type QuoteRepository interface {
	// LoadQuotes returns the persisted collection. When nothing is persisted,
	// or the persisted value is not a valid quote array, the seed collection
	// is returned with seeded set to true.
	LoadQuotes(ctx context.Context) (quotes []domain.Quote, seeded bool, err error)

	// SaveQuotes replaces the persisted collection.
	SaveQuotes(ctx context.Context, quotes []domain.Quote) error
}

// PreferenceStore keeps the UI choices that outlive a single request.
type PreferenceStore interface {
	// SelectedCategory returns the durable category filter, or "" when unset.
	SelectedCategory(ctx context.Context) (string, error)

	// SetSelectedCategory persists the category filter.
	SetSelectedCategory(ctx context.Context, category string) error

	// LastViewedCategory returns the session-scoped category of the last
	// quote shown, or "" when nothing was shown yet.
	LastViewedCategory(ctx context.Context) (string, error)

	// SetLastViewedCategory records the category of the quote just shown.
	SetLastViewedCategory(ctx context.Context, category string) error
}

// SyncRemote is the mock server the sync poller talks to.
type SyncRemote interface {
	// FetchServerQuotes returns the records the server offers for merging.
	// Returns domain.ErrUnavailable when the server cannot be reached.
	FetchServerQuotes(ctx context.Context) ([]domain.Quote, error)

	// PostQuote sends a newly added quote. The response body carries no
	// information the caller uses.
	PostQuote(ctx context.Context, quote domain.Quote) error
}

// Notifier receives user-facing messages such as sync results.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// QuoteMetrics records collection and sync activity.
type QuoteMetrics interface {
	// QuotesAdded counts quotes appended by source ("editor", "import", "sync").
	QuotesAdded(source string, n int)

	// SyncCompleted records one sync attempt; result is "changed",
	// "unchanged" or "error".
	SyncCompleted(result string, updated int)

	// CollectionSize reports the current number of quotes.
	CollectionSize(n int)
}
