package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/quotekeeper/internal/domain"
	"github.com/jsamuelsen/quotekeeper/internal/ports"
)

// Storage keys used when none are configured.
const (
	DefaultQuotesKey           = "quotes"
	DefaultSelectedCategoryKey = "selectedCategory"
	LastViewedCategoryKey      = "lastViewedCategory"
)

// QuoteRepository stores the collection as a JSON array under one key.
type QuoteRepository struct {
	store  ports.KeyValueStore
	key    string
	logger *slog.Logger
}

// NewQuoteRepository creates a repository over store. An empty key selects
// DefaultQuotesKey.
func NewQuoteRepository(store ports.KeyValueStore, key string, logger *slog.Logger) *QuoteRepository {
	if key == "" {
		key = DefaultQuotesKey
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &QuoteRepository{store: store, key: key, logger: logger}
}

// LoadQuotes implements ports.QuoteRepository. Missing or malformed data
// falls back to the seed collection; only store read failures are returned.
func (r *QuoteRepository) LoadQuotes(ctx context.Context) ([]domain.Quote, bool, error) {
	raw, ok, err := r.store.Get(ctx, r.key)
	if err != nil {
		return nil, false, fmt.Errorf("reading %q: %w", r.key, err)
	}

	if !ok {
		return domain.SeedQuotes(), true, nil
	}

	quotes, err := domain.ParseQuotes([]byte(raw))
	if err != nil {
		r.logger.WarnContext(ctx, "persisted quotes are malformed, using seed",
			slog.String("key", r.key),
			slog.String("error", err.Error()),
		)

		return domain.SeedQuotes(), true, nil
	}

	return quotes, false, nil
}

// SaveQuotes implements ports.QuoteRepository.
func (r *QuoteRepository) SaveQuotes(ctx context.Context, quotes []domain.Quote) error {
	data, err := json.Marshal(domain.Clone(quotes))
	if err != nil {
		return fmt.Errorf("encoding quotes: %w", err)
	}

	if err := r.store.Set(ctx, r.key, string(data)); err != nil {
		return fmt.Errorf("writing %q: %w", r.key, err)
	}

	return nil
}

// Preferences implements ports.PreferenceStore with the selected category in
// the durable store and the last viewed category in the session store.
type Preferences struct {
	durable     ports.KeyValueStore
	session     ports.KeyValueStore
	selectedKey string
}

// NewPreferences creates a Preferences. An empty selectedKey selects
// DefaultSelectedCategoryKey.
func NewPreferences(durable, session ports.KeyValueStore, selectedKey string) *Preferences {
	if selectedKey == "" {
		selectedKey = DefaultSelectedCategoryKey
	}

	return &Preferences{durable: durable, session: session, selectedKey: selectedKey}
}

func (p *Preferences) SelectedCategory(ctx context.Context) (string, error) {
	v, _, err := p.durable.Get(ctx, p.selectedKey)
	return v, err
}

func (p *Preferences) SetSelectedCategory(ctx context.Context, category string) error {
	return p.durable.Set(ctx, p.selectedKey, category)
}

func (p *Preferences) LastViewedCategory(ctx context.Context) (string, error) {
	v, _, err := p.session.Get(ctx, LastViewedCategoryKey)
	return v, err
}

func (p *Preferences) SetLastViewedCategory(ctx context.Context, category string) error {
	return p.session.Set(ctx, LastViewedCategoryKey, category)
}
