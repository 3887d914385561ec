// Package app holds the quotekeeper use cases. QuoteService owns the
// in-memory collection; SyncPoller and the adapters only reach it through
// the service's methods.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/quotekeeper/internal/domain"
	"github.com/jsamuelsen/quotekeeper/internal/ports"
)

// DefaultMaxInFlightPosts bounds concurrent best-effort posts to the remote.
const DefaultMaxInFlightPosts = 4

// Metric sources for ports.QuoteMetrics.QuotesAdded.
const (
	SourceEditor = "editor"
	SourceImport = "import"
	SourceSync   = "sync"
)

// CategoryOption is one entry of the category select.
type CategoryOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// QuoteServiceConfig wires the service. Repository and Preferences are required.
type QuoteServiceConfig struct {
	Repository  ports.QuoteRepository
	Preferences ports.PreferenceStore

	// Remote receives newly added quotes when PostOnAdd is set.
	Remote    ports.SyncRemote
	PostOnAdd bool

	// MaxInFlightPosts defaults to DefaultMaxInFlightPosts. Posts beyond the
	// limit are dropped with a warning.
	MaxInFlightPosts int

	Metrics  ports.QuoteMetrics
	Executor *Executor

	// Rand picks random quotes. Defaults to a randomly seeded PCG source.
	Rand *rand.Rand

	Logger *slog.Logger
}

// QuoteService manages the quote collection.
type QuoteService struct {
	repo      ports.QuoteRepository
	prefs     ports.PreferenceStore
	remote    ports.SyncRemote
	postOnAdd bool
	metrics   ports.QuoteMetrics
	exec      *Executor
	logger    *slog.Logger
	posts     *errgroup.Group

	randMu sync.Mutex
	rnd    *rand.Rand

	// writeMu serializes mutations, held from perform through archive.
	writeMu sync.Mutex

	mu     sync.RWMutex
	quotes []domain.Quote
}

// NewQuoteService creates the service with an empty collection. Call Load
// before serving.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	exec := cfg.Executor
	if exec == nil {
		exec = NewExecutor(logger)
	}

	rnd := cfg.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // picking quotes
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	limit := cfg.MaxInFlightPosts
	if limit <= 0 {
		limit = DefaultMaxInFlightPosts
	}

	posts := &errgroup.Group{}
	posts.SetLimit(limit)

	return &QuoteService{
		repo:      cfg.Repository,
		prefs:     cfg.Preferences,
		remote:    cfg.Remote,
		postOnAdd: cfg.PostOnAdd && cfg.Remote != nil,
		metrics:   metrics,
		exec:      exec,
		logger:    logger.With(slog.String("component", "app.QuoteService")),
		posts:     posts,
		rnd:       rnd,
		quotes:    []domain.Quote{},
	}
}

// Load replaces the in-memory collection with the persisted one, or with the
// seed quotes when nothing usable is persisted.
func (s *QuoteService) Load(ctx context.Context) error {
	quotes, seeded, err := s.repo.LoadQuotes(ctx)
	if err != nil {
		return fmt.Errorf("loading quotes: %w", err)
	}

	s.mu.Lock()
	s.quotes = domain.Clone(quotes)
	s.mu.Unlock()

	s.metrics.CollectionSize(len(quotes))
	s.logger.InfoContext(ctx, "quotes loaded",
		slog.Int("count", len(quotes)),
		slog.Bool("seeded", seeded),
	)

	return nil
}

// Snapshot returns a copy of the collection in insertion order.
func (s *QuoteService) Snapshot() []domain.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.Clone(s.quotes)
}

// Random picks a quote uniformly from the quotes in category. An empty
// category means the stored filter, which itself defaults to "all". The
// picked quote's category is remembered as the last viewed one.
func (s *QuoteService) Random(ctx context.Context, category string) (domain.Quote, error) {
	category = s.effectiveCategory(ctx, category)

	s.mu.RLock()
	total := len(s.quotes)
	candidates := domain.Filter(s.quotes, category)
	s.mu.RUnlock()

	if total == 0 {
		return domain.Quote{}, domain.NewNotFoundError("quotes", "")
	}

	if len(candidates) == 0 {
		return domain.Quote{}, domain.NewNotFoundError("quotes", category)
	}

	s.randMu.Lock()
	picked := candidates[s.rnd.IntN(len(candidates))]
	s.randMu.Unlock()

	if err := s.prefs.SetLastViewedCategory(ctx, picked.Category); err != nil {
		s.logger.WarnContext(ctx, "failed to record last viewed category", slog.Any("error", err))
	}

	return picked, nil
}

// List returns the quotes in category; "all" or "" returns every quote.
func (s *QuoteService) List(category string) []domain.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.Filter(s.quotes, category)
}

// Categories returns "all" followed by the distinct categories in first-seen order.
func (s *QuoteService) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.Categories(s.quotes)
}

// CategoryOptions returns Categories with display labels.
func (s *QuoteService) CategoryOptions() []CategoryOption {
	categories := s.Categories()
	options := make([]CategoryOption, len(categories))

	for i, c := range categories {
		options[i] = CategoryOption{Value: c, Label: domain.CategoryLabel(c)}
	}

	return options
}

// SetFilter stores the category filter. A blank category means "all".
// Categories with no quotes are accepted and simply select nothing.
func (s *QuoteService) SetFilter(ctx context.Context, category string) (string, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		category = domain.CategoryAll
	}

	if err := s.prefs.SetSelectedCategory(ctx, category); err != nil {
		return "", fmt.Errorf("saving category filter: %w", err)
	}

	s.logger.DebugContext(ctx, "category filter set", slog.String("category", category))

	return category, nil
}

// SelectedCategory returns the stored filter, or "all" when none is stored.
func (s *QuoteService) SelectedCategory(ctx context.Context) (string, error) {
	category, err := s.prefs.SelectedCategory(ctx)
	if err != nil {
		return "", fmt.Errorf("reading category filter: %w", err)
	}

	if category == "" {
		return domain.CategoryAll, nil
	}

	return category, nil
}

// effectiveCategory falls back to the stored filter, then to "all".
func (s *QuoteService) effectiveCategory(ctx context.Context, category string) string {
	if category = strings.TrimSpace(category); category != "" {
		return category
	}

	selected, err := s.SelectedCategory(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "falling back to all categories", slog.Any("error", err))

		return domain.CategoryAll
	}

	return selected
}

// LastViewedCategory returns the category of the last quote shown in this
// process, or "" when none was shown.
func (s *QuoteService) LastViewedCategory(ctx context.Context) (string, error) {
	return s.prefs.LastViewedCategory(ctx)
}

// Add appends a quote after trimming both fields. Empty fields are rejected
// with a validation error and leave the collection untouched. A failed save
// rolls the append back. When enabled, the quote is then posted to the remote
// in the background; post failures are only logged.
func (s *QuoteService) Add(ctx context.Context, text, category string) (domain.Quote, error) {
	input := domain.Quote{Text: strings.TrimSpace(text), Category: strings.TrimSpace(category)}

	s.writeMu.Lock()
	added, err := Execute(ctx, s.exec, Operation[domain.Quote, change[struct{}], domain.Quote]{
		Name: "add_quote",
		Validate: func(_ context.Context, q domain.Quote) error {
			return q.Validate()
		},
		Perform: func(_ context.Context, q domain.Quote) (change[struct{}], error) {
			return applyChange(s, func(current []domain.Quote) ([]domain.Quote, struct{}, bool) {
				return append(current, q), struct{}{}, true
			}), nil
		},
		Verify: func(_ context.Context, q domain.Quote, _ change[struct{}]) error {
			if !domain.Contains(s.Snapshot(), q) {
				return errors.New("quote missing from collection after append")
			}

			return nil
		},
		Archive:  archiveChange[domain.Quote, struct{}](s),
		Rollback: rollbackChange[domain.Quote, struct{}](s),
		Respond: func(_ context.Context, q domain.Quote, _ change[struct{}]) (domain.Quote, error) {
			return q, nil
		},
	}, input)
	s.writeMu.Unlock()

	if err != nil {
		return domain.Quote{}, err
	}

	s.metrics.QuotesAdded(SourceEditor, 1)
	s.logger.InfoContext(ctx, "quote added", slog.String("category", added.Category))
	s.postInBackground(ctx, added)

	return added, nil
}

// Export returns the collection as a pretty-printed JSON array.
func (s *QuoteService) Export(_ context.Context) ([]byte, error) {
	return domain.MarshalExport(s.Snapshot())
}

// Import parses data as a JSON array of quotes and appends every record whose
// (text, category) pair is not already present. Invalid input is rejected as
// a whole with a validation error.
func (s *QuoteService) Import(ctx context.Context, data []byte) (domain.ImportReport, error) {
	incoming, err := domain.ParseQuotes(data)
	if err != nil {
		return domain.ImportReport{}, err
	}

	s.writeMu.Lock()
	report, err := Execute(ctx, s.exec, Operation[[]domain.Quote, change[domain.ImportReport], domain.ImportReport]{
		Name: "import_quotes",
		Perform: func(_ context.Context, in []domain.Quote) (change[domain.ImportReport], error) {
			return applyChange(s, func(current []domain.Quote) ([]domain.Quote, domain.ImportReport, bool) {
				merged, report := domain.AppendUnique(current, in)
				return merged, report, report.Added > 0
			}), nil
		},
		Verify:   verifyGrowth[[]domain.Quote](s, func(r domain.ImportReport) int { return r.Added }),
		Archive:  archiveChange[[]domain.Quote, domain.ImportReport](s),
		Rollback: rollbackChange[[]domain.Quote, domain.ImportReport](s),
		Respond: func(_ context.Context, _ []domain.Quote, c change[domain.ImportReport]) (domain.ImportReport, error) {
			return c.report, nil
		},
	}, incoming)
	s.writeMu.Unlock()

	if err != nil {
		return domain.ImportReport{}, err
	}

	s.metrics.QuotesAdded(SourceImport, report.Added)
	s.logger.InfoContext(ctx, "quotes imported",
		slog.Int("added", report.Added),
		slog.Int("skipped", report.Skipped),
	)

	return report, nil
}

// ApplyMerge merges incoming server records by text and persists the result
// when anything changed.
func (s *QuoteService) ApplyMerge(ctx context.Context, incoming []domain.Quote) (domain.MergeReport, error) {
	s.writeMu.Lock()
	report, err := Execute(ctx, s.exec, Operation[[]domain.Quote, change[domain.MergeReport], domain.MergeReport]{
		Name: "merge_server_quotes",
		Perform: func(_ context.Context, in []domain.Quote) (change[domain.MergeReport], error) {
			return applyChange(s, func(current []domain.Quote) ([]domain.Quote, domain.MergeReport, bool) {
				merged, report := domain.Merge(current, in)
				return merged, report, report.Changed()
			}), nil
		},
		Verify:   verifyGrowth[[]domain.Quote](s, func(r domain.MergeReport) int { return r.Added }),
		Archive:  archiveChange[[]domain.Quote, domain.MergeReport](s),
		Rollback: rollbackChange[[]domain.Quote, domain.MergeReport](s),
		Respond: func(_ context.Context, _ []domain.Quote, c change[domain.MergeReport]) (domain.MergeReport, error) {
			return c.report, nil
		},
	}, incoming)
	s.writeMu.Unlock()

	if err != nil {
		return domain.MergeReport{}, err
	}

	s.metrics.QuotesAdded(SourceSync, report.Added)

	return report, nil
}

// WaitForPosts blocks until background posts have finished.
func (s *QuoteService) WaitForPosts() {
	_ = s.posts.Wait()
}

func (s *QuoteService) postInBackground(ctx context.Context, q domain.Quote) {
	if !s.postOnAdd {
		return
	}

	// The request context ends with the request; the post outlives it but
	// keeps its logger and request IDs.
	bg := context.WithoutCancel(ctx)

	started := s.posts.TryGo(func() error {
		if err := s.remote.PostQuote(bg, q); err != nil {
			s.logger.WarnContext(bg, "posting quote to server failed", slog.Any("error", err))
		}

		return nil
	})
	if !started {
		s.logger.WarnContext(ctx, "too many posts in flight, quote not sent to server")
	}
}

// change is the in-memory effect of a perform step.
type change[T any] struct {
	before  []domain.Quote
	after   []domain.Quote
	report  T
	changed bool
}

// applyChange runs fn on a copy of the collection and installs the result
// when fn reports a change. Callers hold writeMu.
func applyChange[T any](s *QuoteService, fn func(current []domain.Quote) ([]domain.Quote, T, bool)) change[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.quotes
	after, report, changed := fn(domain.Clone(before))

	if changed {
		s.quotes = after
	}

	return change[T]{before: before, after: after, report: report, changed: changed}
}

// verifyGrowth checks that the collection grew by exactly added(report).
func verifyGrowth[I, T any](s *QuoteService, added func(T) int) func(context.Context, I, change[T]) error {
	return func(_ context.Context, _ I, c change[T]) error {
		want := len(c.before)
		if c.changed {
			want += added(c.report)
		}

		if got := len(s.Snapshot()); got != want {
			return fmt.Errorf("collection has %d quotes, want %d", got, want)
		}

		return nil
	}
}

// archiveChange persists a changed collection.
func archiveChange[I, T any](s *QuoteService) func(context.Context, I, change[T]) error {
	return func(ctx context.Context, _ I, c change[T]) error {
		if !c.changed {
			return nil
		}

		if err := s.repo.SaveQuotes(ctx, c.after); err != nil {
			return fmt.Errorf("saving quotes: %w", err)
		}

		s.metrics.CollectionSize(len(c.after))

		return nil
	}
}

// rollbackChange restores the collection as it was before perform.
func rollbackChange[I, T any](s *QuoteService) func(context.Context, I, change[T]) {
	return func(_ context.Context, _ I, c change[T]) {
		if !c.changed {
			return
		}

		s.mu.Lock()
		s.quotes = c.before
		s.mu.Unlock()
	}
}

type noopMetrics struct{}

func (noopMetrics) QuotesAdded(string, int)   {}
func (noopMetrics) SyncCompleted(string, int) {}
func (noopMetrics) CollectionSize(int)        {}
