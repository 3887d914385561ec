package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotekeeper/internal/domain"
	"github.com/jsamuelsen/quotekeeper/internal/platform/logging"
	"github.com/jsamuelsen/quotekeeper/internal/ports"
)

// DefaultSyncInterval is the time between sync ticks.
const DefaultSyncInterval = 10 * time.Second

// SyncSuccessMessage is the notification pushed when a sync changed the collection.
const SyncSuccessMessage = "Quotes synced with server successfully!"

// Sync results reported to ports.QuoteMetrics.
const (
	SyncResultChanged   = "changed"
	SyncResultUnchanged = "unchanged"
	SyncResultError     = "error"
)

const tracerName = "github.com/jsamuelsen/quotekeeper/internal/app"

// Merger applies server records to the collection. *QuoteService implements it.
type Merger interface {
	ApplyMerge(ctx context.Context, incoming []domain.Quote) (domain.MergeReport, error)
}

// SyncPollerConfig wires a SyncPoller. Merger and Remote are required.
type SyncPollerConfig struct {
	Merger   Merger
	Remote   ports.SyncRemote
	Notifier ports.Notifier
	Metrics  ports.QuoteMetrics
	Interval time.Duration
	Logger   *slog.Logger
}

// SyncStatus describes the most recent sync attempt.
type SyncStatus struct {
	Runs      int                `json:"runs"`
	LastRunAt time.Time          `json:"lastRunAt,omitzero"`
	LastError string             `json:"lastError,omitempty"`
	Last      domain.MergeReport `json:"last"`
}

// SyncPoller fetches server records on a fixed interval and merges them into
// the collection. Ticks and manual syncs never overlap.
type SyncPoller struct {
	merger   Merger
	remote   ports.SyncRemote
	notifier ports.Notifier
	metrics  ports.QuoteMetrics
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	// runMu serializes sync runs.
	runMu sync.Mutex

	statusMu sync.RWMutex
	status   SyncStatus
}

// NewSyncPoller creates a poller. Panics if Merger or Remote is nil.
func NewSyncPoller(cfg SyncPollerConfig) *SyncPoller {
	if cfg.Merger == nil || cfg.Remote == nil {
		panic("SyncPoller: Merger and Remote are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &SyncPoller{
		merger:   cfg.Merger,
		remote:   cfg.Remote,
		notifier: cfg.Notifier,
		metrics:  metrics,
		interval: interval,
		logger:   logger.With(slog.String("component", "app.SyncPoller")),
		now:      time.Now,
	}
}

// Run syncs once immediately and then every interval until ctx is done.
// Failed syncs are logged and do not stop the loop. Run returns nil when ctx
// is canceled.
func (p *SyncPoller) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "sync poller started", slog.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		// Errors are already logged and recorded in Status.
		_, _ = p.SyncNow(ctx)

		select {
		case <-ctx.Done():
			p.logger.InfoContext(ctx, "sync poller stopped")

			return nil
		case <-ticker.C:
		}
	}
}

// SyncNow runs one sync: fetch, merge, and notify when anything changed.
func (p *SyncPoller) SyncNow(ctx context.Context) (domain.MergeReport, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.MergeReport{}, err
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "quotes.sync")
	defer span.End()

	ctx = logging.WithAttrs(ctx, slog.String("component", "sync"))

	incoming, err := p.remote.FetchServerQuotes(ctx)
	if err != nil {
		return p.fail(ctx, span, "fetching server quotes failed", err)
	}

	report, err := p.merger.ApplyMerge(ctx, incoming)
	if err != nil {
		return p.fail(ctx, span, "merging server quotes failed", err)
	}

	span.SetAttributes(
		attribute.Int("quotes.fetched", len(incoming)),
		attribute.Int("quotes.added", report.Added),
		attribute.Int("quotes.updated", report.Updated),
	)

	result := SyncResultUnchanged

	if report.Changed() {
		result = SyncResultChanged

		if p.notifier != nil {
			p.notifier.Notify(ctx, SyncSuccessMessage)
		}

		p.logger.InfoContext(ctx, "quotes synced with server",
			slog.Int("added", report.Added),
			slog.Int("updated", report.Updated),
		)
	} else {
		p.logger.Log(ctx, logging.LevelTrace, "sync found nothing new", slog.Int("fetched", len(incoming)))
	}

	p.metrics.SyncCompleted(result, report.Updated)
	p.record(report, nil)

	return report, nil
}

// Status returns the outcome of the most recent sync.
func (p *SyncPoller) Status() SyncStatus {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()

	return p.status
}

func (p *SyncPoller) fail(ctx context.Context, span trace.Span, msg string, err error) (domain.MergeReport, error) {
	if errors.Is(err, context.Canceled) {
		return domain.MergeReport{}, err
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, msg)

	p.logger.WarnContext(ctx, msg, slog.Any("error", err))
	p.metrics.SyncCompleted(SyncResultError, 0)
	p.record(domain.MergeReport{}, err)

	return domain.MergeReport{}, err
}

func (p *SyncPoller) record(report domain.MergeReport, err error) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()

	p.status.Runs++
	p.status.LastRunAt = p.now()
	p.status.Last = report
	p.status.LastError = ""

	if err != nil {
		p.status.LastError = err.Error()
	}
}
