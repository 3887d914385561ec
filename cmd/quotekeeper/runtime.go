package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jsamuelsen/quotekeeper/internal/adapters/clients"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/storage"
	"github.com/jsamuelsen/quotekeeper/internal/app"
	"github.com/jsamuelsen/quotekeeper/internal/platform/config"
	"github.com/jsamuelsen/quotekeeper/internal/platform/logging"
	"github.com/jsamuelsen/quotekeeper/internal/platform/telemetry"
	"github.com/jsamuelsen/quotekeeper/internal/ports"
)

// runtime is everything a command needs, wired from config.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger

	store    ports.KeyValueStore
	service  *app.QuoteService
	feed     *app.NotificationFeed
	remote   *acl.SyncClient
	poller   *app.SyncPoller
	health   *ports.DefaultHealthRegistry
	registry *prometheus.Registry
}

// loadConfig loads and validates configuration (fail fast).
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.profile, config.WithConfigDir(opts.configDir))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return logging.NewWithWriter(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	}, w)
}

// bootstrap opens the store, loads the collection and builds the sync
// remote and poller. Logs go to logOut. Callers must Close the runtime.
func bootstrap(ctx context.Context, cfg *config.Config, logOut io.Writer) (*runtime, error) {
	logger := newLogger(cfg, logOut)

	store, err := storage.Open(cfg.Store.Driver, cfg.Store.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}

	rt := &runtime{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		feed:     app.NewNotificationFeed(cfg.Sync.NotificationTTL),
		health:   ports.NewHealthRegistry(),
		registry: prometheus.NewRegistry(),
	}

	if err := rt.wire(ctx); err != nil {
		return nil, errors.Join(err, store.Close())
	}

	return rt, nil
}

func (rt *runtime) wire(ctx context.Context) error {
	cfg := rt.cfg

	rt.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := telemetry.NewQuoteMetrics(rt.registry)
	if err != nil {
		return fmt.Errorf("registering quote metrics: %w", err)
	}

	if err := rt.health.Register(storage.HealthChecker(rt.store, cfg.Store.QuotesKey)); err != nil {
		return fmt.Errorf("registering store health check: %w", err)
	}

	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.Sync.BaseURL,
		ServiceName: acl.SyncServiceName,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		Logger:      rt.logger,
	})
	if err != nil {
		return fmt.Errorf("creating sync client: %w", err)
	}

	rt.remote = acl.NewSyncClient(acl.SyncClientConfig{
		Client:       httpClient,
		Mode:         cfg.Sync.Mode,
		PostLimit:    cfg.Sync.PostLimit,
		PostCategory: cfg.Sync.PostCategory,
		Logger:       rt.logger,
	})

	if cfg.Sync.Enabled {
		if err := rt.health.Register(rt.remote); err != nil {
			return fmt.Errorf("registering sync remote health check: %w", err)
		}
	}

	rt.service = app.NewQuoteService(app.QuoteServiceConfig{
		Repository: storage.NewQuoteRepository(rt.store, cfg.Store.QuotesKey, rt.logger),
		// The last viewed category is session state and dies with the process.
		Preferences: storage.NewPreferences(rt.store, storage.NewMemoryStore(), cfg.Store.SelectedCategoryKey),
		Remote:      rt.remote,
		PostOnAdd:   cfg.Sync.PostOnAdd,
		Metrics:     metrics,
		Logger:      rt.logger,
	})

	if err := rt.service.Load(ctx); err != nil {
		return err
	}

	rt.poller = app.NewSyncPoller(app.SyncPollerConfig{
		Merger:   rt.service,
		Remote:   rt.remote,
		Notifier: rt.feed,
		Metrics:  metrics,
		Interval: cfg.Sync.Interval,
		Logger:   rt.logger,
	})

	return nil
}

// Close waits for background posts and closes the store.
func (rt *runtime) Close() error {
	rt.service.WaitForPosts()

	if err := rt.store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}

	return nil
}
