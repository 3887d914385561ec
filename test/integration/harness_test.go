//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotekeeper/internal/adapters/clients"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/clients/acl"
	httpadapter "github.com/jsamuelsen/quotekeeper/internal/adapters/http"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/storage"
	"github.com/jsamuelsen/quotekeeper/internal/app"
	"github.com/jsamuelsen/quotekeeper/internal/domain"
	"github.com/jsamuelsen/quotekeeper/internal/platform/config"
	"github.com/jsamuelsen/quotekeeper/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type remotePost struct {
	UserID int    `json:"userId"`
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// remoteStub is a jsonplaceholder-style /posts server.
type remoteStub struct {
	// failures makes the next n GET /posts answer 503.
	failures atomic.Int32
	down     atomic.Bool
	fetches  atomic.Int32

	mu       sync.Mutex
	titles   []string
	received []domain.Quote
}

func (r *remoteStub) setTitles(titles ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.titles = titles
}

func (r *remoteStub) receivedQuotes() []domain.Quote {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]domain.Quote(nil), r.received...)
}

func (r *remoteStub) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.down.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	switch {
	case req.Method == http.MethodGet && req.URL.Path == "/posts":
		r.fetches.Add(1)

		if r.failures.Load() > 0 {
			r.failures.Add(-1)
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		r.mu.Lock()
		posts := make([]remotePost, len(r.titles))
		for i, title := range r.titles {
			posts[i] = remotePost{UserID: 1, ID: i + 1, Title: title, Body: "body"}
		}
		r.mu.Unlock()

		_ = json.NewEncoder(w).Encode(posts)

	case req.Method == http.MethodGet && req.URL.Path == "/posts/1":
		_ = json.NewEncoder(w).Encode(remotePost{ID: 1})

	case req.Method == http.MethodPost && req.URL.Path == "/posts":
		var q domain.Quote
		if err := json.NewDecoder(req.Body).Decode(&q); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		r.mu.Lock()
		r.received = append(r.received, q)
		r.mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":101}`))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// harnessConfig selects the store and the sync behaviour of a harness.
type harnessConfig struct {
	// StorePath selects a SQLite store; empty means in-memory.
	StorePath string
	SyncMode  string
	PostOnAdd bool
	Interval  time.Duration
}

// harness is the full application wired in-process against a remoteStub.
type harness struct {
	remote    *remoteStub
	remoteSrv *httptest.Server
	appSrv    *httptest.Server

	store   ports.KeyValueStore
	service *app.QuoteService
	poller  *app.SyncPoller
	feed    *app.NotificationFeed
}

func testClientConfig(baseURL string) *clients.Config {
	return &clients.Config{
		ServiceName: acl.SyncServiceName,
		BaseURL:     baseURL,
		Timeout:     2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: 5 * time.Millisecond,
			MaxInterval:     20 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   3,
			Timeout:       time.Minute,
			HalfOpenLimit: 1,
		},
		Logger: slog.New(slog.DiscardHandler),
	}
}

// newHarness starts the app. A nil remote gets a fresh stub.
func newHarness(cfg harnessConfig, remote *remoteStub) (*harness, error) {
	if remote == nil {
		remote = &remoteStub{}
		remote.setTitles("sunt aut facere", "qui est esse")
	}

	if cfg.SyncMode == "" {
		cfg.SyncMode = config.SyncModeStandIn
	}

	logger := slog.New(slog.DiscardHandler)

	driver := storage.DriverMemory
	if cfg.StorePath != "" {
		driver = storage.DriverSQLite
	}

	store, err := storage.Open(driver, cfg.StorePath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	h := &harness{
		remote:    remote,
		remoteSrv: httptest.NewServer(remote),
		store:     store,
		feed:      app.NewNotificationFeed(time.Minute),
	}

	client, err := clients.New(testClientConfig(h.remoteSrv.URL))
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("creating client: %w", err)
	}

	syncClient := acl.NewSyncClient(acl.SyncClientConfig{
		Client:       client,
		Mode:         cfg.SyncMode,
		PostLimit:    config.DefaultSyncPostLimit,
		PostCategory: "Server",
		Logger:       logger,
	})

	h.service = app.NewQuoteService(app.QuoteServiceConfig{
		Repository:  storage.NewQuoteRepository(store, "", logger),
		Preferences: storage.NewPreferences(store, storage.NewMemoryStore(), ""),
		Remote:      syncClient,
		PostOnAdd:   cfg.PostOnAdd,
		Logger:      logger,
	})

	if err := h.service.Load(context.Background()); err != nil {
		h.Close()
		return nil, err
	}

	h.poller = app.NewSyncPoller(app.SyncPollerConfig{
		Merger:   h.service,
		Remote:   syncClient,
		Notifier: h.feed,
		Interval: cfg.Interval,
		Logger:   logger,
	})

	registry := ports.NewHealthRegistry()
	if err := errors.Join(
		registry.Register(storage.HealthChecker(store, "health")),
		registry.Register(syncClient),
	); err != nil {
		h.Close()
		return nil, err
	}

	engine := gin.New()
	httpadapter.SetupRouter(engine, httpadapter.RouterConfig{
		ServiceName:   "quotekeeper-integration",
		Logger:        logger,
		HealthHandler: handlers.NewHealthHandler(registry, handlers.NewBuildInfo("test", "test", "test"), nil),
		QuoteHandler:  handlers.NewQuoteHandler(h.service, h.poller, h.feed),
		PageHandler:   handlers.NewPageHandler("Quotes", h.service, h.feed),
		Timeout:       5 * time.Second,
	})

	h.appSrv = httptest.NewServer(engine)

	return h, nil
}

// Close stops both servers and closes the store.
func (h *harness) Close() {
	if h.service != nil {
		h.service.WaitForPosts()
	}

	if h.appSrv != nil {
		h.appSrv.Close()
	}

	h.remoteSrv.Close()
	_ = h.store.Close()
}
