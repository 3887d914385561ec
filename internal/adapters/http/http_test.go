package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotekeeper/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/storage"
	"github.com/jsamuelsen/quotekeeper/internal/app"
	"github.com/jsamuelsen/quotekeeper/internal/platform/config"
	"github.com/jsamuelsen/quotekeeper/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testServerConfig(maxRequestSize int64) *config.ServerConfig {
	return &config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            0,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		IdleTimeout:     time.Second,
		ShutdownTimeout: time.Second,
		RequestTimeout:  time.Second,
		MaxRequestSize:  maxRequestSize,
	}
}

// newTestServer wires a server the way the serve command does, over
// in-memory stores.
func newTestServer(t *testing.T, maxRequestSize int64) *Server {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	store := storage.NewMemoryStore()

	service := app.NewQuoteService(app.QuoteServiceConfig{
		Repository:  storage.NewQuoteRepository(store, "", logger),
		Preferences: storage.NewPreferences(store, storage.NewMemoryStore(), ""),
		Logger:      logger,
	})
	require.NoError(t, service.Load(context.Background()))

	feed := app.NewNotificationFeed(0)

	registry := ports.NewHealthRegistry()
	require.NoError(t, registry.Register(storage.HealthChecker(store, "health")))

	srv := New(testServerConfig(maxRequestSize), logger)
	SetupRouter(srv.Engine(), RouterConfig{
		ServiceName:   "quotekeeper-test",
		Logger:        logger,
		HealthHandler: handlers.NewHealthHandler(registry, handlers.NewBuildInfo("test", "abc", ""), prometheus.NewRegistry()),
		QuoteHandler:  handlers.NewQuoteHandler(service, nil, feed),
		PageHandler:   handlers.NewPageHandler("Quotes", service, feed),
		Timeout:       time.Second,
	})

	return srv
}

func TestRouter_Routes(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		wantStatus  int
		wantContent string
	}{
		{name: "page", method: http.MethodGet, path: "/", wantStatus: http.StatusOK, wantContent: "text/html"},
		{name: "liveness", method: http.MethodGet, path: "/-/live", wantStatus: http.StatusOK, wantContent: "application/json"},
		{name: "readiness", method: http.MethodGet, path: "/-/ready", wantStatus: http.StatusOK, wantContent: "application/json"},
		{name: "metrics", method: http.MethodGet, path: "/-/metrics", wantStatus: http.StatusOK, wantContent: "text/plain"},
		{name: "list quotes", method: http.MethodGet, path: "/api/v1/quotes", wantStatus: http.StatusOK, wantContent: "application/json"},
		{name: "random quote", method: http.MethodGet, path: "/api/v1/quotes/random", wantStatus: http.StatusOK, wantContent: "application/json"},
		{name: "add quote", method: http.MethodPost, path: "/api/v1/quotes", body: `{"text":"t","category":"c"}`, wantStatus: http.StatusCreated, wantContent: "application/json"},
		{name: "sync without poller", method: http.MethodPost, path: "/api/v1/sync", wantStatus: http.StatusServiceUnavailable, wantContent: "application/json"},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/nope", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, 1<<20)

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}

			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Contains(t, w.Header().Get("Content-Type"), tt.wantContent)
			assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
		})
	}
}

func TestRouter_PropagatesRequestID(t *testing.T) {
	srv := newTestServer(t, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes/random?category=missing", nil)
	req.Header.Set(middleware.HeaderRequestID, "req-42")
	req.Header.Set(middleware.HeaderCorrelationID, "corr-42")

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "req-42", w.Header().Get(middleware.HeaderRequestID))
	assert.Equal(t, "corr-42", w.Header().Get(middleware.HeaderCorrelationID))

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "No quotes in this category.", resp.Error.Message)
}

func TestServer_LimitsImportSize(t *testing.T) {
	srv := newTestServer(t, 64)

	body := bytes.Repeat([]byte(" "), 128)
	body = append(body, []byte(`[{"text":"t","category":"c"}]`)...)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes/import", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrorCodeBadRequest, resp.Error.Code)
}

func TestServer_Run(t *testing.T) {
	srv := New(testServerConfig(1024), slog.New(slog.DiscardHandler))
	srv.Engine().GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, "127.0.0.1:0", srv.Addr())
	assert.Empty(t, srv.BoundAddr())
	assert.Equal(t, int64(1024), srv.Config().MaxRequestSize)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, func() bool { return srv.BoundAddr() != "" }, time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + srv.BoundAddr() + "/ping")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestServer_RunListenError(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = busy.Close() })

	cfg := testServerConfig(1024)
	cfg.Port = busy.Addr().(*net.TCPAddr).Port

	srv := New(cfg, slog.New(slog.DiscardHandler))

	err = srv.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listening on")
}
