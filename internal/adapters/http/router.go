package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotekeeper/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotekeeper/internal/platform/telemetry"
)

// DefaultRequestTimeout is the default timeout for API requests.
const DefaultRequestTimeout = 15 * time.Second

// importRoute is exempt from the request timeout; large uploads are bounded
// by the body size limit instead.
const importRoute = "/api/v1/quotes/import"

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	// ServiceName names the otel tracer and the page title.
	ServiceName string

	// Logger is the structured logger for request logging.
	Logger *slog.Logger

	// HealthHandler serves /-/ endpoints. Optional.
	HealthHandler *handlers.HealthHandler

	// QuoteHandler serves /api/v1. Optional.
	QuoteHandler *handlers.QuoteHandler

	// PageHandler serves GET /. Optional.
	PageHandler *handlers.PageHandler

	// Timeout is the request deadline for /api/v1. Zero disables it.
	Timeout time.Duration
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware is applied in the following order (first to last):
//  1. Recovery - catch panics first
//  2. Request ID - generate/extract request ID
//  3. Correlation ID - handle distributed tracing correlation
//  4. OpenTelemetry - tracing and metrics
//  5. Logging - request logging (skips health endpoints)
//  6. Timeout - request deadline on /api/v1, except imports
//
// Route groups:
//   - /-/ (internal): health, build info and metrics
//   - / : the quote page
//   - /api/v1/ : the quote API
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
	)
	engine.Use(telemetry.Middleware(cfg.ServiceName)...)
	engine.Use(middleware.Logging(cfg.Logger))

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterHealthRoutesOnEngine(engine)
	}

	if cfg.PageHandler != nil {
		cfg.PageHandler.RegisterPageRoutes(engine)
	}

	apiV1 := engine.Group("/api/v1")
	if cfg.Timeout > 0 {
		apiV1.Use(middleware.Timeout(cfg.Timeout, importRoute))
	}

	if cfg.QuoteHandler != nil {
		cfg.QuoteHandler.RegisterQuoteRoutes(apiV1)
	}
}
