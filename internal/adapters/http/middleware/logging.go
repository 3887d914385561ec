package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotekeeper/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotekeeper/internal/platform/logging"
)

// Logging returns middleware that derives the request logger from logger,
// stores it in the request context, and logs each completed request. It
// runs after RequestID, CorrelationID and the tracing middleware so their
// IDs end up on every record. Ops endpoints under /-/ and the extra
// skipPaths get the request logger but no access log.
func Logging(logger *slog.Logger, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		attrs := []any{
			slog.String("request_id", GetRequestID(c)),
			slog.String("correlation_id", GetCorrelationID(c)),
		}
		if traceID := dto.GetTraceID(c); traceID != "" {
			attrs = append(attrs, slog.String("trace_id", traceID))
		}

		reqLogger := logger.With(attrs...)
		c.Request = c.Request.WithContext(logging.WithContext(ctx, reqLogger))

		path := c.Request.URL.Path
		if _, ok := skip[path]; ok || strings.HasPrefix(path, "/-/") {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		reqLogger.Log(c.Request.Context(), level, "request completed",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("route", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("latency", latency),
			slog.Int("bytes", c.Writer.Size()),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}
