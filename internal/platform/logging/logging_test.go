package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: LevelTrace}))
}

func decodeLine(t *testing.T, data []byte) map[string]any {
	t.Helper()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))

	return entry
}

func TestFromContext(t *testing.T) {
	custom := slog.New(slog.NewTextHandler(io.Discard, nil))

	assert.Equal(t, defaultLogger, FromContext(nil)) //nolint:staticcheck // nil guard
	assert.Equal(t, defaultLogger, FromContext(context.Background()))
	assert.Equal(t, custom, FromContext(WithContext(context.Background(), custom)))
}

func TestFromContextOr(t *testing.T) {
	fallback := slog.New(slog.NewTextHandler(io.Discard, nil))
	custom := slog.New(slog.NewJSONHandler(io.Discard, nil))

	assert.Equal(t, fallback, FromContextOr(nil, fallback)) //nolint:staticcheck // nil guard
	assert.Equal(t, fallback, FromContextOr(context.Background(), fallback))
	assert.Equal(t, custom, FromContextOr(WithContext(context.Background(), custom), fallback))
}

func TestContextIDs(t *testing.T) {
	tests := []struct {
		name  string
		apply func(context.Context) context.Context
		key   string
		value string
	}{
		{name: "request id", apply: func(ctx context.Context) context.Context { return WithRequestID(ctx, "req-1") }, key: "request_id", value: "req-1"},
		{name: "trace id", apply: func(ctx context.Context) context.Context { return WithTraceID(ctx, "trace-2") }, key: "trace_id", value: "trace-2"},
		{name: "correlation id", apply: func(ctx context.Context) context.Context { return WithCorrelationID(ctx, "corr-3") }, key: "correlation_id", value: "corr-3"},
		{
			name:  "arbitrary attrs",
			apply: func(ctx context.Context) context.Context { return WithAttrs(ctx, slog.String("category", "Motivation")) },
			key:   "category",
			value: "Motivation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			ctx := tt.apply(WithContext(context.Background(), jsonLogger(&buf)))
			FromContext(ctx).InfoContext(ctx, "hello")

			assert.Equal(t, tt.value, decodeLine(t, buf.Bytes())[tt.key])
		})
	}
}

func TestSetDefault(t *testing.T) {
	original := defaultLogger
	t.Cleanup(func() { SetDefault(original) })

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	SetDefault(custom)

	assert.Equal(t, custom, FromContext(context.Background()))
	assert.Equal(t, custom, slog.Default())
}

func TestNewWithWriter_Formats(t *testing.T) {
	tests := []struct {
		format   string
		level    string
		logFn    func(*slog.Logger)
		wantJSON bool
		want     string
	}{
		{format: "json", level: "info", logFn: func(l *slog.Logger) { l.Info("quote added") }, wantJSON: true, want: "quote added"},
		{format: "text", level: "debug", logFn: func(l *slog.Logger) { l.Debug("tick") }, want: "tick"},
		{format: "pretty", level: "info", logFn: func(l *slog.Logger) { l.Info("synced") }, want: "synced"},
		{format: "unknown", level: "info", logFn: func(l *slog.Logger) { l.Info("fallback") }, wantJSON: true, want: "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer

			logger := NewWithWriter(&Config{Level: tt.level, Format: tt.format, Service: "quotekeeper", Version: "1.2.3"}, &buf)
			tt.logFn(logger)

			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), "quotekeeper")

			if tt.wantJSON {
				entry := decodeLine(t, buf.Bytes())
				assert.Equal(t, "quotekeeper", entry["service_name"])
				assert.Equal(t, "1.2.3", entry["service_version"])
			}
		})
	}
}

func TestNewWithWriter_TraceLevel(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&Config{Level: "trace", Format: "json"}, &buf)
	logger.Log(context.Background(), LevelTrace, "tick detail")
	assert.Contains(t, buf.String(), "tick detail")

	buf.Reset()

	logger = NewWithWriter(&Config{Level: "debug", Format: "json"}, &buf)
	logger.Log(context.Background(), LevelTrace, "tick detail")
	assert.Empty(t, buf.String())
}

func TestNewWithWriter_PrettyRedacts(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&Config{Level: "info", Format: "pretty"}, &buf)
	logger.With(slog.String("token", "abc-secret")).Info("calling remote", slog.String("password", "hunter2"))

	assert.Contains(t, buf.String(), "calling remote")
	assert.NotContains(t, buf.String(), "hunter2")
	assert.NotContains(t, buf.String(), "abc-secret")
}

func TestNewWithWriter_WithFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "quotekeeper.log")

	var buf bytes.Buffer

	logger := NewWithWriter(&Config{
		Level:  "info",
		Format: "pretty",
		File:   FileConfig{Enabled: true, Path: logFile, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1},
	}, &buf)

	logger.Info("written twice")

	assert.Contains(t, buf.String(), "written twice")

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, "written twice", decodeLine(t, content)["msg"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"trace":   LevelTrace,
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "input %q", in)
	}
}

func TestSlogToCharmLevel(t *testing.T) {
	tests := []struct {
		input    slog.Level
		expected log.Level
	}{
		{LevelTrace, log.DebugLevel},
		{slog.LevelDebug, log.DebugLevel},
		{slog.LevelInfo, log.InfoLevel},
		{slog.LevelInfo + 1, log.InfoLevel},
		{slog.LevelWarn, log.WarnLevel},
		{slog.LevelError, log.ErrorLevel},
		{slog.Level(12), log.ErrorLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, slogToCharmLevel(tt.input), "level %v", tt.input)
	}
}

func TestMultiHandler_Handle(t *testing.T) {
	var debugBuf, infoBuf bytes.Buffer

	multi := NewMultiHandler(
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)
	logger := slog.New(multi)

	logger.Info("both")
	assert.Contains(t, debugBuf.String(), "both")
	assert.Contains(t, infoBuf.String(), "both")

	debugBuf.Reset()
	infoBuf.Reset()

	logger.Debug("debug only")
	assert.Contains(t, debugBuf.String(), "debug only")
	assert.Empty(t, infoBuf.String())

	assert.False(t, multi.Enabled(context.Background(), LevelTrace))
}

func TestMultiHandler_WithAttrsAndGroup(t *testing.T) {
	var a, b bytes.Buffer

	multi := NewMultiHandler(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))
	logger := slog.New(multi.WithAttrs([]slog.Attr{slog.String("component", "sync")}).WithGroup("tick"))

	logger.Info("done", slog.Int("added", 2))

	for _, buf := range []*bytes.Buffer{&a, &b} {
		entry := decodeLine(t, buf.Bytes())
		assert.Equal(t, "sync", entry["component"])
		assert.Equal(t, map[string]any{"added": float64(2)}, entry["tick"])
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestMultiHandler_JoinsErrors(t *testing.T) {
	var buf bytes.Buffer

	multi := NewMultiHandler(
		failingHandler{slog.NewJSONHandler(io.Discard, nil)},
		slog.NewJSONHandler(&buf, nil),
	)

	err := multi.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "still written", 0))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, buf.String(), "still written")
}

func TestNewReplaceAttr(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		shouldRedact bool
	}{
		{name: "password", key: "password", value: "secret123", shouldRedact: true},
		{name: "api key", key: "api_key", value: "k-123", shouldRedact: true},
		{name: "authorization", key: "authorization", value: "Bearer tok", shouldRedact: true},
		{name: "secret prefix", key: "secret_config", value: "sensitive", shouldRedact: true},
		{name: "bearer value", key: "header", value: "Bearer abc123xyz", shouldRedact: true},
		{name: "credentials in url", key: "base_url", value: "https://user:pw@example.com/posts", shouldRedact: true},
		{name: "plain url", key: "base_url", value: "https://jsonplaceholder.typicode.com", shouldRedact: false},
		{name: "quote text", key: "text", value: "Dream big and dare to fail.", shouldRedact: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: NewReplaceAttr()}))
			logger.Info("test", slog.String(tt.key, tt.value))

			if tt.shouldRedact {
				assert.NotContains(t, buf.String(), tt.value)
				assert.Contains(t, buf.String(), tt.key)
			} else {
				assert.Contains(t, buf.String(), tt.value)
			}
		})
	}
}

func TestContextWithRedaction(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: NewReplaceAttr()}))
	ctx := WithRequestID(WithContext(context.Background(), logger), "req-9")

	FromContext(ctx).Info("posting", slog.String("category", "Success"), slog.String("token", "t0k3n"))

	assert.Contains(t, buf.String(), "req-9")
	assert.Contains(t, buf.String(), "Success")
	assert.NotContains(t, buf.String(), "t0k3n")
}
