package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/quotekeeper/internal/ports"
)

// Driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Open returns the durable store for driver. A corrupt file document is
// logged and replaced rather than failing startup.
func Open(driver, path string, logger *slog.Logger) (ports.KeyValueStore, error) {
	switch driver {
	case DriverFile:
		s, err := NewFileStore(path)

		var corrupt *CorruptDocumentError
		if errors.As(err, &corrupt) {
			logger.Warn("ignoring corrupt store document", slog.String("path", path), slog.String("error", err.Error()))
			return s, nil
		}

		return s, err
	case DriverSQLite:
		return NewSQLiteStore(path)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// HealthChecker reports the durable store as healthy when a read succeeds.
func HealthChecker(store ports.KeyValueStore, probeKey string) ports.HealthChecker {
	return ports.HealthCheckerFunc{
		CheckerName: "store",
		Fn: func(ctx context.Context) error {
			if p, ok := store.(interface{ Ping(context.Context) error }); ok {
				return p.Ping(ctx)
			}

			_, _, err := store.Get(ctx, probeKey)

			return err
		},
	}
}
