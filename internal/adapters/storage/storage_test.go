package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/quotekeeper/internal/domain"
	"github.com/jsamuelsen/quotekeeper/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// backends returns one fresh instance of every durable-capable store.
func backends(t *testing.T) map[string]ports.KeyValueStore {
	t.Helper()

	dir := t.TempDir()

	fileStore, err := NewFileStore(filepath.Join(dir, "nested", "quotes.json"))
	require.NoError(t, err)

	sqliteStore, err := NewSQLiteStore(filepath.Join(dir, "quotes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]ports.KeyValueStore{
		DriverFile:   fileStore,
		DriverSQLite: sqliteStore,
		DriverMemory: NewMemoryStore(),
	}
}

func TestKeyValueStores(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := store.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.Set(ctx, "k", "v1"))
			require.NoError(t, store.Set(ctx, "k", "v2"))
			require.NoError(t, store.Set(ctx, "empty", ""))

			v, ok, err := store.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v2", v)

			v, ok, err = store.Get(ctx, "empty")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Empty(t, v)
		})
	}
}

func TestDurableStores_SurviveReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name string
		open func() (ports.KeyValueStore, error)
	}{
		{name: DriverFile, open: func() (ports.KeyValueStore, error) { return NewFileStore(filepath.Join(dir, "store.json")) }},
		{name: DriverSQLite, open: func() (ports.KeyValueStore, error) { return NewSQLiteStore(filepath.Join(dir, "store.db")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := tt.open()
			require.NoError(t, err)
			require.NoError(t, first.Set(ctx, "quotes", `[{"text":"x","category":"A"}]`))
			require.NoError(t, first.Close())

			second, err := tt.open()
			require.NoError(t, err)
			t.Cleanup(func() { _ = second.Close() })

			v, ok, err := second.Get(ctx, "quotes")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.JSONEq(t, `[{"text":"x","category":"A"}]`, v)
		})
	}
}

func TestFileStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := NewFileStore(path)

	var corrupt *CorruptDocumentError
	require.ErrorAs(t, err, &corrupt)
	require.NotNil(t, store)

	require.NoError(t, store.Set(context.Background(), "k", "v"))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)

	v, _, err := reopened.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileStore(filepath.Join(dir, "store.json"))
	require.NoError(t, err)

	for range 5 {
		require.NoError(t, store.Set(context.Background(), "k", "v"))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "store.json", entries[0].Name())
}

func TestStores_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, store.Set(ctx, "k", "v"))
		})
	}
}

func TestSQLiteStore_Pragmas(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "quotes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var (
		journalMode string
		busyTimeout int
	)

	require.NoError(t, store.db.QueryRow(`PRAGMA journal_mode`).Scan(&journalMode))
	require.NoError(t, store.db.QueryRow(`PRAGMA busy_timeout`).Scan(&busyTimeout))

	assert.Equal(t, "wal", journalMode)
	assert.Equal(t, 5000, busyTimeout)
}

func TestSQLiteStore_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes.db")

	// Two handles on one file stand in for the server and a CLI run.
	first, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close() })

	second, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	const (
		writers = 8
		writes  = 50
	)

	ctx := context.Background()

	var g errgroup.Group

	for w := range writers {
		store := first
		if w%2 == 1 {
			store = second
		}

		g.Go(func() error {
			for i := range writes {
				if err := store.Set(ctx, fmt.Sprintf("k%d", w), fmt.Sprintf("v%d", i)); err != nil {
					return err
				}
			}

			return nil
		})
	}

	require.NoError(t, g.Wait())

	for w := range writers {
		got, ok, err := first.Get(ctx, fmt.Sprintf("k%d", w))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, fmt.Sprintf("v%d", writes-1), got)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	for _, driver := range []string{DriverFile, DriverSQLite, DriverMemory} {
		store, err := Open(driver, filepath.Join(dir, driver+".store"), discardLogger())
		require.NoError(t, err, driver)
		require.NoError(t, store.Close())
	}

	_, err := Open("redis", "", discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestOpen_CorruptFileIsRecovered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o600))

	store, err := Open(DriverFile, path, discardLogger())
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestHealthChecker(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			checker := HealthChecker(store, DefaultQuotesKey)

			assert.Equal(t, "store", checker.Name())
			assert.NoError(t, checker.Check(context.Background()))
		})
	}
}

func TestQuoteRepository_Load(t *testing.T) {
	tests := []struct {
		name       string
		stored     *string
		want       []domain.Quote
		wantSeeded bool
	}{
		{name: "nothing stored", stored: nil, want: domain.SeedQuotes(), wantSeeded: true},
		{name: "valid array", stored: ptr(`[{"text":"x","category":"A"}]`), want: []domain.Quote{{Text: "x", Category: "A"}}},
		{name: "empty array is kept", stored: ptr(`[]`), want: []domain.Quote{}},
		{name: "malformed json", stored: ptr(`[{"text":`), want: domain.SeedQuotes(), wantSeeded: true},
		{name: "wrong shape", stored: ptr(`{"quotes":[]}`), want: domain.SeedQuotes(), wantSeeded: true},
		{name: "empty field", stored: ptr(`[{"text":"","category":"A"}]`), want: domain.SeedQuotes(), wantSeeded: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := NewMemoryStore()

			if tt.stored != nil {
				require.NoError(t, kv.Set(ctx, DefaultQuotesKey, *tt.stored))
			}

			repo := NewQuoteRepository(kv, "", discardLogger())

			got, seeded, err := repo.LoadQuotes(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantSeeded, seeded)
		})
	}
}

func TestQuoteRepository_SaveThenLoad(t *testing.T) {
	ctx := context.Background()

	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			repo := NewQuoteRepository(kv, "custom", discardLogger())
			quotes := append(domain.SeedQuotes(), domain.Quote{Text: "x", Category: "A"})

			require.NoError(t, repo.SaveQuotes(ctx, quotes))

			raw, ok, err := kv.Get(ctx, "custom")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Contains(t, raw, `"text":"x"`)

			got, seeded, err := repo.LoadQuotes(ctx)
			require.NoError(t, err)
			assert.False(t, seeded)
			assert.Equal(t, quotes, got)
		})
	}
}

func TestQuoteRepository_SaveNilWritesEmptyArray(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()

	require.NoError(t, NewQuoteRepository(kv, "", nil).SaveQuotes(ctx, nil))

	raw, _, err := kv.Get(ctx, DefaultQuotesKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
}

func TestPreferences(t *testing.T) {
	ctx := context.Background()
	durable, session := NewMemoryStore(), NewMemoryStore()
	prefs := NewPreferences(durable, session, "")

	selected, err := prefs.SelectedCategory(ctx)
	require.NoError(t, err)
	assert.Empty(t, selected)

	require.NoError(t, prefs.SetSelectedCategory(ctx, "Motivation"))
	require.NoError(t, prefs.SetLastViewedCategory(ctx, "Programming"))

	selected, err = prefs.SelectedCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Motivation", selected)

	last, err := prefs.LastViewedCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Programming", last)

	v, _, _ := durable.Get(ctx, DefaultSelectedCategoryKey)
	assert.Equal(t, "Motivation", v)

	_, ok, _ := durable.Get(ctx, LastViewedCategoryKey)
	assert.False(t, ok, "last viewed category must stay in the session store")
}

func ptr(s string) *string { return &s }
