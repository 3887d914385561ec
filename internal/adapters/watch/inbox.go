// Package watch imports quote files dropped into an inbox directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jsamuelsen/quotekeeper/internal/domain"
)

// DefaultDebounce is how long a file must be quiet before it is imported.
const DefaultDebounce = 250 * time.Millisecond

// Suffixes appended to processed files.
const (
	SuffixImported = ".imported"
	SuffixFailed   = ".failed"
)

// maxInboxFileSize bounds a single inbox file.
const maxInboxFileSize = 10 << 20

// Importer merges an exported quote file into the collection.
// *app.QuoteService implements it.
type Importer interface {
	Import(ctx context.Context, data []byte) (domain.ImportReport, error)
}

// InboxConfig wires an Inbox. Dir and Importer are required.
type InboxConfig struct {
	Dir      string
	Importer Importer
	Debounce time.Duration
	Logger   *slog.Logger
}

// Result describes one processed inbox file.
type Result struct {
	Path   string
	Report domain.ImportReport
	Err    error
}

// Inbox watches a directory for .json files and imports each one once it has
// stopped changing. Imported files are renamed with SuffixImported, rejected
// ones with SuffixFailed, so a file is never imported twice.
type Inbox struct {
	dir      string
	importer Importer
	debounce time.Duration
	logger   *slog.Logger
	now      func() time.Time

	// OnResult, when set, is called after every processed file.
	OnResult func(Result)

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewInbox creates an inbox watcher. The directory is created on Run.
func NewInbox(cfg InboxConfig) (*Inbox, error) {
	if cfg.Dir == "" {
		return nil, errors.New("inbox directory is required")
	}

	if cfg.Importer == nil {
		return nil, errors.New("inbox importer is required")
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Inbox{
		dir:      filepath.Clean(cfg.Dir),
		importer: cfg.Importer,
		debounce: debounce,
		logger:   logger.With(slog.String("component", "watch.Inbox"), slog.String("dir", cfg.Dir)),
		now:      time.Now,
		pending:  make(map[string]time.Time),
	}, nil
}

// Run watches the inbox until ctx is done. Files already waiting in the
// directory are picked up first. Run returns nil when ctx is canceled.
func (in *Inbox) Run(ctx context.Context) error {
	if err := os.MkdirAll(in.dir, 0o750); err != nil {
		return fmt.Errorf("creating inbox %s: %w", in.dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(in.dir); err != nil {
		return fmt.Errorf("watching %s: %w", in.dir, err)
	}

	in.scanExisting()
	in.logger.InfoContext(ctx, "inbox watcher started", slog.Duration("debounce", in.debounce))

	ticker := time.NewTicker(in.tickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			in.logger.InfoContext(ctx, "inbox watcher stopped")

			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			in.handleEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			in.logger.WarnContext(ctx, "inbox watcher error", slog.Any("error", err))

		case <-ticker.C:
			in.processDue(ctx)
		}
	}
}

func (in *Inbox) tickInterval() time.Duration {
	return max(in.debounce/4, 5*time.Millisecond)
}

func (in *Inbox) handleEvent(event fsnotify.Event) {
	if !isInboxFile(event.Name) {
		return
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	in.touch(event.Name)
}

func (in *Inbox) scanExisting() {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		in.logger.Warn("reading inbox failed", slog.Any("error", err))

		return
	}

	for _, e := range entries {
		if e.Type().IsRegular() && isInboxFile(e.Name()) {
			in.touch(filepath.Join(in.dir, e.Name()))
		}
	}
}

// touch restarts the quiet period for path.
func (in *Inbox) touch(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.pending[path] = in.now()
}

// processDue imports every pending file whose quiet period has elapsed.
func (in *Inbox) processDue(ctx context.Context) {
	now := in.now()

	var due []string

	in.mu.Lock()
	for path, last := range in.pending {
		if now.Sub(last) >= in.debounce {
			due = append(due, path)
			delete(in.pending, path)
		}
	}
	in.mu.Unlock()

	for _, path := range due {
		in.process(ctx, path)
	}
}

func (in *Inbox) process(ctx context.Context, path string) {
	logger := in.logger.With(slog.String("file", filepath.Base(path)))

	report, err := in.importFile(ctx, path)
	if errors.Is(err, os.ErrNotExist) {
		// Removed or renamed before the quiet period ended.
		return
	}

	suffix := SuffixImported
	if err != nil {
		suffix = SuffixFailed

		logger.WarnContext(ctx, "inbox import failed", slog.Any("error", err))
	} else {
		logger.InfoContext(ctx, "inbox file imported",
			slog.Int("added", report.Added),
			slog.Int("skipped", report.Skipped),
		)
	}

	if renameErr := os.Rename(path, path+suffix); renameErr != nil {
		logger.ErrorContext(ctx, "renaming inbox file failed", slog.Any("error", renameErr))
	}

	if in.OnResult != nil {
		in.OnResult(Result{Path: path, Report: report, Err: err})
	}
}

func (in *Inbox) importFile(ctx context.Context, path string) (domain.ImportReport, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.ImportReport{}, err
	}

	if info.Size() > maxInboxFileSize {
		return domain.ImportReport{}, domain.NewValidationError("file", "exceeds 10MB")
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the watched inbox
	if err != nil {
		return domain.ImportReport{}, err
	}

	return in.importer.Import(ctx, data)
}

func isInboxFile(name string) bool {
	base := filepath.Base(name)

	return strings.EqualFold(filepath.Ext(base), ".json") && !strings.HasPrefix(base, ".")
}
