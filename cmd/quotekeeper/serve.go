package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/jsamuelsen/quotekeeper/internal/adapters/http"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotekeeper/internal/adapters/watch"
	"github.com/jsamuelsen/quotekeeper/internal/platform/logging"
	"github.com/jsamuelsen/quotekeeper/internal/platform/telemetry"
)

const pageTitle = "Dynamic Quote Generator"

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the quote page and API, and sync with the server periodically",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, opts, cmd.OutOrStdout())
		},
	}
}

// runServe runs until ctx is canceled or the server fails. The HTTP server,
// the sync poller and the import inbox share one errgroup, so any of them
// failing stops the others.
func runServe(ctx context.Context, opts *options, logOut io.Writer) (err error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	rt, err := bootstrap(ctx, cfg, logOut)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, rt.Close())
	}()

	logger := rt.logger
	logging.SetDefault(logger)

	logger.InfoContext(ctx, "starting quotekeeper",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("store", cfg.Store.Driver),
		slog.Bool("sync", cfg.Sync.Enabled),
	)

	telProvider, err := telemetry.New(ctx, cfg.App, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	gin.SetMode(gin.ReleaseMode)

	server := httpadapter.New(&cfg.Server, logger)
	httpadapter.SetupRouter(server.Engine(), httpadapter.RouterConfig{
		ServiceName: cfg.App.Name,
		Logger:      logger,
		HealthHandler: handlers.NewHealthHandler(rt.health,
			handlers.NewBuildInfo(Version, Commit, BuildTime), rt.registry),
		QuoteHandler: handlers.NewQuoteHandler(rt.service, rt.poller, rt.feed),
		PageHandler:  handlers.NewPageHandler(pageTitle, rt.service, rt.feed),
		Timeout:      cfg.Server.RequestTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return server.Run(gctx) })

	if cfg.Sync.Enabled {
		g.Go(func() error { return rt.poller.Run(gctx) })
	}

	if cfg.Import.WatchDir != "" {
		inbox, err := newImportInbox(rt)
		if err != nil {
			return err
		}

		g.Go(func() error { return inbox.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("shutdown complete")

	return nil
}

// newImportInbox imports JSON files dropped into the watch directory and
// announces each result on the notification feed.
func newImportInbox(rt *runtime) (*watch.Inbox, error) {
	inbox, err := watch.NewInbox(watch.InboxConfig{
		Dir:      rt.cfg.Import.WatchDir,
		Importer: rt.service,
		Debounce: rt.cfg.Import.Debounce,
		Logger:   rt.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating import inbox: %w", err)
	}

	inbox.OnResult = func(res watch.Result) {
		if res.Err != nil {
			rt.feed.Notify(context.Background(), "Import failed: "+res.Err.Error())
			return
		}

		rt.feed.Notify(context.Background(), fmt.Sprintf("Imported %d quotes (%d already present).",
			res.Report.Added, res.Report.Skipped))
	}

	return inbox, nil
}
