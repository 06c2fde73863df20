// Package app initializes and runs the cache subsystem: it wires the
// durable store, the inventory and SKU caches and their background engines,
// and handles graceful shutdown. All state hangs off the App value; there
// are no package-level singletons, so tests can run several instances side
// by side.
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/DustanBaker/The-Uplink/internal/config"
	"github.com/DustanBaker/The-Uplink/internal/export"
	"github.com/DustanBaker/The-Uplink/internal/inventory"
	"github.com/DustanBaker/The-Uplink/internal/logging"
	"github.com/DustanBaker/The-Uplink/internal/retryx"
	"github.com/DustanBaker/The-Uplink/internal/sku"
	"github.com/DustanBaker/The-Uplink/internal/store/durable"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	remote    *durable.Store
	Inventory *inventory.Cache
	SKUs      *sku.Cache
	syncer    *inventory.Syncer
	refresher *sku.Refresher
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	remote := durable.NewStore(cfg.DurableDir, cfg.RemoteBusyTimeout,
		retryx.Config{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay}, logger)

	inv, err := inventory.NewCache(ctx, cfg, remote, logger)
	if err != nil {
		_ = remote.Close()
		return nil, err
	}
	skus, err := sku.NewCache(ctx, cfg, remote, logger)
	if err != nil {
		inv.Close()
		_ = remote.Close()
		return nil, err
	}

	return &App{
		config:    cfg,
		logger:    logger,
		remote:    remote,
		Inventory: inv,
		SKUs:      skus,
		syncer:    inventory.NewSyncer(inv, cfg.Projects, cfg.InventorySyncInterval, cfg.InitialSyncDelay),
		refresher: sku.NewRefresher(skus, cfg.SKUSyncInterval),
	}, nil
}

// ExportProject archives the project's active inventory and writes the
// snapshot as a CSV file into dir. Returns the path of the written file.
func (app *App) ExportProject(ctx context.Context, project, dir string) (string, error) {
	res, err := app.Inventory.ArchiveAndExport(ctx, project)
	if err != nil {
		return "", err
	}
	path, err := export.WriteFile(dir, project, res.Records)
	if err != nil {
		return "", err
	}
	app.logger.Info(ctx, "export written", "project", project, "path", path,
		"moved", res.Moved, "retained", res.Retained)
	return path, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the background engines and blocks until the context ends or an
// OS signal arrives, then stops everything and closes the stores.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting cache subsystem",
		"durable_dir", app.config.DurableDir,
		"cache_dir", app.config.LocalCacheDir,
		"projects", app.config.Projects)

	app.initSignalHandler(cancelFunc)

	app.syncer.Start(ctx)
	app.refresher.Start(ctx)

	<-ctx.Done()
	app.logger.Info(ctx, "shutting down")

	app.syncer.Stop()
	app.refresher.Stop()
	app.Inventory.Close()
	app.SKUs.Close()
	if err := app.remote.Close(); err != nil {
		app.logger.Error(ctx, "failed to close durable store", "error", err)
	}
}
