package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"CaseScanner/internal/config"
	"CaseScanner/internal/domain"
	"CaseScanner/internal/infrastructure/portal"
	"CaseScanner/internal/infrastructure/scheduler"
	"CaseScanner/internal/infrastructure/storage"
	"CaseScanner/internal/infrastructure/telegram"
	"CaseScanner/internal/logging"
	"CaseScanner/internal/matcher"
	"CaseScanner/internal/ports"
	"CaseScanner/internal/usecase"
	"CaseScanner/internal/window"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.Store
	pipeline *usecase.Pipeline
	archiver *usecase.Archiver
}

// New opens the store and builds every use case from cfg.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	client := portal.NewClient(cfg.Portal, baseLogger.With("component", "portal"))
	files := storage.NewFileStore(cfg.Downloads.Dir)

	reconciler := usecase.NewReconciler(usecase.ReconcilerDeps{
		Store:            store,
		Source:           client,
		Matcher:          matcher.New(files, cfg.Portal.PublicationMarkers, baseLogger.With("component", "matcher")),
		Window:           window.New(cfg.Window.ToleranceDays),
		TestModeFallback: cfg.Reconcile.FallbackEnabled(),
		TestModeLimit:    cfg.Reconcile.TestModeLimit,
		Logger:           baseLogger.With("component", "reconciler"),
	})

	var notifier ports.Notifier
	if tg := telegram.NewNotifier(cfg.Notifications.Telegram); tg.Enabled() {
		notifier = tg
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Extractor:  usecase.NewExtractor(client, store, zonedClock(cfg.Scheduler.Location()), baseLogger.With("component", "extractor")),
		Reconciler: reconciler,
		Store:      store,
		Notifier:   notifier,
		Location:   cfg.Scheduler.Location(),
		Logger:     baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store,
		pipeline: pipeline,
		archiver: usecase.NewArchiver(store, baseLogger.With("component", "archiver")),
	}, nil
}

// Close releases the store.
func (a *Application) Close() error {
	return a.store.Close()
}

// Location is the timezone used for reports.
func (a *Application) Location() *time.Location {
	return a.cfg.Scheduler.Location()
}

// Archiver exposes listing and manual archiving.
func (a *Application) Archiver() *usecase.Archiver {
	return a.archiver
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context, opts usecase.RunOptions) (domain.ExecutionLog, error) {
	if err := a.cfg.Portal.Validate(); err != nil {
		return domain.ExecutionLog{}, fmt.Errorf("invalid config: %w", err)
	}
	return a.pipeline.Run(ctx, opts)
}

// Watch repeats the pipeline on the configured interval until ctx is cancelled.
// A run in progress finishes its current case before Watch returns.
func (a *Application) Watch(ctx context.Context, opts usecase.RunOptions, onResult func(domain.ExecutionLog, error)) error {
	if err := a.cfg.Portal.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval, a.cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, a.pipeline, opts, onResult, a.logger.With("component", "scheduler"))

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("watching", "interval", a.cfg.Scheduler.Interval.String())

	<-ctx.Done()
	return sched.Stop(context.WithoutCancel(ctx))
}

// zonedClock reads the current time in loc, so calendar days follow the configured timezone.
func zonedClock(loc *time.Location) func() time.Time {
	return func() time.Time {
		return time.Now().In(loc)
	}
}
