package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pmorneau/taskboard-api/internal/availability"
	"github.com/pmorneau/taskboard-api/internal/config"
	"github.com/pmorneau/taskboard-api/internal/jobs"
	"github.com/pmorneau/taskboard-api/internal/platform/postgres"
	"github.com/pmorneau/taskboard-api/internal/service"
	"github.com/pmorneau/taskboard-api/internal/store"
)

// application holds the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	taskStore       store.TaskStore
	statusStore     store.StatusStore
	projectionStore store.ProjectionStore
	lockStore       store.LockStore

	availabilityService *availability.Service
	lockManager         *availability.LockManager
	sweeper             *availability.Sweeper
	taskService         service.TaskService

	jobRunner *jobs.Runner
}

// newApplication creates an application instance with all dependencies
// initialized. The runner is started and recovery of unfinished jobs has
// run by the time it returns.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	clock := clockwork.NewRealClock()

	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.statusStore = postgres.NewPostgresStatusStore(db, logger)
	app.projectionStore = postgres.NewPostgresProjectionStore(db, logger)
	app.lockStore = postgres.NewPostgresLockStore(db, logger)
	jobStore := postgres.NewPostgresJobStore(db, logger)

	app.availabilityService = availability.NewService(app.projectionStore, app.taskStore)

	app.lockManager = availability.NewLockManager(app.lockStore, clock, availability.LockManagerConfig{
		WaitAttempts: cfg.Lock.WaitAttempts,
		WaitInterval: time.Duration(cfg.Lock.WaitIntervalSeconds) * time.Second,
		StaleAfter:   time.Duration(cfg.Lock.StaleAfterMinutes) * time.Minute,
		RetainFor:    time.Duration(cfg.Lock.RetainForDays) * 24 * time.Hour,
	}, logger)

	app.sweeper = availability.NewSweeper(
		app.lockManager,
		clock,
		time.Duration(cfg.Lock.SweepIntervalMinutes)*time.Minute,
		logger,
	)

	factory := jobs.NewRebuildJobFactory(
		app.taskStore,
		app.projectionStore,
		app.lockManager,
		clock,
		jobs.RetryPolicy{
			MaxAttempts: cfg.Worker.MaxAttempts,
			Backoff:     time.Duration(cfg.Worker.RetryBackoffSeconds) * time.Second,
		},
		logger,
	)

	app.jobRunner = jobs.NewRunner(jobStore, factory, jobs.RunnerConfig{
		WorkerCount: cfg.Worker.Count,
		QueueSize:   cfg.Worker.QueueSize,
		StuckJobAge: 30 * time.Minute,
	}, clock, logger)

	// Start recovers instructions that were accepted before the last
	// shutdown but never finished, then launches the workers. Their locks
	// are reclaimed by the stale sweep, so the rebuilds themselves must not
	// be lost.
	if err := app.jobRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start job runner: %w", err)
	}

	app.sweeper.Start()

	app.taskService = service.NewTaskService(
		db,
		app.taskStore,
		app.statusStore,
		app.availabilityService,
		app.lockManager,
		factory,
		app.jobRunner,
		clock,
		logger,
	)

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.sweeper != nil {
		app.sweeper.Stop()
	}

	if app.jobRunner != nil {
		app.jobRunner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
