package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/inkforge/inkforge/internal/batch"
	"github.com/inkforge/inkforge/internal/config"
	"github.com/inkforge/inkforge/internal/dedupe"
	"github.com/inkforge/inkforge/internal/events"
	"github.com/inkforge/inkforge/internal/platform/gemini"
	"github.com/inkforge/inkforge/internal/platform/postgres"
	"github.com/inkforge/inkforge/internal/platform/vectorizer"
	"github.com/inkforge/inkforge/internal/poller"
	"github.com/inkforge/inkforge/internal/queue"
	"github.com/inkforge/inkforge/internal/storage"
	"github.com/inkforge/inkforge/internal/store"
)

// application holds the shared application dependencies so setup and
// shutdown stay in one place.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores (interfaces, so tests can substitute in-memory versions)
	itemStore         store.ItemStore
	attemptStore      store.AttemptStore
	batchJobStore     store.BatchJobStore
	vectorizeJobStore store.VectorizeJobStore

	// Platform clients
	generationClient *gemini.Client
	tracingClient    *vectorizer.Client
	artifacts        *storage.ArtifactStore

	// Pipeline components
	broker          *events.Broker
	scheduler       *queue.Scheduler
	batchService    *batch.Service
	batchPoller     *poller.BatchPoller
	vectorizePoller *poller.VectorizePoller
	dedupeEngine    *dedupe.Engine

	// pollerCancel stops the background reconciliation loops.
	pollerCancel context.CancelFunc
}

// newApplication creates an application instance with all dependencies
// initialized. Core dependencies (config, logger, database) must be
// established by the caller first.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	app.itemStore = postgres.NewPostgresItemStore(db)
	app.attemptStore = postgres.NewPostgresAttemptStore(db)
	app.batchJobStore = postgres.NewPostgresBatchJobStore(db)
	app.vectorizeJobStore = postgres.NewPostgresVectorizeJobStore(db)

	var err error
	app.generationClient, err = gemini.NewClient(ctx, logger, cfg.Generation)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generation client: %w", err)
	}

	app.tracingClient, err = vectorizer.NewClient(logger, cfg.Vectorizer.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vectorizer client: %w", err)
	}

	app.artifacts, err = storage.NewArtifactStore(cfg.Storage.AssetsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	app.broker = events.NewBroker(logger)

	app.scheduler = queue.NewScheduler(
		logger,
		app.itemStore,
		app.attemptStore,
		app.generationClient,
		app.artifacts,
		app.broker,
		cfg.Queue.Concurrency,
	).WithDB(db)

	app.batchService = batch.NewService(
		logger,
		app.itemStore,
		app.batchJobStore,
		app.generationClient,
		cfg.Batch.ChunkSize,
	)

	app.batchPoller = poller.NewBatchPoller(
		logger,
		app.itemStore,
		app.attemptStore,
		app.batchJobStore,
		app.generationClient,
		app.artifacts,
		cfg.Batch.PollInterval,
	)

	app.vectorizePoller = poller.NewVectorizePoller(
		logger,
		app.itemStore,
		app.attemptStore,
		app.vectorizeJobStore,
		app.tracingClient,
		app.artifacts,
		cfg.Vectorizer.PollInterval,
	)

	app.dedupeEngine = dedupe.NewEngine(
		logger,
		app.generationClient,
		app.itemStore,
		cfg.Dedupe.SimilarityThreshold,
	)

	logger.Info("application initialized")
	return app, nil
}

// Run starts the background pipeline and serves HTTP until shutdown.
func (app *application) Run(ctx context.Context) error {
	if err := app.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	pollerCtx, cancel := context.WithCancel(ctx)
	app.pollerCancel = cancel
	go app.batchPoller.Run(pollerCtx)
	go app.vectorizePoller.Run(pollerCtx)

	router := app.setupRouter()
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources. The
// scheduler drains first so in-flight results still land in the store.
func (app *application) cleanup() {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	if app.pollerCancel != nil {
		app.pollerCancel()
	}

	if app.broker != nil {
		app.broker.Close()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
