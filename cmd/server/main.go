// Package main implements the entry point for the inkforge server,
// which drives AI image generation for imported content items: a live
// streaming queue, an asynchronous batch pipeline, near-duplicate
// detection, and vector tracing of approved results.
package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/inkforge/inkforge/internal/config"
	"github.com/inkforge/inkforge/internal/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.Setup(cfg.Server.LogLevel)
	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"queue_concurrency", cfg.Queue.Concurrency,
		"batch_chunk_size", cfg.Batch.ChunkSize)

	ctx := context.Background()

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}

	if err := runMigrations(db, appLogger); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
