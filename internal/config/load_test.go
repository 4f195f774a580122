package config_test

import (
	"testing"
	"time"

	"github.com/inkforge/inkforge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Load reads process environment, so these tests use t.Setenv and must
// not run in parallel.

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("INKFORGE_DATABASE_URL", "postgres://localhost:5432/inkforge")
	t.Setenv("INKFORGE_GENERATION_API_KEY", "test-key")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 3, cfg.Queue.Concurrency)
	assert.Equal(t, 10, cfg.Batch.ChunkSize)
	assert.Equal(t, 5*time.Minute, cfg.Batch.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Vectorizer.PollInterval)
	assert.InDelta(t, 0.82, cfg.Dedupe.SimilarityThreshold, 1e-9)
	assert.Equal(t, "text-embedding-004", cfg.Generation.EmbeddingModel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("INKFORGE_DATABASE_URL", "postgres://localhost:5432/inkforge")
	t.Setenv("INKFORGE_GENERATION_API_KEY", "test-key")
	t.Setenv("INKFORGE_SERVER_PORT", "9090")
	t.Setenv("INKFORGE_QUEUE_CONCURRENCY", "5")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Queue.Concurrency)
}

func TestLoad_ValidationFailures(t *testing.T) {
	t.Run("missing API key", func(t *testing.T) {
		t.Setenv("INKFORGE_DATABASE_URL", "postgres://localhost:5432/inkforge")
		t.Setenv("INKFORGE_GENERATION_API_KEY", "")

		_, err := config.Load()
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("concurrency above limit", func(t *testing.T) {
		t.Setenv("INKFORGE_DATABASE_URL", "postgres://localhost:5432/inkforge")
		t.Setenv("INKFORGE_GENERATION_API_KEY", "test-key")
		t.Setenv("INKFORGE_QUEUE_CONCURRENCY", "11")

		_, err := config.Load()
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("bad log level", func(t *testing.T) {
		t.Setenv("INKFORGE_DATABASE_URL", "postgres://localhost:5432/inkforge")
		t.Setenv("INKFORGE_GENERATION_API_KEY", "test-key")
		t.Setenv("INKFORGE_SERVER_LOG_LEVEL", "loud")

		_, err := config.Load()
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})
}
