package logger_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/inkforge/inkforge/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	t.Run("known levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "WARN"} {
			log := logger.Setup(level)
			require.NotNil(t, log, "level %s", level)
		}
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		log := logger.Setup("loud")
		require.NotNil(t, log)
		assert.True(t, log.Enabled(context.Background(), slog.LevelInfo))
		assert.False(t, log.Enabled(context.Background(), slog.LevelDebug))
	})
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		stored := slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx := logger.WithLogger(context.Background(), stored)
		assert.Same(t, stored, logger.FromContext(ctx))
	})

	t.Run("missing logger yields default", func(t *testing.T) {
		t.Parallel()

		assert.NotNil(t, logger.FromContext(context.Background()))
	})
}
