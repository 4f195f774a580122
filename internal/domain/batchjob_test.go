package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/inkforge/inkforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBatchJob(t *testing.T) {
	t.Parallel()

	t.Run("valid job", func(t *testing.T) {
		t.Parallel()

		ids := []uuid.UUID{uuid.New(), uuid.New()}
		job, err := domain.NewBatchJob(ids, "generate")
		require.NoError(t, err)

		assert.Equal(t, domain.BatchJobStatusPending, job.Status)
		assert.Equal(t, ids, job.ItemIDs)
		assert.Empty(t, job.ExternalHandle)
		assert.Nil(t, job.CompletedAt)
		assert.False(t, job.Terminal())
	})

	t.Run("no items", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewBatchJob(nil, "generate")
		assert.ErrorIs(t, err, domain.ErrEmptyBatchJobItems)
	})
}

func TestBatchJob_Lifecycle(t *testing.T) {
	t.Parallel()

	t.Run("complete", func(t *testing.T) {
		t.Parallel()

		job, err := domain.NewBatchJob([]uuid.UUID{uuid.New()}, "generate")
		require.NoError(t, err)

		job.Complete()
		assert.Equal(t, domain.BatchJobStatusCompleted, job.Status)
		assert.NotNil(t, job.CompletedAt)
		assert.True(t, job.Terminal())
	})

	t.Run("fail records error text", func(t *testing.T) {
		t.Parallel()

		job, err := domain.NewBatchJob([]uuid.UUID{uuid.New()}, "generate")
		require.NoError(t, err)

		job.Fail("service rejected submission")
		assert.Equal(t, domain.BatchJobStatusFailed, job.Status)
		assert.Equal(t, "service rejected submission", job.Error)
		assert.True(t, job.Terminal())
	})
}

func TestNewGenerationAttempt(t *testing.T) {
	t.Parallel()

	itemID := uuid.New()

	attempt, err := domain.NewGenerationAttempt(itemID, domain.AttemptKindGenerate, `{"title":"Fox"}`)
	require.NoError(t, err)

	assert.Equal(t, itemID, attempt.ItemID)
	assert.False(t, attempt.Succeeded())

	attempt.ArtifactPath = "/assets/images/fox.png"
	assert.True(t, attempt.Succeeded())

	_, err = domain.NewGenerationAttempt(itemID, domain.AttemptKind("remix"), "req")
	assert.ErrorIs(t, err, domain.ErrInvalidAttemptKind)

	_, err = domain.NewGenerationAttempt(uuid.Nil, domain.AttemptKindEdit, "req")
	assert.ErrorIs(t, err, domain.ErrEmptyAttemptItemID)
}
