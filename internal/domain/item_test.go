package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/inkforge/inkforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewItem(t *testing.T) {
	t.Parallel()

	batchID := uuid.New()

	t.Run("valid item", func(t *testing.T) {
		t.Parallel()

		item, err := domain.NewItem(batchID, "Red Panda", "A red panda on a branch", "Animals", "Easy")
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, item.ID)
		assert.Equal(t, batchID, item.BatchID)
		assert.Equal(t, domain.ItemStatusImported, item.Status)
		assert.False(t, item.CreatedAt.IsZero())
		assert.Nil(t, item.SelectedAttemptID)
	})

	t.Run("empty title", func(t *testing.T) {
		t.Parallel()

		_, err := domain.NewItem(batchID, "   ", "desc", "Animals", "Easy")
		assert.ErrorIs(t, err, domain.ErrEmptyItemTitle)
	})
}

func TestItem_UpdateStatus(t *testing.T) {
	t.Parallel()

	item, err := domain.NewItem(uuid.New(), "Owl", "An owl", "Birds", "Medium")
	require.NoError(t, err)

	t.Run("valid transition", func(t *testing.T) {
		before := item.UpdatedAt
		err := item.UpdateStatus(domain.ItemStatusQueued)
		require.NoError(t, err)
		assert.Equal(t, domain.ItemStatusQueued, item.Status)
		assert.False(t, item.UpdatedAt.Before(before))
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		err := item.UpdateStatus(domain.ItemStatus("Sideways"))
		assert.ErrorIs(t, err, domain.ErrInvalidItemStatus)
		assert.Equal(t, domain.ItemStatusQueued, item.Status)
	})
}

func TestItem_Validate_AllStatuses(t *testing.T) {
	t.Parallel()

	statuses := []domain.ItemStatus{
		domain.ItemStatusImported,
		domain.ItemStatusQueued,
		domain.ItemStatusGenerating,
		domain.ItemStatusGenerated,
		domain.ItemStatusNeedsAttention,
		domain.ItemStatusFailed,
		domain.ItemStatusApproved,
		domain.ItemStatusOmitted,
		domain.ItemStatusVectorized,
		domain.ItemStatusExported,
		domain.ItemStatusPublished,
	}

	for _, status := range statuses {
		item, err := domain.NewItem(uuid.New(), "Fox", "A fox", "Animals", "Easy")
		require.NoError(t, err)

		item.Status = status
		assert.NoError(t, item.Validate(), "status %s should validate", status)
	}
}

func TestItem_EmbeddingText(t *testing.T) {
	t.Parallel()

	item, err := domain.NewItem(uuid.New(), "Lighthouse", "A lighthouse at dusk", "Scenery", "Detailed")
	require.NoError(t, err)

	assert.Equal(t, "Lighthouse A lighthouse at dusk", item.EmbeddingText())
}
