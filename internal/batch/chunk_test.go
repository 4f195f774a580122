package batch

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkIDs(t *testing.T) {
	t.Parallel()

	makeIDs := func(n int) []uuid.UUID {
		ids := make([]uuid.UUID, n)
		for i := range ids {
			ids[i] = uuid.New()
		}
		return ids
	}

	t.Run("25 ids with chunk size 10", func(t *testing.T) {
		t.Parallel()

		ids := makeIDs(25)
		chunks := chunkIDs(ids, 10)

		require.Len(t, chunks, 3)
		assert.Len(t, chunks[0], 10)
		assert.Len(t, chunks[1], 10)
		assert.Len(t, chunks[2], 5)
	})

	t.Run("union is exactly the input with no duplicates", func(t *testing.T) {
		t.Parallel()

		ids := makeIDs(17)
		chunks := chunkIDs(ids, 4)

		var flat []uuid.UUID
		for _, chunk := range chunks {
			flat = append(flat, chunk...)
		}
		assert.Equal(t, ids, flat)

		seen := make(map[uuid.UUID]bool)
		for _, id := range flat {
			assert.False(t, seen[id])
			seen[id] = true
		}
	})

	t.Run("exact multiple", func(t *testing.T) {
		t.Parallel()

		chunks := chunkIDs(makeIDs(20), 10)
		require.Len(t, chunks, 2)
		assert.Len(t, chunks[0], 10)
		assert.Len(t, chunks[1], 10)
	})

	t.Run("fewer ids than chunk size", func(t *testing.T) {
		t.Parallel()

		chunks := chunkIDs(makeIDs(3), 10)
		require.Len(t, chunks, 1)
		assert.Len(t, chunks[0], 3)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, chunkIDs(nil, 10))
	})

	t.Run("degenerate chunk size", func(t *testing.T) {
		t.Parallel()

		ids := makeIDs(5)
		chunks := chunkIDs(ids, 0)
		require.Len(t, chunks, 1)
		assert.Equal(t, ids, chunks[0])
	})
}
