package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/inkforge/inkforge/internal/domain"
)

// ItemStore defines the interface for item data persistence.
type ItemStore interface {
	// GetByID retrieves an item by its unique ID.
	// Returns ErrItemNotFound if the item does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error)

	// ListByStatus retrieves items whose status is in the given set,
	// ordered oldest-updated-first. A limit of 0 means no limit.
	ListByStatus(ctx context.Context, statuses []domain.ItemStatus, limit int) ([]*domain.Item, error)

	// UpdateStatus updates the status of an existing item and bumps its
	// updated timestamp. Returns ErrItemNotFound if the item does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ItemStatus) error

	// UpdateStatusWithNote updates status and replaces the item note in a
	// single write. Used to attach human-readable failure reasons.
	UpdateStatusWithNote(ctx context.Context, id uuid.UUID, status domain.ItemStatus, note string) error

	// SetSelectedAttempt updates the item's status and selected attempt
	// reference in a single write. The attempt must belong to the item.
	SetSelectedAttempt(ctx context.Context, itemID uuid.UUID, attemptID uuid.UUID, status domain.ItemStatus) error

	// SetEmbedding caches the item's embedding vector. Embeddings are
	// written once and never recomputed while present.
	SetEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error

	// ResetStale moves every item in the given statuses to the target
	// status and returns how many rows changed. Used at startup to fail
	// work that was in flight when the process died.
	ResetStale(ctx context.Context, from []domain.ItemStatus, to domain.ItemStatus) (int64, error)

	// CountByStatus returns the number of items per status, read from
	// the store so it reflects ground truth across process restarts.
	CountByStatus(ctx context.Context) (map[domain.ItemStatus]int, error)

	// WithTx returns a new ItemStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) ItemStore
}
