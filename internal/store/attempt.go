package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/inkforge/inkforge/internal/domain"
)

// AttemptStore defines the interface for generation attempt persistence.
// Attempts are immutable once created.
type AttemptStore interface {
	// Create saves a new generation attempt.
	// Returns validation errors from the domain entity if data is invalid.
	Create(ctx context.Context, attempt *domain.GenerationAttempt) error

	// GetByID retrieves an attempt by its unique ID.
	// Returns ErrAttemptNotFound if the attempt does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.GenerationAttempt, error)

	// ListByItem retrieves all attempts for an item, newest first.
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]*domain.GenerationAttempt, error)

	// WithTx returns a new AttemptStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) AttemptStore
}
