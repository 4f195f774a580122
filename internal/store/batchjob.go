package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/inkforge/inkforge/internal/domain"
)

// BatchJobStore defines the interface for batch job persistence.
type BatchJobStore interface {
	// Create saves a new batch job.
	Create(ctx context.Context, job *domain.BatchJob) error

	// Update saves changes to an existing batch job (handle, status,
	// error text, completion time).
	// Returns ErrBatchJobNotFound if the job does not exist.
	Update(ctx context.Context, job *domain.BatchJob) error

	// GetByID retrieves a batch job by its unique ID.
	// Returns ErrBatchJobNotFound if the job does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BatchJob, error)

	// ListOpen retrieves all jobs that are pending or processing and
	// already hold an external handle, oldest first.
	ListOpen(ctx context.Context) ([]*domain.BatchJob, error)

	// List retrieves the most recent batch jobs up to limit.
	List(ctx context.Context, limit int) ([]*domain.BatchJob, error)

	// WithTx returns a new BatchJobStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) BatchJobStore
}

// VectorizeJobStore defines the interface for vectorize job persistence.
type VectorizeJobStore interface {
	// Create saves a new vectorize job.
	Create(ctx context.Context, job *domain.VectorizeJob) error

	// UpdateStatus updates the status of an existing vectorize job.
	UpdateStatus(ctx context.Context, jobID string, status domain.VectorizeJobStatus) error

	// ListOpen retrieves all jobs that are pending or processing, oldest first.
	ListOpen(ctx context.Context) ([]*domain.VectorizeJob, error)

	// WithTx returns a new VectorizeJobStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) VectorizeJobStore
}
