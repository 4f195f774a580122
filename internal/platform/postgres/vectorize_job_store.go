package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/inkforge/inkforge/internal/domain"
	"github.com/inkforge/inkforge/internal/platform/logger"
	"github.com/inkforge/inkforge/internal/store"
)

// PostgresVectorizeJobStore implements the store.VectorizeJobStore
// interface using a PostgreSQL database as the storage backend.
type PostgresVectorizeJobStore struct {
	db store.DBTX
}

// NewPostgresVectorizeJobStore creates a new PostgreSQL implementation
// of the VectorizeJobStore interface.
func NewPostgresVectorizeJobStore(db store.DBTX) *PostgresVectorizeJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresVectorizeJobStore{db: db}
}

// Ensure PostgresVectorizeJobStore implements store.VectorizeJobStore interface
var _ store.VectorizeJobStore = (*PostgresVectorizeJobStore)(nil)

// Create implements store.VectorizeJobStore.Create
func (s *PostgresVectorizeJobStore) Create(ctx context.Context, job *domain.VectorizeJob) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO vectorize_jobs (job_id, item_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		job.JobID,
		job.ItemID,
		job.Status,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to save vectorize job", "job_id", job.JobID, "error", err)
		return MapError(err)
	}

	return nil
}

// UpdateStatus implements store.VectorizeJobStore.UpdateStatus
func (s *PostgresVectorizeJobStore) UpdateStatus(ctx context.Context, jobID string, status domain.VectorizeJobStatus) error {
	query := `UPDATE vectorize_jobs SET status = $1, updated_at = $2 WHERE job_id = $3`

	result, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), jobID)
	if err != nil {
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "vectorize job"); err != nil {
		return fmt.Errorf("%w: %s", store.ErrVectorizeJobNotFound, jobID)
	}
	return nil
}

// ListOpen implements store.VectorizeJobStore.ListOpen
func (s *PostgresVectorizeJobStore) ListOpen(ctx context.Context) ([]*domain.VectorizeJob, error) {
	query := `
		SELECT job_id, item_id, status, created_at, updated_at
		FROM vectorize_jobs
		WHERE status IN ('pending', 'processing')
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectorize jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*domain.VectorizeJob
	for rows.Next() {
		var job domain.VectorizeJob
		if err := rows.Scan(&job.JobID, &job.ItemID, &job.Status, &job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vectorize job row: %w", err)
		}
		jobs = append(jobs, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vectorize job rows: %w", err)
	}

	return jobs, nil
}

// WithTx implements store.VectorizeJobStore.WithTx
func (s *PostgresVectorizeJobStore) WithTx(tx *sql.Tx) store.VectorizeJobStore {
	return &PostgresVectorizeJobStore{db: tx}
}
