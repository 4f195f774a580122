package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/inkforge/inkforge/internal/domain"
	"github.com/inkforge/inkforge/internal/platform/logger"
	"github.com/inkforge/inkforge/internal/store"
)

// PostgresBatchJobStore implements the store.BatchJobStore interface
// using a PostgreSQL database as the storage backend. Member item ids
// are stored as a JSONB array since the set is fixed at creation and
// only ever read back whole.
type PostgresBatchJobStore struct {
	db store.DBTX
}

// NewPostgresBatchJobStore creates a new PostgreSQL implementation of
// the BatchJobStore interface.
func NewPostgresBatchJobStore(db store.DBTX) *PostgresBatchJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresBatchJobStore{db: db}
}

// Ensure PostgresBatchJobStore implements store.BatchJobStore interface
var _ store.BatchJobStore = (*PostgresBatchJobStore)(nil)

const batchJobColumns = `id, external_handle, status, item_ids, mode,
	error_message, created_at, completed_at`

// Create implements store.BatchJobStore.Create
func (s *PostgresBatchJobStore) Create(ctx context.Context, job *domain.BatchJob) error {
	log := logger.FromContext(ctx)

	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	itemIDs, err := json.Marshal(job.ItemIDs)
	if err != nil {
		return fmt.Errorf("failed to encode item ids: %w", err)
	}

	query := `
		INSERT INTO batch_jobs (` + batchJobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		job.ID,
		job.ExternalHandle,
		job.Status,
		itemIDs,
		job.Mode,
		job.Error,
		job.CreatedAt,
		job.CompletedAt,
	)
	if err != nil {
		log.Error("failed to save batch job", "job_id", job.ID, "error", err)
		return MapError(err)
	}

	return nil
}

// Update implements store.BatchJobStore.Update
func (s *PostgresBatchJobStore) Update(ctx context.Context, job *domain.BatchJob) error {
	query := `
		UPDATE batch_jobs
		SET external_handle = $1, status = $2, error_message = $3, completed_at = $4
		WHERE id = $5
	`
	result, err := s.db.ExecContext(ctx, query,
		job.ExternalHandle,
		job.Status,
		job.Error,
		job.CompletedAt,
		job.ID,
	)
	if err != nil {
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "batch job"); err != nil {
		return fmt.Errorf("%w: %s", store.ErrBatchJobNotFound, job.ID)
	}
	return nil
}

// GetByID implements store.BatchJobStore.GetByID
func (s *PostgresBatchJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.BatchJob, error) {
	query := `SELECT ` + batchJobColumns + ` FROM batch_jobs WHERE id = $1`

	job, err := scanBatchJob(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		mapped := MapError(err)
		if store.IsNotFoundError(mapped) {
			return nil, fmt.Errorf("%w: %v", store.ErrBatchJobNotFound, err)
		}
		return nil, mapped
	}
	return job, nil
}

// ListOpen implements store.BatchJobStore.ListOpen
func (s *PostgresBatchJobStore) ListOpen(ctx context.Context) ([]*domain.BatchJob, error) {
	query := `
		SELECT ` + batchJobColumns + `
		FROM batch_jobs
		WHERE status IN ('pending', 'processing') AND external_handle <> ''
		ORDER BY created_at ASC
	`
	return s.queryJobs(ctx, query)
}

// List implements store.BatchJobStore.List
func (s *PostgresBatchJobStore) List(ctx context.Context, limit int) ([]*domain.BatchJob, error) {
	query := `
		SELECT ` + batchJobColumns + `
		FROM batch_jobs
		ORDER BY created_at DESC
	`
	if limit > 0 {
		return s.queryJobs(ctx, query+` LIMIT $1`, limit)
	}
	return s.queryJobs(ctx, query)
}

// WithTx implements store.BatchJobStore.WithTx
func (s *PostgresBatchJobStore) WithTx(tx *sql.Tx) store.BatchJobStore {
	return &PostgresBatchJobStore{db: tx}
}

func (s *PostgresBatchJobStore) queryJobs(ctx context.Context, query string, args ...interface{}) ([]*domain.BatchJob, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*domain.BatchJob
	for rows.Next() {
		job, err := scanBatchJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate batch job rows: %w", err)
	}

	return jobs, nil
}

func scanBatchJob(row rowScanner) (*domain.BatchJob, error) {
	var job domain.BatchJob
	var itemIDs []byte
	var completedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.ExternalHandle,
		&job.Status,
		&itemIDs,
		&job.Mode,
		&job.Error,
		&job.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemIDs, &job.ItemIDs); err != nil {
		return nil, fmt.Errorf("failed to decode item ids: %w", err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}

	return &job, nil
}
