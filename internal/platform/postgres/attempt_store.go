package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/inkforge/inkforge/internal/domain"
	"github.com/inkforge/inkforge/internal/platform/logger"
	"github.com/inkforge/inkforge/internal/store"
)

// PostgresAttemptStore implements the store.AttemptStore interface
// using a PostgreSQL database as the storage backend.
type PostgresAttemptStore struct {
	db store.DBTX
}

// NewPostgresAttemptStore creates a new PostgreSQL implementation of
// the AttemptStore interface.
func NewPostgresAttemptStore(db store.DBTX) *PostgresAttemptStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresAttemptStore{db: db}
}

// Ensure PostgresAttemptStore implements store.AttemptStore interface
var _ store.AttemptStore = (*PostgresAttemptStore)(nil)

const attemptColumns = `id, item_id, kind, request, response_meta,
	artifact_path, sha256, qc_report, created_at`

// Create implements store.AttemptStore.Create
func (s *PostgresAttemptStore) Create(ctx context.Context, attempt *domain.GenerationAttempt) error {
	log := logger.FromContext(ctx)

	if err := attempt.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO generation_attempts
			(` + attemptColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		attempt.ID,
		attempt.ItemID,
		attempt.Kind,
		attempt.Request,
		attempt.ResponseMeta,
		nullString(attempt.ArtifactPath),
		attempt.SHA256,
		attempt.QCReport,
		attempt.CreatedAt,
	)
	if err != nil {
		log.Error("failed to save attempt",
			"attempt_id", attempt.ID,
			"item_id", attempt.ItemID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// GetByID implements store.AttemptStore.GetByID
func (s *PostgresAttemptStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.GenerationAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM generation_attempts WHERE id = $1`

	attempt, err := scanAttempt(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		mapped := MapError(err)
		if store.IsNotFoundError(mapped) {
			return nil, fmt.Errorf("%w: %v", store.ErrAttemptNotFound, err)
		}
		return nil, mapped
	}
	return attempt, nil
}

// ListByItem implements store.AttemptStore.ListByItem
func (s *PostgresAttemptStore) ListByItem(ctx context.Context, itemID uuid.UUID) ([]*domain.GenerationAttempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM generation_attempts
		WHERE item_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var attempts []*domain.GenerationAttempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt row: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attempt rows: %w", err)
	}

	return attempts, nil
}

// WithTx implements store.AttemptStore.WithTx
func (s *PostgresAttemptStore) WithTx(tx *sql.Tx) store.AttemptStore {
	return &PostgresAttemptStore{db: tx}
}

func scanAttempt(row rowScanner) (*domain.GenerationAttempt, error) {
	var attempt domain.GenerationAttempt
	var artifactPath sql.NullString

	err := row.Scan(
		&attempt.ID,
		&attempt.ItemID,
		&attempt.Kind,
		&attempt.Request,
		&attempt.ResponseMeta,
		&artifactPath,
		&attempt.SHA256,
		&attempt.QCReport,
		&attempt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	attempt.ArtifactPath = artifactPath.String
	return &attempt, nil
}

// nullString maps an empty string to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
