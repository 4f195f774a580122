package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/inkforge/inkforge/internal/domain"
	"github.com/inkforge/inkforge/internal/platform/logger"
	"github.com/inkforge/inkforge/internal/store"
)

// PostgresItemStore implements the store.ItemStore interface using a
// PostgreSQL database as the storage backend.
type PostgresItemStore struct {
	db store.DBTX
}

// NewPostgresItemStore creates a new PostgreSQL implementation of the
// ItemStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
func NewPostgresItemStore(db store.DBTX) *PostgresItemStore {
	if db == nil {
		panic("db cannot be nil")
	}
	return &PostgresItemStore{db: db}
}

// Ensure PostgresItemStore implements store.ItemStore interface
var _ store.ItemStore = (*PostgresItemStore)(nil)

const itemColumns = `id, batch_id, title, description, category, skill, tags,
	extended_description, status, selected_attempt_id, embedding,
	ignore_duplicates, notes, created_at, updated_at`

// GetByID implements store.ItemStore.GetByID
func (s *PostgresItemStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	item, err := scanItem(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapItemError(err)
	}
	return item, nil
}

// ListByStatus implements store.ItemStore.ListByStatus
func (s *PostgresItemStore) ListByStatus(ctx context.Context, statuses []domain.ItemStatus, limit int) ([]*domain.Item, error) {
	log := logger.FromContext(ctx)

	if len(statuses) == 0 {
		return nil, nil
	}

	encoded, err := json.Marshal(statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to encode status filter: %w", err)
	}

	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE status IN (SELECT jsonb_array_elements_text($1::jsonb))
		ORDER BY updated_at ASC
	`
	args := []interface{}{encoded}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query items by status", "error", err)
		return nil, fmt.Errorf("failed to query items by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate item rows: %w", err)
	}

	return items, nil
}

// UpdateStatus implements store.ItemStore.UpdateStatus
func (s *PostgresItemStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ItemStatus) error {
	query := `UPDATE items SET status = $1, updated_at = $2 WHERE id = $3`
	return s.execExpectingRow(ctx, query, status, time.Now().UTC(), id)
}

// UpdateStatusWithNote implements store.ItemStore.UpdateStatusWithNote
func (s *PostgresItemStore) UpdateStatusWithNote(ctx context.Context, id uuid.UUID, status domain.ItemStatus, note string) error {
	query := `UPDATE items SET status = $1, notes = $2, updated_at = $3 WHERE id = $4`
	return s.execExpectingRow(ctx, query, status, note, time.Now().UTC(), id)
}

// SetSelectedAttempt implements store.ItemStore.SetSelectedAttempt.
// The attempt must belong to the item; the subquery enforces that so a
// mismatched pair updates zero rows.
func (s *PostgresItemStore) SetSelectedAttempt(ctx context.Context, itemID, attemptID uuid.UUID, status domain.ItemStatus) error {
	query := `
		UPDATE items
		SET selected_attempt_id = $1, status = $2, updated_at = $3
		WHERE id = $4
		  AND EXISTS (
			SELECT 1 FROM generation_attempts
			WHERE id = $1 AND item_id = $4
		  )
	`
	err := s.execExpectingRow(ctx, query, attemptID, status, time.Now().UTC(), itemID)
	if errors.Is(err, store.ErrItemNotFound) {
		return fmt.Errorf("%w: attempt %s for item %s", domain.ErrAttemptItemMismatch, attemptID, itemID)
	}
	if err != nil {
		return fmt.Errorf("failed to select attempt %s for item %s: %w", attemptID, itemID, err)
	}
	return nil
}

// SetEmbedding implements store.ItemStore.SetEmbedding
func (s *PostgresItemStore) SetEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	encoded, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}

	query := `UPDATE items SET embedding = $1 WHERE id = $2`
	return s.execExpectingRow(ctx, query, encoded, id)
}

// ResetStale implements store.ItemStore.ResetStale
func (s *PostgresItemStore) ResetStale(ctx context.Context, from []domain.ItemStatus, to domain.ItemStatus) (int64, error) {
	log := logger.FromContext(ctx)

	if len(from) == 0 {
		return 0, nil
	}

	encoded, err := json.Marshal(from)
	if err != nil {
		return 0, fmt.Errorf("failed to encode status filter: %w", err)
	}

	query := `
		UPDATE items
		SET status = $1, updated_at = $2
		WHERE status IN (SELECT jsonb_array_elements_text($3::jsonb))
	`
	result, err := s.db.ExecContext(ctx, query, to, time.Now().UTC(), encoded)
	if err != nil {
		log.Error("failed to reset stale items", "error", err)
		return 0, fmt.Errorf("failed to reset stale items: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// CountByStatus implements store.ItemStore.CountByStatus
func (s *PostgresItemStore) CountByStatus(ctx context.Context) (map[domain.ItemStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM items GROUP BY status`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count items by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[domain.ItemStatus]int)
	for rows.Next() {
		var status domain.ItemStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate count rows: %w", err)
	}

	return counts, nil
}

// WithTx implements store.ItemStore.WithTx
func (s *PostgresItemStore) WithTx(tx *sql.Tx) store.ItemStore {
	return &PostgresItemStore{db: tx}
}

// execExpectingRow runs an UPDATE and converts zero affected rows into
// ErrItemNotFound.
func (s *PostgresItemStore) execExpectingRow(ctx context.Context, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapItemError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrItemNotFound
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var item domain.Item
	var tags, embedding []byte
	var extendedDescription, notes sql.NullString
	var selectedAttemptID uuid.NullUUID

	err := row.Scan(
		&item.ID,
		&item.BatchID,
		&item.Title,
		&item.Description,
		&item.Category,
		&item.Skill,
		&tags,
		&extendedDescription,
		&item.Status,
		&selectedAttemptID,
		&embedding,
		&item.IgnoreDuplicates,
		&notes,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &item.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}
	if len(embedding) > 0 {
		if err := json.Unmarshal(embedding, &item.Embedding); err != nil {
			return nil, fmt.Errorf("failed to decode embedding: %w", err)
		}
	}
	item.ExtendedDescription = extendedDescription.String
	item.Notes = notes.String
	if selectedAttemptID.Valid {
		id := selectedAttemptID.UUID
		item.SelectedAttemptID = &id
	}

	return &item, nil
}

func mapItemError(err error) error {
	mapped := MapError(err)
	if store.IsNotFoundError(mapped) {
		return fmt.Errorf("%w: %v", store.ErrItemNotFound, err)
	}
	return mapped
}
