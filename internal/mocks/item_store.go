package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inkforge/inkforge/internal/domain"
	"github.com/inkforge/inkforge/internal/store"
)

// ItemStore is an in-memory store.ItemStore. Writes bump a synthetic
// clock so oldest-updated-first ordering is deterministic in tests.
type ItemStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.Item
	clock time.Time

	// Overrides; when set, the corresponding method delegates entirely.
	GetByIDFn      func(ctx context.Context, id uuid.UUID) (*domain.Item, error)
	UpdateStatusFn func(ctx context.Context, id uuid.UUID, status domain.ItemStatus) error
}

// NewItemStore creates an empty in-memory item store.
func NewItemStore() *ItemStore {
	return &ItemStore{
		items: make(map[uuid.UUID]*domain.Item),
		clock: time.Now().UTC(),
	}
}

// Put inserts or replaces an item, stamping its update time.
func (m *ItemStore) Put(item *domain.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Millisecond)
	item.UpdatedAt = m.clock
	m.items[item.ID] = item
}

func (m *ItemStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, store.ErrItemNotFound
	}
	clone := *item
	return &clone, nil
}

func (m *ItemStore) ListByStatus(_ context.Context, statuses []domain.ItemStatus, limit int) ([]*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[domain.ItemStatus]bool)
	for _, s := range statuses {
		wanted[s] = true
	}

	var out []*domain.Item
	for _, item := range m.items {
		if wanted[item.Status] {
			clone := *item
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *ItemStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ItemStatus) error {
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, id, status)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateStatusLocked(id, status)
}

// UpdateStatusDefault applies the built-in in-memory behavior, bypassing
// UpdateStatusFn so an override can fall through to it.
func (m *ItemStore) UpdateStatusDefault(_ context.Context, id uuid.UUID, status domain.ItemStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateStatusLocked(id, status)
}

func (m *ItemStore) updateStatusLocked(id uuid.UUID, status domain.ItemStatus) error {
	item, ok := m.items[id]
	if !ok {
		return store.ErrItemNotFound
	}
	m.clock = m.clock.Add(time.Millisecond)
	item.Status = status
	item.UpdatedAt = m.clock
	return nil
}

func (m *ItemStore) UpdateStatusWithNote(_ context.Context, id uuid.UUID, status domain.ItemStatus, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateStatusLocked(id, status); err != nil {
		return err
	}
	m.items[id].Notes = note
	return nil
}

func (m *ItemStore) SetSelectedAttempt(_ context.Context, itemID, attemptID uuid.UUID, status domain.ItemStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateStatusLocked(itemID, status); err != nil {
		return err
	}
	id := attemptID
	m.items[itemID].SelectedAttemptID = &id
	return nil
}

func (m *ItemStore) SetEmbedding(_ context.Context, id uuid.UUID, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return store.ErrItemNotFound
	}
	item.Embedding = embedding
	return nil
}

func (m *ItemStore) ResetStale(_ context.Context, from []domain.ItemStatus, to domain.ItemStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stale := make(map[domain.ItemStatus]bool)
	for _, s := range from {
		stale[s] = true
	}
	var n int64
	for _, item := range m.items {
		if stale[item.Status] {
			item.Status = to
			n++
		}
	}
	return n, nil
}

func (m *ItemStore) CountByStatus(_ context.Context) (map[domain.ItemStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.ItemStatus]int)
	for _, item := range m.items {
		counts[item.Status]++
	}
	return counts, nil
}

func (m *ItemStore) WithTx(_ *sql.Tx) store.ItemStore { return m }

// CountOf reports how many items currently hold the given status.
func (m *ItemStore) CountOf(status domain.ItemStatus) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, item := range m.items {
		if item.Status == status {
			n++
		}
	}
	return n
}

// StatusOf returns the current status of the given item.
func (m *ItemStore) StatusOf(id uuid.UUID) domain.ItemStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].Status
}
