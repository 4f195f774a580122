package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/inkforge/inkforge/internal/domain"
	"github.com/inkforge/inkforge/internal/store"
)

// AttemptStore is an in-memory store.AttemptStore.
type AttemptStore struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*domain.GenerationAttempt

	CreateFn func(ctx context.Context, attempt *domain.GenerationAttempt) error
}

// NewAttemptStore creates an empty in-memory attempt store.
func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[uuid.UUID]*domain.GenerationAttempt)}
}

func (m *AttemptStore) Create(ctx context.Context, attempt *domain.GenerationAttempt) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, attempt)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *attempt
	m.attempts[attempt.ID] = &clone
	return nil
}

func (m *AttemptStore) GetByID(_ context.Context, id uuid.UUID) (*domain.GenerationAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt, ok := m.attempts[id]
	if !ok {
		return nil, store.ErrAttemptNotFound
	}
	clone := *attempt
	return &clone, nil
}

func (m *AttemptStore) ListByItem(_ context.Context, itemID uuid.UUID) ([]*domain.GenerationAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.GenerationAttempt
	for _, attempt := range m.attempts {
		if attempt.ItemID == itemID {
			clone := *attempt
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *AttemptStore) WithTx(_ *sql.Tx) store.AttemptStore { return m }
