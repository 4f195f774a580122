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

// BatchJobStore is an in-memory store.BatchJobStore.
type BatchJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.BatchJob

	CreateFn func(ctx context.Context, job *domain.BatchJob) error
	UpdateFn func(ctx context.Context, job *domain.BatchJob) error
}

// NewBatchJobStore creates an empty in-memory batch job store.
func NewBatchJobStore() *BatchJobStore {
	return &BatchJobStore{jobs: make(map[uuid.UUID]*domain.BatchJob)}
}

func (m *BatchJobStore) Create(ctx context.Context, job *domain.BatchJob) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, job)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *job
	m.jobs[job.ID] = &clone
	return nil
}

func (m *BatchJobStore) Update(ctx context.Context, job *domain.BatchJob) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, job)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return store.ErrBatchJobNotFound
	}
	clone := *job
	m.jobs[job.ID] = &clone
	return nil
}

func (m *BatchJobStore) GetByID(_ context.Context, id uuid.UUID) (*domain.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrBatchJobNotFound
	}
	clone := *job
	return &clone, nil
}

func (m *BatchJobStore) ListOpen(_ context.Context) ([]*domain.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.BatchJob
	for _, job := range m.jobs {
		if !job.Terminal() && job.ExternalHandle != "" {
			clone := *job
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *BatchJobStore) List(_ context.Context, limit int) ([]*domain.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.BatchJob
	for _, job := range m.jobs {
		clone := *job
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *BatchJobStore) WithTx(_ *sql.Tx) store.BatchJobStore { return m }
