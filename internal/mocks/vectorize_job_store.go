package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/inkforge/inkforge/internal/domain"
	"github.com/inkforge/inkforge/internal/store"
)

// VectorizeJobStore is an in-memory store.VectorizeJobStore.
type VectorizeJobStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.VectorizeJob
}

// NewVectorizeJobStore creates an empty in-memory vectorize job store.
func NewVectorizeJobStore() *VectorizeJobStore {
	return &VectorizeJobStore{jobs: make(map[string]*domain.VectorizeJob)}
}

func (m *VectorizeJobStore) Create(_ context.Context, job *domain.VectorizeJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *job
	m.jobs[job.JobID] = &clone
	return nil
}

func (m *VectorizeJobStore) UpdateStatus(_ context.Context, jobID string, status domain.VectorizeJobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return store.ErrVectorizeJobNotFound
	}
	job.Status = status
	return nil
}

func (m *VectorizeJobStore) ListOpen(_ context.Context) ([]*domain.VectorizeJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.VectorizeJob
	for _, job := range m.jobs {
		if !job.Terminal() {
			clone := *job
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *VectorizeJobStore) WithTx(_ *sql.Tx) store.VectorizeJobStore { return m }

// StatusOf returns the current status of the given job.
func (m *VectorizeJobStore) StatusOf(jobID string) domain.VectorizeJobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[jobID].Status
}
