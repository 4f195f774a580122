// Package batch submits items to the asynchronous bulk generation
// path. Large id sets are split into fixed-size chunks, each chunk an
// independent batch job, so one chunk's submission failure never
// blocks the others.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/inkforge/inkforge/internal/domain"
	"github.com/inkforge/inkforge/internal/platform/gemini"
	"github.com/inkforge/inkforge/internal/store"
)

// Submitter is the batch submission call on the generation client.
type Submitter interface {
	SubmitBatch(ctx context.Context, requests []gemini.BatchRequest, referenceImages [][]byte) (string, error)
}

// Service turns item id sets into submitted batch jobs.
type Service struct {
	logger    *slog.Logger
	items     store.ItemStore
	jobs      store.BatchJobStore
	submitter Submitter
	chunkSize int
}

// NewService creates a batch submission service. chunkSize bounds the
// number of items per external submission so aggregate responses stay
// well under the service's size ceiling.
func NewService(logger *slog.Logger, items store.ItemStore, jobs store.BatchJobStore, submitter Submitter, chunkSize int) *Service {
	if chunkSize < 1 {
		chunkSize = 10
	}
	return &Service{
		logger:    logger.With("component", "batch_service"),
		items:     items,
		jobs:      jobs,
		submitter: submitter,
		chunkSize: chunkSize,
	}
}

// Submit chunks the ids and submits each chunk as an independent batch
// job. Items in a submitted chunk are marked Queued; a chunk whose
// submission is rejected has its job failed and its items reset to
// Imported so they can be re-submitted, while sibling chunks proceed.
// The created jobs are returned in chunk order.
func (s *Service) Submit(ctx context.Context, ids []uuid.UUID) ([]*domain.BatchJob, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no item ids", domain.ErrEmptyBatchJobItems)
	}

	chunks := chunkIDs(ids, s.chunkSize)
	jobs := make([]*domain.BatchJob, 0, len(chunks))

	for _, chunk := range chunks {
		job, err := s.submitChunk(ctx, chunk)
		if err != nil {
			return jobs, err
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// submitChunk creates and submits one batch job. Submission rejection
// is recorded on the job, not returned: only store failures propagate.
// The whole chunk is resolved before any state is written, so an
// unknown id aborts without a job row or queued items to clean up.
func (s *Service) submitChunk(ctx context.Context, chunk []uuid.UUID) (*domain.BatchJob, error) {
	requests := make([]gemini.BatchRequest, 0, len(chunk))
	for _, id := range chunk {
		item, err := s.items.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load item %s: %w", id, err)
		}
		requests = append(requests, gemini.BatchRequest{
			ItemID: id,
			Prompt: buildPrompt(item),
		})
	}

	job, err := domain.NewBatchJob(chunk, "image")
	if err != nil {
		return nil, fmt.Errorf("failed to build batch job: %w", err)
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist batch job: %w", err)
	}

	for i, id := range chunk {
		if err := s.items.UpdateStatus(ctx, id, domain.ItemStatusQueued); err != nil {
			s.abandonChunk(ctx, job, chunk[:i], err)
			return nil, fmt.Errorf("failed to queue item %s: %w", id, err)
		}
	}

	handle, err := s.submitter.SubmitBatch(ctx, requests, nil)
	if err != nil {
		s.logger.Warn("batch submission rejected",
			"job_id", job.ID,
			"items", len(chunk),
			"error", err)

		job.Fail(err.Error())
		if updateErr := s.jobs.Update(ctx, job); updateErr != nil {
			return nil, fmt.Errorf("failed to fail batch job: %w", updateErr)
		}
		for _, id := range chunk {
			if resetErr := s.items.UpdateStatus(ctx, id, domain.ItemStatusImported); resetErr != nil {
				return nil, fmt.Errorf("failed to reset item %s: %w", id, resetErr)
			}
		}
		return job, nil
	}

	job.ExternalHandle = handle
	job.Status = domain.BatchJobStatusProcessing
	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to record batch handle: %w", err)
	}

	s.logger.Info("batch chunk submitted",
		"job_id", job.ID,
		"handle", handle,
		"items", len(chunk))

	return job, nil
}

// abandonChunk fails the job and resets already-queued members after a
// mid-chunk store error, so nothing is left pending without a handle.
func (s *Service) abandonChunk(ctx context.Context, job *domain.BatchJob, queued []uuid.UUID, cause error) {
	job.Fail(cause.Error())
	if err := s.jobs.Update(ctx, job); err != nil {
		s.logger.Error("failed to fail abandoned batch job",
			"job_id", job.ID,
			"error", err)
	}
	for _, id := range queued {
		if err := s.items.UpdateStatus(ctx, id, domain.ItemStatusImported); err != nil {
			s.logger.Error("failed to reset item of abandoned batch job",
				"job_id", job.ID,
				"item_id", id,
				"error", err)
		}
	}
}

// buildPrompt assembles the per-item generation payload for a batch
// sub-request, mirroring the live path's request shape.
func buildPrompt(item *domain.Item) string {
	payload := map[string]string{
		"title":       item.Title,
		"description": item.Description,
		"category":    item.Category,
		"skill":       item.Skill,
	}
	if item.ExtendedDescription != "" {
		payload["extended_description"] = item.ExtendedDescription
	}
	if len(item.Tags) > 0 {
		payload["tags"] = strings.Join(item.Tags, ", ")
	}

	prompt, _ := json.Marshal(payload)
	return string(prompt)
}
