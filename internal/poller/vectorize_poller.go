package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/inkforge/inkforge/internal/domain"
	"github.com/inkforge/inkforge/internal/platform/vectorizer"
	"github.com/inkforge/inkforge/internal/store"
)

// TracingClient is the surface of the vectorizer client the poller
// drives.
type TracingClient interface {
	Submit(ctx context.Context, image []byte) (string, error)
	Status(ctx context.Context, jobID string) (vectorizer.Status, error)
	Download(ctx context.Context, jobID string) (string, error)
}

// SVGStore persists traced documents and reads raster artifacts back
// for submission.
type SVGStore interface {
	SaveSVG(content string, itemID uuid.UUID) (string, error)
	ReadImage(path string) ([]byte, error)
}

// VectorizePoller submits item artifacts for tracing and reconciles
// the resulting jobs, one result per job.
type VectorizePoller struct {
	logger    *slog.Logger
	items     store.ItemStore
	attempts  store.AttemptStore
	jobs      store.VectorizeJobStore
	client    TracingClient
	artifacts SVGStore
	interval  time.Duration

	polling atomic.Bool
}

// NewVectorizePoller creates a poller over the given stores and client.
func NewVectorizePoller(
	logger *slog.Logger,
	items store.ItemStore,
	attempts store.AttemptStore,
	jobs store.VectorizeJobStore,
	client TracingClient,
	artifacts SVGStore,
	interval time.Duration,
) *VectorizePoller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &VectorizePoller{
		logger:    logger.With("component", "vectorize_poller"),
		items:     items,
		attempts:  attempts,
		jobs:      jobs,
		client:    client,
		artifacts: artifacts,
		interval:  interval,
	}
}

// SubmitItem sends an item's selected artifact to the tracing service
// and records the tracking job.
func (p *VectorizePoller) SubmitItem(ctx context.Context, itemID uuid.UUID) (*domain.VectorizeJob, error) {
	item, err := p.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load item %s: %w", itemID, err)
	}

	if item.SelectedAttemptID == nil {
		return nil, fmt.Errorf("%w: item %s", domain.ErrNoSelectedAttempt, itemID)
	}

	attempt, err := p.attempts.GetByID(ctx, *item.SelectedAttemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load selected attempt: %w", err)
	}

	image, err := p.artifacts.ReadImage(attempt.ArtifactPath)
	if err != nil {
		return nil, err
	}

	jobID, err := p.client.Submit(ctx, image)
	if err != nil {
		return nil, err
	}

	job, err := domain.NewVectorizeJob(jobID, itemID)
	if err != nil {
		return nil, err
	}
	if err := p.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist vectorize job: %w", err)
	}

	p.logger.Info("item submitted for tracing", "item_id", itemID, "job_id", jobID)
	return job, nil
}

// Run polls immediately, then on every interval tick until the context
// is cancelled.
func (p *VectorizePoller) Run(ctx context.Context) {
	p.Poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll runs one reconcile cycle over all open tracing jobs. It returns
// false when another cycle was already in flight.
func (p *VectorizePoller) Poll(ctx context.Context) bool {
	if !p.polling.CompareAndSwap(false, true) {
		return false
	}
	defer p.polling.Store(false)

	jobs, err := p.jobs.ListOpen(ctx)
	if err != nil {
		p.logger.Error("failed to list open vectorize jobs", "error", err)
		return true
	}

	for _, job := range jobs {
		p.reconcile(ctx, job)
	}
	return true
}

func (p *VectorizePoller) reconcile(ctx context.Context, job *domain.VectorizeJob) {
	logger := p.logger.With("job_id", job.JobID, "item_id", job.ItemID)

	status, err := p.client.Status(ctx, job.JobID)
	if err != nil {
		logger.Warn("status poll failed", "error", err)
		return
	}

	switch status {
	case vectorizer.StatusCompleted:
		svg, err := p.client.Download(ctx, job.JobID)
		if err != nil {
			logger.Error("failed to download trace result", "error", err)
			return
		}

		path, err := p.artifacts.SaveSVG(svg, job.ItemID)
		if err != nil {
			logger.Error("failed to store traced document", "error", err)
			return
		}

		if err := p.items.UpdateStatus(ctx, job.ItemID, domain.ItemStatusVectorized); err != nil {
			logger.Error("failed to mark item vectorized", "error", err)
			return
		}
		if err := p.jobs.UpdateStatus(ctx, job.JobID, domain.VectorizeJobStatusCompleted); err != nil {
			logger.Error("failed to complete vectorize job", "error", err)
			return
		}
		logger.Info("item vectorized", "path", path)

	case vectorizer.StatusFailed:
		logger.Warn("tracing failed remotely")
		if err := p.jobs.UpdateStatus(ctx, job.JobID, domain.VectorizeJobStatusFailed); err != nil {
			logger.Error("failed to fail vectorize job", "error", err)
		}

	case vectorizer.StatusProcessing:
		if job.Status == domain.VectorizeJobStatusPending {
			if err := p.jobs.UpdateStatus(ctx, job.JobID, domain.VectorizeJobStatusProcessing); err != nil {
				logger.Error("failed to mark vectorize job processing", "error", err)
			}
		}

	default:
		// Still pending remotely; nothing to record.
	}
}
