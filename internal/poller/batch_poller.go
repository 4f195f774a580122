package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/inkforge/inkforge/internal/domain"
	"github.com/inkforge/inkforge/internal/platform/gemini"
	"github.com/inkforge/inkforge/internal/storage"
	"github.com/inkforge/inkforge/internal/store"
)

// BatchClient is the status/result surface of the generation client
// that the poller drives.
type BatchClient interface {
	PollBatchStatus(ctx context.Context, handle string) (gemini.BatchStatus, error)
	FetchBatchResults(ctx context.Context, handle string) ([]gemini.BatchResult, error)
}

// ImageStore persists result artifacts.
type ImageStore interface {
	SaveImage(data []byte, itemID, batchID uuid.UUID) (*storage.SavedArtifact, error)
}

// BatchPoller reconciles open batch jobs on a fixed interval. A cycle
// already in progress suppresses a concurrent one; a timer tick that
// overlaps a running cycle is dropped, not queued.
type BatchPoller struct {
	logger    *slog.Logger
	items     store.ItemStore
	attempts  store.AttemptStore
	jobs      store.BatchJobStore
	client    BatchClient
	artifacts ImageStore
	interval  time.Duration

	polling atomic.Bool
}

// NewBatchPoller creates a poller over the given stores and client.
func NewBatchPoller(
	logger *slog.Logger,
	items store.ItemStore,
	attempts store.AttemptStore,
	jobs store.BatchJobStore,
	client BatchClient,
	artifacts ImageStore,
	interval time.Duration,
) *BatchPoller {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &BatchPoller{
		logger:    logger.With("component", "batch_poller"),
		items:     items,
		attempts:  attempts,
		jobs:      jobs,
		client:    client,
		artifacts: artifacts,
		interval:  interval,
	}
}

// Run polls immediately, then on every interval tick until the context
// is cancelled.
func (p *BatchPoller) Run(ctx context.Context) {
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

// Poll runs one reconcile cycle over all open jobs. It returns false
// when another cycle was already in flight and this one was dropped.
func (p *BatchPoller) Poll(ctx context.Context) bool {
	if !p.polling.CompareAndSwap(false, true) {
		p.logger.Debug("poll cycle already in progress, skipping")
		return false
	}
	defer p.polling.Store(false)

	jobs, err := p.jobs.ListOpen(ctx)
	if err != nil {
		p.logger.Error("failed to list open batch jobs", "error", err)
		return true
	}

	for _, job := range jobs {
		p.reconcile(ctx, job)
	}
	return true
}

// reconcile advances one job: non-terminal states only bump pending to
// processing, terminal failure fails all member items, terminal success
// fetches and applies results.
func (p *BatchPoller) reconcile(ctx context.Context, job *domain.BatchJob) {
	logger := p.logger.With("job_id", job.ID, "handle", job.ExternalHandle)

	status, err := p.client.PollBatchStatus(ctx, job.ExternalHandle)
	if err != nil {
		logger.Warn("status poll failed", "error", err)
		return
	}

	switch {
	case status.State.TerminalSuccess():
		p.applyResults(ctx, job, logger)

	case status.State.TerminalFailure():
		logger.Warn("batch job failed remotely", "state", status.State, "error", status.Error)
		p.failJob(ctx, job, statusError(status))

	default:
		logger.Debug("batch job still running",
			"state", status.State,
			"completed", status.CompletedCount,
			"failed", status.FailedCount)
		if job.Status == domain.BatchJobStatusPending {
			job.Status = domain.BatchJobStatusProcessing
			if err := p.jobs.Update(ctx, job); err != nil {
				logger.Error("failed to mark job processing", "error", err)
			}
		}
	}
}

// applyResults downloads the full result set and lands each result on
// its item. An oversized response leaves the job open for a later
// retry; a count mismatch is tolerated with positional matching.
func (p *BatchPoller) applyResults(ctx context.Context, job *domain.BatchJob, logger *slog.Logger) {
	results, err := p.client.FetchBatchResults(ctx, job.ExternalHandle)
	if err != nil {
		if errors.Is(err, gemini.ErrResponseTooLarge) {
			logger.Warn("batch response too large, leaving job open for retry", "error", err)
			return
		}
		logger.Error("failed to fetch batch results", "error", err)
		return
	}

	if len(results) != len(job.ItemIDs) {
		logger.Warn("result count does not match member count",
			"results", len(results),
			"members", len(job.ItemIDs))
	}

	for i, result := range results {
		itemID := result.ItemID
		if itemID == uuid.Nil {
			if i >= len(job.ItemIDs) {
				logger.Warn("unmatchable extra result", "position", i)
				continue
			}
			itemID = job.ItemIDs[i]
			logger.Warn("result carries no correlation metadata, matching by position",
				"position", i,
				"item_id", itemID)
		}

		if result.Error != "" {
			p.failItem(ctx, itemID, result.Error, logger)
			continue
		}
		p.completeItem(ctx, job, itemID, result.ImageData, logger)
	}

	job.Complete()
	if err := p.jobs.Update(ctx, job); err != nil {
		logger.Error("failed to complete job", "error", err)
		return
	}
	logger.Info("batch job reconciled", "results", len(results))
}

// completeItem stores the artifact, records a successful attempt and
// selects it.
func (p *BatchPoller) completeItem(ctx context.Context, job *domain.BatchJob, itemID uuid.UUID, image []byte, logger *slog.Logger) {
	saved, err := p.artifacts.SaveImage(image, itemID, job.ID)
	if err != nil {
		p.failItem(ctx, itemID, "failed to store artifact: "+err.Error(), logger)
		return
	}

	attempt, err := domain.NewGenerationAttempt(itemID, domain.AttemptKindGenerate, "")
	if err != nil {
		logger.Error("failed to build attempt", "item_id", itemID, "error", err)
		return
	}
	attempt.ArtifactPath = saved.Path
	attempt.SHA256 = saved.SHA256

	if err := p.attempts.Create(ctx, attempt); err != nil {
		logger.Error("failed to persist attempt", "item_id", itemID, "error", err)
		return
	}

	if err := p.items.SetSelectedAttempt(ctx, itemID, attempt.ID, domain.ItemStatusGenerated); err != nil {
		logger.Error("failed to select attempt", "item_id", itemID, "error", err)
	}
}

// failItem records a failed attempt carrying the error and fails the
// item with a readable note.
func (p *BatchPoller) failItem(ctx context.Context, itemID uuid.UUID, reason string, logger *slog.Logger) {
	attempt, err := domain.NewGenerationAttempt(itemID, domain.AttemptKindGenerate, "")
	if err == nil {
		attempt.QCReport = reason
		if createErr := p.attempts.Create(ctx, attempt); createErr != nil {
			logger.Error("failed to persist failed attempt", "item_id", itemID, "error", createErr)
		}
	}

	if err := p.items.UpdateStatusWithNote(ctx, itemID, domain.ItemStatusFailed, reason); err != nil {
		logger.Error("failed to fail item", "item_id", itemID, "error", err)
	}
}

// failJob fails the job and every member item.
func (p *BatchPoller) failJob(ctx context.Context, job *domain.BatchJob, reason string) {
	job.Fail(reason)
	if err := p.jobs.Update(ctx, job); err != nil {
		p.logger.Error("failed to fail job", "job_id", job.ID, "error", err)
	}

	for _, itemID := range job.ItemIDs {
		if err := p.items.UpdateStatusWithNote(ctx, itemID, domain.ItemStatusFailed, reason); err != nil {
			p.logger.Error("failed to fail member item", "item_id", itemID, "error", err)
		}
	}
}

func statusError(status gemini.BatchStatus) string {
	if status.Error != "" {
		return status.Error
	}
	return "batch job ended in state " + string(status.State)
}
