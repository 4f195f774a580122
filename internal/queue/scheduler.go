package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/inkforge/inkforge/internal/domain"
	"github.com/inkforge/inkforge/internal/events"
	"github.com/inkforge/inkforge/internal/storage"
	"github.com/inkforge/inkforge/internal/store"
)

// Scheduler errors.
var (
	ErrSchedulerClosed  = errors.New("scheduler is closed")
	ErrNoSelectedResult = errors.New("item has no selected result to edit")
)

// GenerationClient is the streaming generation call the scheduler
// drives. Implemented by the gemini client.
type GenerationClient interface {
	GenerateImage(ctx context.Context, prompt string, referenceImages [][]byte, onProgress func(text string)) ([]byte, error)
}

// ArtifactStore persists generated images and reads back earlier ones
// for edit references.
type ArtifactStore interface {
	SaveImage(data []byte, itemID, batchID uuid.UUID) (*storage.SavedArtifact, error)
	ReadImage(path string) ([]byte, error)
}

// Publisher receives progress events from running jobs.
type Publisher interface {
	Publish(event events.JobProgress)
}

// editJob is one entry on the priority edit sub-queue.
type editJob struct {
	itemID      uuid.UUID
	instruction string
}

// Scheduler bounds concurrent generation calls with a weighted
// semaphore and drives eligible items to completion. Eligibility is
// status-gated: only Queued items are picked up, and marking an item
// Generating claims it, so each item has a single owner at a time.
type Scheduler struct {
	logger    *slog.Logger
	items     store.ItemStore
	attempts  store.AttemptStore
	client    GenerationClient
	artifacts ArtifactStore
	publisher Publisher

	// db, when set, makes the success path commit the attempt insert
	// and the selected-result update in one transaction.
	db *sql.DB

	slots *semaphore.Weighted

	mu     sync.Mutex
	edits  []editJob
	epochs map[uuid.UUID]uint64
	closed bool

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with the given dependencies. The
// concurrency limit is clamped to [1, 10].
func NewScheduler(
	logger *slog.Logger,
	items store.ItemStore,
	attempts store.AttemptStore,
	client GenerationClient,
	artifacts ArtifactStore,
	publisher Publisher,
	concurrency int,
) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > 10 {
		concurrency = 10
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		logger:    logger.With("component", "scheduler"),
		items:     items,
		attempts:  attempts,
		client:    client,
		artifacts: artifacts,
		publisher: publisher,
		slots:     semaphore.NewWeighted(int64(concurrency)),
		epochs:    make(map[uuid.UUID]uint64),
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// WithDB enables transactional writes for the success path. Returns
// the scheduler for chaining during setup.
func (s *Scheduler) WithDB(db *sql.DB) *Scheduler {
	s.db = db
	return s
}

// Start recovers stale in-flight state from a prior process lifetime
// and begins scheduling. Items left Queued or Generating cannot be
// resumed because their work died with the process; they are failed
// before any new scheduling happens.
func (s *Scheduler) Start(ctx context.Context) error {
	stale := []domain.ItemStatus{domain.ItemStatusQueued, domain.ItemStatusGenerating}
	n, err := s.items.ResetStale(ctx, stale, domain.ItemStatusFailed)
	if err != nil {
		return fmt.Errorf("startup recovery failed: %w", err)
	}
	if n > 0 {
		s.logger.Warn("failed stale in-flight items from previous run", "count", n)
	}

	s.schedule()
	return nil
}

// Stop cancels in-flight work and waits for running jobs to unwind.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// Add marks each item Queued and triggers scheduling. Items already
// Queued or Generating are skipped, making repeated adds harmless.
func (s *Scheduler) Add(ctx context.Context, ids []uuid.UUID) error {
	if s.isClosed() {
		return ErrSchedulerClosed
	}

	for _, id := range ids {
		item, err := s.items.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load item %s: %w", id, err)
		}

		if item.Status == domain.ItemStatusQueued || item.Status == domain.ItemStatusGenerating {
			continue
		}

		if err := s.items.UpdateStatus(ctx, id, domain.ItemStatusQueued); err != nil {
			return fmt.Errorf("failed to queue item %s: %w", id, err)
		}

		s.publisher.Publish(events.NewJobProgress(id, events.StageQueued, ""))
	}

	s.schedule()
	return nil
}

// AddEdit queues an edit job for an item that already has a selected
// result. Edit jobs jump ahead of plain generations whenever a slot
// frees; the selected artifact is embedded as a visual reference.
func (s *Scheduler) AddEdit(ctx context.Context, id uuid.UUID, instruction string) error {
	if s.isClosed() {
		return ErrSchedulerClosed
	}

	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load item %s: %w", id, err)
	}

	if item.SelectedAttemptID == nil {
		return fmt.Errorf("%w: item %s", ErrNoSelectedResult, id)
	}

	// The status write and the edit-queue append happen under one lock
	// so a concurrent schedule() cannot claim the item as a plain
	// generation between them.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSchedulerClosed
	}
	if err := s.items.UpdateStatus(ctx, id, domain.ItemStatusQueued); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to queue item %s: %w", id, err)
	}
	s.edits = append(s.edits, editJob{itemID: id, instruction: instruction})
	s.mu.Unlock()

	s.publisher.Publish(events.NewJobProgress(id, events.StageQueued, "edit queued"))

	s.schedule()
	return nil
}

// Cancel removes the item from any queue and marks it NeedsAttention.
// Cancellation is cooperative: an in-flight call is not aborted, but
// bumping the item's epoch guarantees its eventual result is discarded.
func (s *Scheduler) Cancel(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	s.epochs[id]++
	for i, edit := range s.edits {
		if edit.itemID == id {
			s.edits = append(s.edits[:i], s.edits[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if err := s.items.UpdateStatus(ctx, id, domain.ItemStatusNeedsAttention); err != nil {
		return fmt.Errorf("failed to cancel item %s: %w", id, err)
	}

	s.publisher.Publish(events.NewJobProgress(id, events.StageCancelled, ""))
	return nil
}

// Stats reports item counts per status, read from the store rather
// than in-memory queue state so it stays truthful across restarts.
func (s *Scheduler) Stats(ctx context.Context) (map[domain.ItemStatus]int, error) {
	return s.items.CountByStatus(ctx)
}

// schedule fills free slots: edit jobs first, then Queued items
// oldest-updated-first. Each claimed item is marked Generating before
// its goroutine launches, so concurrent passes never double-claim.
func (s *Scheduler) schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	for s.slots.TryAcquire(1) {
		job, ok := s.nextJobLocked()
		if !ok {
			s.slots.Release(1)
			return
		}

		if err := s.items.UpdateStatus(s.baseCtx, job.itemID, domain.ItemStatusGenerating); err != nil {
			s.logger.Error("failed to claim item", "item_id", job.itemID, "error", err)
			s.slots.Release(1)
			return
		}

		epoch := s.epochs[job.itemID]
		s.wg.Add(1)
		go s.runJob(job, epoch)
	}
}

// nextJobLocked pops the next job: the edit sub-queue first, then the
// oldest-updated Queued item. Caller holds s.mu.
func (s *Scheduler) nextJobLocked() (editJob, bool) {
	if len(s.edits) > 0 {
		job := s.edits[0]
		s.edits = s.edits[1:]
		return job, true
	}

	queued, err := s.items.ListByStatus(s.baseCtx, []domain.ItemStatus{domain.ItemStatusQueued}, 1)
	if err != nil {
		s.logger.Error("failed to list queued items", "error", err)
		return editJob{}, false
	}
	if len(queued) == 0 {
		return editJob{}, false
	}

	return editJob{itemID: queued[0].ID}, true
}

// runJob drives one generation call to completion, persists the
// attempt and refills the freed slot.
func (s *Scheduler) runJob(job editJob, epoch uint64) {
	defer s.wg.Done()
	defer s.schedule()
	defer s.slots.Release(1)

	ctx := s.baseCtx
	logger := s.logger.With("item_id", job.itemID)

	item, err := s.items.GetByID(ctx, job.itemID)
	if err != nil {
		logger.Error("failed to load claimed item", "error", err)
		return
	}

	kind := domain.AttemptKindGenerate
	if job.instruction != "" {
		kind = domain.AttemptKindEdit
	}

	request, references, err := s.buildRequest(ctx, item, job.instruction)
	if err != nil {
		logger.Error("failed to build generation request", "error", err)
		s.finishFailure(ctx, item, kind, request, err, epoch)
		return
	}

	s.publisher.Publish(events.NewJobProgress(item.ID, events.StageRunning, ""))
	logger.Info("generation started", "kind", kind)

	started := time.Now()
	data, genErr := s.client.GenerateImage(ctx, request, references, func(text string) {
		s.publisher.Publish(events.NewJobProgress(item.ID, events.StageRunning, text))
	})
	elapsed := time.Since(started)

	if s.stale(item.ID, epoch) {
		logger.Warn("discarding result for cancelled job", "elapsed", elapsed)
		return
	}

	if genErr != nil {
		logger.Warn("generation failed", "elapsed", elapsed, "error", genErr)
		s.finishFailure(ctx, item, kind, request, genErr, epoch)
		return
	}

	saved, err := s.artifacts.SaveImage(data, item.ID, item.BatchID)
	if err != nil {
		logger.Error("failed to store artifact", "error", err)
		s.finishFailure(ctx, item, kind, request, err, epoch)
		return
	}

	attempt, err := domain.NewGenerationAttempt(item.ID, kind, request)
	if err != nil {
		logger.Error("failed to build attempt", "error", err)
		return
	}
	attempt.ArtifactPath = saved.Path
	attempt.SHA256 = saved.SHA256
	attempt.ResponseMeta = responseMeta(elapsed)

	if err := s.persistSuccess(ctx, item, attempt); err != nil {
		logger.Error("failed to persist generation result", "error", err)
		return
	}

	s.publisher.Publish(events.NewJobProgress(item.ID, events.StageCompleted, ""))
	logger.Info("generation complete", "elapsed", elapsed, "attempt_id", attempt.ID)
}

// persistSuccess writes the attempt and selects it on the item. With a
// database handle the two writes commit or roll back together;
// otherwise they go through the stores directly.
func (s *Scheduler) persistSuccess(ctx context.Context, item *domain.Item, attempt *domain.GenerationAttempt) error {
	persist := func(items store.ItemStore, attempts store.AttemptStore) error {
		if err := attempts.Create(ctx, attempt); err != nil {
			return fmt.Errorf("failed to persist attempt: %w", err)
		}
		if err := items.SetSelectedAttempt(ctx, item.ID, attempt.ID, domain.ItemStatusGenerated); err != nil {
			return fmt.Errorf("failed to select attempt: %w", err)
		}
		return nil
	}

	if s.db == nil {
		return persist(s.items, s.attempts)
	}

	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return persist(s.items.WithTx(tx), s.attempts.WithTx(tx))
	})
}

// finishFailure records a failed attempt carrying the error and fails
// the item, unless the job was cancelled while in flight.
func (s *Scheduler) finishFailure(ctx context.Context, item *domain.Item, kind domain.AttemptKind, request string, cause error, epoch uint64) {
	if s.stale(item.ID, epoch) {
		return
	}

	attempt, err := domain.NewGenerationAttempt(item.ID, kind, request)
	if err == nil {
		attempt.QCReport = cause.Error()
		if createErr := s.attempts.Create(ctx, attempt); createErr != nil {
			s.logger.Error("failed to persist failed attempt", "item_id", item.ID, "error", createErr)
		}
	}

	if err := s.items.UpdateStatusWithNote(ctx, item.ID, domain.ItemStatusFailed, cause.Error()); err != nil {
		s.logger.Error("failed to fail item", "item_id", item.ID, "error", err)
	}

	s.publisher.Publish(events.JobProgress{
		ItemID:    item.ID,
		Stage:     events.StageFailed,
		Error:     cause.Error(),
		Timestamp: time.Now().UTC(),
	})
}

func (s *Scheduler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// stale reports whether the item's epoch moved on while the job ran,
// meaning the job was cancelled and its result must be discarded.
func (s *Scheduler) stale(id uuid.UUID, epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epochs[id] != epoch
}

// buildRequest assembles the generation payload from the item's
// content fields. Edit jobs additionally load the selected artifact as
// a visual reference and carry the operator's instruction.
func (s *Scheduler) buildRequest(ctx context.Context, item *domain.Item, instruction string) (string, [][]byte, error) {
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
	if instruction != "" {
		payload["edit_instruction"] = instruction
	}

	request, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode request payload: %w", err)
	}

	if instruction == "" {
		return string(request), nil, nil
	}

	if item.SelectedAttemptID == nil {
		return string(request), nil, ErrNoSelectedResult
	}

	selected, err := s.attempts.GetByID(ctx, *item.SelectedAttemptID)
	if err != nil {
		return string(request), nil, fmt.Errorf("failed to load selected attempt: %w", err)
	}

	reference, err := s.artifacts.ReadImage(selected.ArtifactPath)
	if err != nil {
		return string(request), nil, err
	}

	return string(request), [][]byte{reference}, nil
}

func responseMeta(elapsed time.Duration) string {
	meta, _ := json.Marshal(map[string]int64{"duration_ms": elapsed.Milliseconds()})
	return string(meta)
}
