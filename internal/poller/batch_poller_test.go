package poller

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkforge/inkforge/internal/domain"
	"github.com/inkforge/inkforge/internal/mocks"
	"github.com/inkforge/inkforge/internal/platform/gemini"
	"github.com/inkforge/inkforge/internal/storage"
)

// fakeBatchClient serves canned statuses and results per handle.
type fakeBatchClient struct {
	mu       sync.Mutex
	statuses map[string]gemini.BatchStatus
	results  map[string][]gemini.BatchResult
	fetchErr error

	statusCalls int
	blockStatus chan struct{} // when set, status calls wait here
}

func newFakeBatchClient() *fakeBatchClient {
	return &fakeBatchClient{
		statuses: make(map[string]gemini.BatchStatus),
		results:  make(map[string][]gemini.BatchResult),
	}
}

func (f *fakeBatchClient) PollBatchStatus(_ context.Context, handle string) (gemini.BatchStatus, error) {
	f.mu.Lock()
	f.statusCalls++
	block := f.blockStatus
	status, ok := f.statuses[handle]
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if !ok {
		return gemini.BatchStatus{}, errors.New("unknown handle")
	}
	return status, nil
}

func (f *fakeBatchClient) FetchBatchResults(_ context.Context, handle string) ([]gemini.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.results[handle], nil
}

// memArtifacts keeps saved artifacts in memory.
type memArtifacts struct {
	mu    sync.Mutex
	saved map[uuid.UUID][]byte
}

func newMemArtifacts() *memArtifacts {
	return &memArtifacts{saved: make(map[uuid.UUID][]byte)}
}

func (m *memArtifacts) SaveImage(data []byte, itemID, _ uuid.UUID) (*storage.SavedArtifact, error) {
	if len(data) == 0 {
		return nil, storage.ErrEmptyArtifact
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[itemID] = data
	sum := sha256.Sum256(data)
	return &storage.SavedArtifact{
		Path:   "mem://" + itemID.String(),
		SHA256: hex.EncodeToString(sum[:]),
	}, nil
}

type batchPollerFixture struct {
	poller    *BatchPoller
	items     *mocks.ItemStore
	attempts  *mocks.AttemptStore
	jobs      *mocks.BatchJobStore
	client    *fakeBatchClient
	artifacts *memArtifacts
}

func newBatchPollerFixture(t *testing.T) *batchPollerFixture {
	t.Helper()
	f := &batchPollerFixture{
		items:     mocks.NewItemStore(),
		attempts:  mocks.NewAttemptStore(),
		jobs:      mocks.NewBatchJobStore(),
		client:    newFakeBatchClient(),
		artifacts: newMemArtifacts(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.poller = NewBatchPoller(logger, f.items, f.attempts, f.jobs, f.client, f.artifacts, time.Minute)
	return f
}

// seedJob creates n queued items and one processing job with a handle.
func (f *batchPollerFixture) seedJob(t *testing.T, handle string, n int) *domain.BatchJob {
	t.Helper()
	ids := make([]uuid.UUID, n)
	for i := range ids {
		item, err := domain.NewItem(uuid.New(), fmt.Sprintf("item %d", i), "", "animals", "Easy")
		require.NoError(t, err)
		item.Status = domain.ItemStatusQueued
		f.items.Put(item)
		ids[i] = item.ID
	}

	job, err := domain.NewBatchJob(ids, "image")
	require.NoError(t, err)
	job.ExternalHandle = handle
	job.Status = domain.BatchJobStatusProcessing
	require.NoError(t, f.jobs.Create(context.Background(), job))
	return job
}

func TestBatchPoller_AppliesSuccessfulResults(t *testing.T) {
	t.Parallel()

	f := newBatchPollerFixture(t)
	job := f.seedJob(t, "batches/ok", 3)

	f.client.statuses["batches/ok"] = gemini.BatchStatus{State: gemini.BatchStateSucceeded}
	f.client.results["batches/ok"] = []gemini.BatchResult{
		{ItemID: job.ItemIDs[0], ImageData: []byte("img-0")},
		{ItemID: job.ItemIDs[1], Error: "safety block"},
		{ItemID: job.ItemIDs[2], ImageData: []byte("img-2")},
	}

	require.True(t, f.poller.Poll(context.Background()))

	assert.Equal(t, domain.ItemStatusGenerated, f.items.StatusOf(job.ItemIDs[0]))
	assert.Equal(t, domain.ItemStatusFailed, f.items.StatusOf(job.ItemIDs[1]))
	assert.Equal(t, domain.ItemStatusGenerated, f.items.StatusOf(job.ItemIDs[2]))

	// Success lands an attempt with artifact and selection; failure an
	// attempt carrying the reason.
	attempts, err := f.attempts.ListByItem(context.Background(), job.ItemIDs[0])
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.True(t, attempts[0].Succeeded())

	item, err := f.items.GetByID(context.Background(), job.ItemIDs[0])
	require.NoError(t, err)
	require.NotNil(t, item.SelectedAttemptID)
	assert.Equal(t, attempts[0].ID, *item.SelectedAttemptID)

	failed, err := f.attempts.ListByItem(context.Background(), job.ItemIDs[1])
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].QCReport, "safety block")

	updated, err := f.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchJobStatusCompleted, updated.Status)
	assert.NotNil(t, updated.CompletedAt)
}

func TestBatchPoller_PositionalFallback(t *testing.T) {
	t.Parallel()

	f := newBatchPollerFixture(t)
	job := f.seedJob(t, "batches/nometa", 2)

	f.client.statuses["batches/nometa"] = gemini.BatchStatus{State: gemini.BatchStateSucceeded}
	// No correlation metadata on either result: matched by position.
	f.client.results["batches/nometa"] = []gemini.BatchResult{
		{ImageData: []byte("img-0")},
		{ImageData: []byte("img-1")},
	}

	require.True(t, f.poller.Poll(context.Background()))

	assert.Equal(t, domain.ItemStatusGenerated, f.items.StatusOf(job.ItemIDs[0]))
	assert.Equal(t, domain.ItemStatusGenerated, f.items.StatusOf(job.ItemIDs[1]))
	assert.Equal(t, []byte("img-0"), f.artifacts.saved[job.ItemIDs[0]])
	assert.Equal(t, []byte("img-1"), f.artifacts.saved[job.ItemIDs[1]])
}

func TestBatchPoller_CountMismatchTolerated(t *testing.T) {
	t.Parallel()

	f := newBatchPollerFixture(t)
	job := f.seedJob(t, "batches/short", 3)

	f.client.statuses["batches/short"] = gemini.BatchStatus{State: gemini.BatchStateSucceeded}
	f.client.results["batches/short"] = []gemini.BatchResult{
		{ItemID: job.ItemIDs[0], ImageData: []byte("img-0")},
	}

	require.True(t, f.poller.Poll(context.Background()))

	// The job still completes; unmatched members keep their status.
	updated, err := f.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchJobStatusCompleted, updated.Status)
	assert.Equal(t, domain.ItemStatusGenerated, f.items.StatusOf(job.ItemIDs[0]))
	assert.Equal(t, domain.ItemStatusQueued, f.items.StatusOf(job.ItemIDs[1]))
	assert.Equal(t, domain.ItemStatusQueued, f.items.StatusOf(job.ItemIDs[2]))
}

func TestBatchPoller_RemoteFailureFailsMembers(t *testing.T) {
	t.Parallel()

	f := newBatchPollerFixture(t)
	job := f.seedJob(t, "batches/dead", 2)

	f.client.statuses["batches/dead"] = gemini.BatchStatus{
		State: gemini.BatchStateFailed,
		Error: "internal error",
	}

	require.True(t, f.poller.Poll(context.Background()))

	updated, err := f.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchJobStatusFailed, updated.Status)
	assert.Contains(t, updated.Error, "internal error")

	for _, id := range job.ItemIDs {
		assert.Equal(t, domain.ItemStatusFailed, f.items.StatusOf(id))
	}
}

func TestBatchPoller_OversizedResponseLeavesJobOpen(t *testing.T) {
	t.Parallel()

	f := newBatchPollerFixture(t)
	job := f.seedJob(t, "batches/huge", 2)

	f.client.statuses["batches/huge"] = gemini.BatchStatus{State: gemini.BatchStateSucceeded}
	f.client.fetchErr = fmt.Errorf("%w: over ceiling", gemini.ErrResponseTooLarge)

	require.True(t, f.poller.Poll(context.Background()))

	updated, err := f.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchJobStatusProcessing, updated.Status)
	for _, id := range job.ItemIDs {
		assert.Equal(t, domain.ItemStatusQueued, f.items.StatusOf(id))
	}
}

func TestBatchPoller_PendingBecomesProcessing(t *testing.T) {
	t.Parallel()

	f := newBatchPollerFixture(t)
	job := f.seedJob(t, "batches/slow", 1)
	job.Status = domain.BatchJobStatusPending
	require.NoError(t, f.jobs.Update(context.Background(), job))

	f.client.statuses["batches/slow"] = gemini.BatchStatus{State: gemini.BatchStateRunning}

	require.True(t, f.poller.Poll(context.Background()))

	updated, err := f.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchJobStatusProcessing, updated.Status)
}

func TestBatchPoller_SingleFlight(t *testing.T) {
	t.Parallel()

	f := newBatchPollerFixture(t)
	f.seedJob(t, "batches/block", 1)

	block := make(chan struct{})
	f.client.blockStatus = block
	f.client.statuses["batches/block"] = gemini.BatchStatus{State: gemini.BatchStateRunning}

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.poller.Poll(context.Background())
	}()

	// Wait for the first cycle to be mid-status-call, then try again.
	require.Eventually(t, func() bool {
		f.client.mu.Lock()
		defer f.client.mu.Unlock()
		return f.client.statusCalls == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.False(t, f.poller.Poll(context.Background()), "overlapping cycle should be dropped")

	close(block)
	<-done
}
