package poller

import (
	"context"
	"errors"
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
	"github.com/inkforge/inkforge/internal/platform/vectorizer"
)

// fakeTracingClient serves canned tracing job state.
type fakeTracingClient struct {
	mu       sync.Mutex
	nextID   string
	statuses map[string]vectorizer.Status
	svgs     map[string]string
	images   [][]byte
}

func newFakeTracingClient() *fakeTracingClient {
	return &fakeTracingClient{
		nextID:   "vt-1",
		statuses: make(map[string]vectorizer.Status),
		svgs:     make(map[string]string),
	}
}

func (f *fakeTracingClient) Submit(_ context.Context, image []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, image)
	return f.nextID, nil
}

func (f *fakeTracingClient) Status(_ context.Context, jobID string) (vectorizer.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.statuses[jobID]
	if !ok {
		return "", errors.New("unknown job")
	}
	return status, nil
}

func (f *fakeTracingClient) Download(_ context.Context, jobID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	svg, ok := f.svgs[jobID]
	if !ok {
		return "", vectorizer.ErrEmptyResult
	}
	return svg, nil
}

// memSVGStore records traced documents and serves raster reads.
type memSVGStore struct {
	mu     sync.Mutex
	svgs   map[uuid.UUID]string
	images map[string][]byte
}

func newMemSVGStore() *memSVGStore {
	return &memSVGStore{
		svgs:   make(map[uuid.UUID]string),
		images: make(map[string][]byte),
	}
}

func (m *memSVGStore) SaveSVG(content string, itemID uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.svgs[itemID] = content
	return "mem://" + itemID.String() + ".svg", nil
}

func (m *memSVGStore) ReadImage(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.images[path]
	if !ok {
		return nil, errors.New("no such artifact")
	}
	return data, nil
}

type vectorizeFixture struct {
	poller    *VectorizePoller
	items     *mocks.ItemStore
	attempts  *mocks.AttemptStore
	jobs      *mocks.VectorizeJobStore
	client    *fakeTracingClient
	artifacts *memSVGStore
}

func newVectorizeFixture(t *testing.T) *vectorizeFixture {
	t.Helper()
	f := &vectorizeFixture{
		items:     mocks.NewItemStore(),
		attempts:  mocks.NewAttemptStore(),
		jobs:      mocks.NewVectorizeJobStore(),
		client:    newFakeTracingClient(),
		artifacts: newMemSVGStore(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.poller = NewVectorizePoller(logger, f.items, f.attempts, f.jobs, f.client, f.artifacts, time.Second)
	return f
}

// seedGeneratedItem creates a Generated item with a selected attempt
// whose artifact is readable.
func (f *vectorizeFixture) seedGeneratedItem(t *testing.T) *domain.Item {
	t.Helper()

	item, err := domain.NewItem(uuid.New(), "fox", "a fox", "animals", "Easy")
	require.NoError(t, err)
	f.items.Put(item)

	attempt, err := domain.NewGenerationAttempt(item.ID, domain.AttemptKindGenerate, "{}")
	require.NoError(t, err)
	attempt.ArtifactPath = "mem://" + item.ID.String() + ".png"
	require.NoError(t, f.attempts.Create(context.Background(), attempt))
	require.NoError(t, f.items.SetSelectedAttempt(context.Background(), item.ID, attempt.ID, domain.ItemStatusGenerated))

	f.artifacts.images[attempt.ArtifactPath] = []byte("png-bytes")
	return item
}

func TestVectorizePoller_SubmitItem(t *testing.T) {
	t.Parallel()

	t.Run("submits the selected artifact", func(t *testing.T) {
		t.Parallel()

		f := newVectorizeFixture(t)
		item := f.seedGeneratedItem(t)

		job, err := f.poller.SubmitItem(context.Background(), item.ID)
		require.NoError(t, err)
		assert.Equal(t, "vt-1", job.JobID)
		assert.Equal(t, item.ID, job.ItemID)
		assert.Equal(t, domain.VectorizeJobStatusPending, job.Status)

		require.Len(t, f.client.images, 1)
		assert.Equal(t, []byte("png-bytes"), f.client.images[0])

		open, err := f.jobs.ListOpen(context.Background())
		require.NoError(t, err)
		assert.Len(t, open, 1)
	})

	t.Run("requires a selected attempt", func(t *testing.T) {
		t.Parallel()

		f := newVectorizeFixture(t)
		item, err := domain.NewItem(uuid.New(), "fox", "", "animals", "Easy")
		require.NoError(t, err)
		f.items.Put(item)

		_, err = f.poller.SubmitItem(context.Background(), item.ID)
		assert.ErrorIs(t, err, domain.ErrNoSelectedAttempt)
	})
}

func TestVectorizePoller_Poll(t *testing.T) {
	t.Parallel()

	t.Run("completed job stores the trace and marks the item", func(t *testing.T) {
		t.Parallel()

		f := newVectorizeFixture(t)
		item := f.seedGeneratedItem(t)
		_, err := f.poller.SubmitItem(context.Background(), item.ID)
		require.NoError(t, err)

		f.client.statuses["vt-1"] = vectorizer.StatusCompleted
		f.client.svgs["vt-1"] = "<svg>fox</svg>"

		require.True(t, f.poller.Poll(context.Background()))

		assert.Equal(t, domain.ItemStatusVectorized, f.items.StatusOf(item.ID))
		assert.Equal(t, "<svg>fox</svg>", f.artifacts.svgs[item.ID])
		assert.Equal(t, domain.VectorizeJobStatusCompleted, f.jobs.StatusOf("vt-1"))
	})

	t.Run("failed job leaves the item untouched", func(t *testing.T) {
		t.Parallel()

		f := newVectorizeFixture(t)
		item := f.seedGeneratedItem(t)
		_, err := f.poller.SubmitItem(context.Background(), item.ID)
		require.NoError(t, err)

		f.client.statuses["vt-1"] = vectorizer.StatusFailed

		require.True(t, f.poller.Poll(context.Background()))

		assert.Equal(t, domain.ItemStatusGenerated, f.items.StatusOf(item.ID))
		assert.Equal(t, domain.VectorizeJobStatusFailed, f.jobs.StatusOf("vt-1"))
	})

	t.Run("processing job is tracked", func(t *testing.T) {
		t.Parallel()

		f := newVectorizeFixture(t)
		item := f.seedGeneratedItem(t)
		_, err := f.poller.SubmitItem(context.Background(), item.ID)
		require.NoError(t, err)

		f.client.statuses["vt-1"] = vectorizer.StatusProcessing

		require.True(t, f.poller.Poll(context.Background()))
		assert.Equal(t, domain.VectorizeJobStatusProcessing, f.jobs.StatusOf("vt-1"))

		// A later completed poll finishes the job.
		f.client.statuses["vt-1"] = vectorizer.StatusCompleted
		f.client.svgs["vt-1"] = "<svg/>"
		require.True(t, f.poller.Poll(context.Background()))
		assert.Equal(t, domain.ItemStatusVectorized, f.items.StatusOf(item.ID))
	})
}
