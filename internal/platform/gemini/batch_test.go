package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inkforge/inkforge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	return &Client{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		cfg: config.GenerationConfig{
			APIKey:         "test-key",
			ImageModel:     "test-image-model",
			EmbeddingModel: "test-embedding-model",
			RequestTimeout: 10 * time.Second,
			StatusTimeout:  10 * time.Second,
			ResultTimeout:  10 * time.Second,
		},
		httpClient: server.Client(),
		baseURL:    server.URL,
	}
}

func TestParseStatusPrefix(t *testing.T) {
	t.Parallel()

	t.Run("terminal success state", func(t *testing.T) {
		t.Parallel()

		prefix := []byte(`{"name":"batches/abc","metadata":{"state":"JOB_STATE_SUCCEEDED",` +
			`"batchStats":{"succeededRequestCount":"8","failedRequestCount":"2"}}`)
		status := parseStatusPrefix(prefix)

		assert.Equal(t, BatchStateSucceeded, status.State)
		assert.Equal(t, 8, status.CompletedCount)
		assert.Equal(t, 2, status.FailedCount)
		assert.True(t, status.State.TerminalSuccess())
	})

	t.Run("unquoted counts", func(t *testing.T) {
		t.Parallel()

		prefix := []byte(`{"state":"JOB_STATE_RUNNING","succeededRequestCount":3,"failedRequestCount":0}`)
		status := parseStatusPrefix(prefix)

		assert.Equal(t, BatchStateRunning, status.State)
		assert.Equal(t, 3, status.CompletedCount)
		assert.False(t, status.State.TerminalSuccess())
		assert.False(t, status.State.TerminalFailure())
	})

	t.Run("failure with error message", func(t *testing.T) {
		t.Parallel()

		prefix := []byte(`{"state":"JOB_STATE_FAILED","error":{"code":13,"message":"internal error"}}`)
		status := parseStatusPrefix(prefix)

		assert.Equal(t, BatchStateFailed, status.State)
		assert.True(t, status.State.TerminalFailure())
		assert.Equal(t, "internal error", status.Error)
	})

	t.Run("inlined results imply success when state marker absent", func(t *testing.T) {
		t.Parallel()

		prefix := []byte(`{"name":"batches/abc","response":{"inlinedResponses":{"inlinedResponses":[`)
		status := parseStatusPrefix(prefix)

		assert.Equal(t, BatchStateSucceeded, status.State)
	})

	t.Run("nothing recognizable", func(t *testing.T) {
		t.Parallel()

		status := parseStatusPrefix([]byte(`{"name":"batches/abc"}`))
		assert.Empty(t, status.State)
	})
}

func TestPollBatchStatus_BoundedRead(t *testing.T) {
	t.Parallel()

	// The status fields sit in the first bytes; the rest of the body is
	// a padding payload far larger than the prefix limit. The poll must
	// succeed without draining it.
	written := make(chan int64, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var total int64
		prefix := `{"name":"batches/abc","metadata":{"state":"JOB_STATE_SUCCEEDED","batchStats":{"succeededRequestCount":"5"}},"padding":"`
		n, _ := io.WriteString(w, prefix)
		total += int64(n)

		flusher := w.(http.Flusher)
		flusher.Flush()

		chunk := strings.Repeat("x", 64<<10)
		for i := 0; i < 4096; i++ { // would be 256 MiB if fully drained
			n, err := io.WriteString(w, chunk)
			total += int64(n)
			if err != nil {
				break
			}
			flusher.Flush()
		}
		written <- total
	}))
	defer server.Close()

	client := newTestClient(t, server)

	status, err := client.PollBatchStatus(context.Background(), "batches/abc")
	require.NoError(t, err)
	assert.Equal(t, BatchStateSucceeded, status.State)
	assert.Equal(t, 5, status.CompletedCount)

	select {
	case total := <-written:
		assert.Less(t, total, int64(64<<20),
			"server should have been cut off long before the full body")
	case <-time.After(10 * time.Second):
		t.Fatal("server handler did not finish")
	}
}

func TestSubmitBatch(t *testing.T) {
	t.Parallel()

	itemA := uuid.New()
	itemB := uuid.New()

	t.Run("accepted submission", func(t *testing.T) {
		t.Parallel()

		var captured batchSubmission
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Contains(t, r.URL.Path, "test-image-model:batchGenerateContent")
			assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			_, _ = io.WriteString(w, `{"name":"batches/job-42"}`)
		}))
		defer server.Close()

		client := newTestClient(t, server)

		handle, err := client.SubmitBatch(context.Background(), []BatchRequest{
			{ItemID: itemA, Prompt: "a fox"},
			{ItemID: itemB, Prompt: "an owl"},
		}, [][]byte{[]byte("border-template")})
		require.NoError(t, err)
		assert.Equal(t, "batches/job-42", handle)

		reqs := captured.Batch.InputConfig.Requests.Requests
		require.Len(t, reqs, 2)
		assert.Equal(t, itemA.String(), reqs[0].Metadata[correlationKey])
		assert.Equal(t, itemB.String(), reqs[1].Metadata[correlationKey])
		assert.Equal(t, "a fox", reqs[0].Request.Contents[0].Parts[0].Text)
		// Reference image attached to every sub-request.
		require.Len(t, reqs[1].Request.Contents[0].Parts, 2)
		assert.Equal(t, []byte("border-template"), reqs[1].Request.Contents[0].Parts[1].InlineData.Data)
	})

	t.Run("rejected submission", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"message":"quota exceeded"}}`)
		}))
		defer server.Close()

		client := newTestClient(t, server)

		_, err := client.SubmitBatch(context.Background(), []BatchRequest{{ItemID: itemA, Prompt: "a fox"}}, nil)
		assert.ErrorIs(t, err, ErrSubmissionRejected)
	})

	t.Run("empty request set", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request should reach the server")
		}))
		defer server.Close()

		client := newTestClient(t, server)
		_, err := client.SubmitBatch(context.Background(), nil, nil)
		assert.ErrorIs(t, err, ErrSubmissionRejected)
	})
}

func TestFetchBatchResults(t *testing.T) {
	t.Parallel()

	itemA := uuid.New()
	itemB := uuid.New()
	png := []byte("png-bytes")

	t.Run("correlated results", func(t *testing.T) {
		t.Parallel()

		body := fmt.Sprintf(`{
			"name": "batches/job-42",
			"response": {"inlinedResponses": {"inlinedResponses": [
				{"metadata": {"itemId": %q},
				 "response": {"candidates": [{"content": {"parts": [
					{"text": "thinking"},
					{"inlineData": {"mimeType": "image/png", "data": %q}}
				 ]}}]}},
				{"metadata": {"itemId": %q},
				 "error": {"code": 8, "message": "safety block"}},
				{"response": {"candidates": [{"content": {"parts": [{"text": "no image here"}]}}]}}
			]}}
		}`, itemA, base64.StdEncoding.EncodeToString(png), itemB)

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/batches/job-42", r.URL.Path)
			_, _ = io.WriteString(w, body)
		}))
		defer server.Close()

		client := newTestClient(t, server)

		results, err := client.FetchBatchResults(context.Background(), "batches/job-42")
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, itemA, results[0].ItemID)
		assert.Equal(t, png, results[0].ImageData)
		assert.Empty(t, results[0].Error)

		assert.Equal(t, itemB, results[1].ItemID)
		assert.Nil(t, results[1].ImageData)
		assert.Equal(t, "safety block", results[1].Error)

		// No correlation metadata: Nil ID for positional fallback, and
		// a response without an image payload is an error result.
		assert.Equal(t, uuid.Nil, results[2].ItemID)
		assert.NotEmpty(t, results[2].Error)
	})

	t.Run("no inlined results", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"name":"batches/job-42"}`)
		}))
		defer server.Close()

		client := newTestClient(t, server)
		_, err := client.FetchBatchResults(context.Background(), "batches/job-42")
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})
}

func TestFetchBatchBody_SizeCeiling(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("y", 4096))
	}))
	defer server.Close()

	client := newTestClient(t, server)

	body, truncated, err := client.fetchBatchBody(context.Background(), "batches/x", 1024)
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Len(t, body, 1024)

	body, truncated, err = client.fetchBatchBody(context.Background(), "batches/x", 1<<20)
	require.NoError(t, err)
	assert.False(t, truncated)
	assert.Len(t, body, 4096)
}
