// Package vectorizer calls the external tracing service that converts
// raster artifacts into vector graphics: submit an image, poll the
// returned job id, download the SVG once the trace completes.
package vectorizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Client errors.
var (
	ErrInvalidConfig = errors.New("invalid vectorizer configuration")
	ErrSubmitFailed  = errors.New("vectorize submission failed")
	ErrJobNotFound   = errors.New("vectorize job not found")
	ErrEmptyResult   = errors.New("vectorize job produced no output")
)

// Status mirrors the service's job states.
type Status string

// Possible job states reported by the service.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

const (
	// statusTimeout bounds the cheap submit/status calls.
	statusTimeout = 15 * time.Second
	// downloadTimeout bounds result downloads, which can carry large
	// SVG documents.
	downloadTimeout = 2 * time.Minute
)

// Client is an HTTP client for the tracing service.
type Client struct {
	logger     *slog.Logger
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a vectorizer client for the given base URL.
func NewClient(logger *slog.Logger, baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: base URL cannot be empty", ErrInvalidConfig)
	}
	return &Client{
		logger:     logger.With("component", "vectorizer_client"),
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}, nil
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

type statusResponse struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Submit uploads an image for tracing and returns the service's job id.
func (c *Client) Submit(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrSubmitFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("failed to build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: HTTP %d", ErrSubmitFailed, resp.StatusCode)
	}

	var parsed submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	if parsed.JobID == "" {
		return "", fmt.Errorf("%w: response carries no job id", ErrSubmitFailed)
	}

	c.logger.Info("vectorize job submitted", "job_id", parsed.JobID, "image_bytes", len(image))
	return parsed.JobID, nil
}

// Status reports the current state of a tracing job.
func (c *Client) Status(ctx context.Context, jobID string) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build status request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("status request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status request failed: HTTP %d", resp.StatusCode)
	}

	var parsed statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to parse status response: %w", err)
	}

	return parsed.Status, nil
}

// Download fetches the traced SVG for a completed job.
func (c *Client) Download(ctx context.Context, jobID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobID+"/result", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download request failed: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read download response: %w", err)
	}
	if len(body) == 0 {
		return "", ErrEmptyResult
	}

	return string(body), nil
}
