package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"

	"github.com/google/uuid"
)

const (
	// statusPrefixLimit bounds how much of a status response is read.
	// The status fields live in the leading few kilobytes; everything
	// after that can be inlined image payload.
	statusPrefixLimit = 64 << 10

	// resultSizeCeiling is the hard ceiling on a batch result download.
	// Past it the fetch aborts with ErrResponseTooLarge instead of
	// risking unbounded memory growth.
	resultSizeCeiling = 512 << 20
)

// Patterns for the prefix scan over a status response. Counts may be
// serialized as JSON numbers or as quoted int64 strings.
var (
	statePattern     = regexp.MustCompile(`"state"\s*:\s*"(JOB_STATE_[A-Z_]+)"`)
	succeededPattern = regexp.MustCompile(`"succeededRequestCount"\s*:\s*"?(\d+)`)
	failedPattern    = regexp.MustCompile(`"failedRequestCount"\s*:\s*"?(\d+)`)
	errMsgPattern    = regexp.MustCompile(`"error"\s*:\s*\{[^{}]*?"message"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	inlinedPattern   = regexp.MustCompile(`"inlinedResponses"`)
)

// Wire types for the batch endpoint.

type batchSubmission struct {
	Batch batchSpec `json:"batch"`
}

type batchSpec struct {
	DisplayName string           `json:"displayName"`
	InputConfig batchInputConfig `json:"inputConfig"`
}

type batchInputConfig struct {
	Requests batchRequestList `json:"requests"`
}

type batchRequestList struct {
	Requests []batchInlinedRequest `json:"requests"`
}

type batchInlinedRequest struct {
	Request  generateRequest   `json:"request"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type generateRequest struct {
	Contents          []wireContent `json:"contents"`
	SystemInstruction *wireContent  `json:"systemInstruction,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text       string    `json:"text,omitempty"`
	InlineData *wireBlob `json:"inlineData,omitempty"`
}

type wireBlob struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"` // base64 on the wire
}

type batchOperation struct {
	Name     string          `json:"name"`
	Error    *wireError      `json:"error,omitempty"`
	Response *batchResponse  `json:"response,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type wireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type batchResponse struct {
	InlinedResponses *inlinedResponseList `json:"inlinedResponses,omitempty"`
}

type inlinedResponseList struct {
	InlinedResponses []inlinedResponse `json:"inlinedResponses"`
}

type inlinedResponse struct {
	Metadata map[string]string `json:"metadata,omitempty"`
	Error    *wireError        `json:"error,omitempty"`
	Response *wireGenResponse  `json:"response,omitempty"`
}

type wireGenResponse struct {
	Candidates []wireCandidate `json:"candidates"`
}

type wireCandidate struct {
	Content *wireContent `json:"content,omitempty"`
}

// correlationKey is the metadata key carrying the originating item id
// on each batch sub-request.
const correlationKey = "itemId"

// SubmitBatch packages the requests into one external batch submission
// and returns the service's job handle. The reference images are shared
// across all sub-requests. A rejection surfaces as ErrSubmissionRejected.
func (c *Client) SubmitBatch(ctx context.Context, requests []BatchRequest, referenceImages [][]byte) (string, error) {
	if len(requests) == 0 {
		return "", fmt.Errorf("%w: no requests", ErrSubmissionRejected)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	inlined := make([]batchInlinedRequest, 0, len(requests))
	for _, req := range requests {
		parts := []wirePart{{Text: req.Prompt}}
		for _, img := range referenceImages {
			parts = append(parts, wirePart{
				InlineData: &wireBlob{MIMEType: "image/png", Data: img},
			})
		}

		inlined = append(inlined, batchInlinedRequest{
			Request: generateRequest{
				Contents: []wireContent{{Role: "user", Parts: parts}},
				SystemInstruction: &wireContent{
					Parts: []wirePart{{Text: systemInstruction}},
				},
			},
			Metadata: map[string]string{correlationKey: req.ItemID.String()},
		})
	}

	body, err := json.Marshal(batchSubmission{
		Batch: batchSpec{
			DisplayName: "inkforge-batch",
			InputConfig: batchInputConfig{
				Requests: batchRequestList{Requests: inlined},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode batch submission: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:batchGenerateContent", c.baseURL, c.cfg.ImageModel)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build batch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("batch submission failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, statusPrefixLimit))
	if err != nil {
		return "", fmt.Errorf("failed to read submission response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrSubmissionRejected, resp.StatusCode, truncate(respBody, 256))
	}

	var op batchOperation
	if err := json.Unmarshal(respBody, &op); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if op.Name == "" {
		return "", fmt.Errorf("%w: submission response carries no job name", ErrInvalidResponse)
	}

	c.logger.Info("batch submitted",
		"handle", op.Name,
		"request_count", len(requests))

	return op.Name, nil
}

// PollBatchStatus reports the state of a batch job without
// materializing the full response: it streams the body, accumulates at
// most statusPrefixLimit bytes, cancels the remaining stream, and
// extracts the status fields by pattern search over that prefix. When
// no explicit terminal-state marker is present but inlined successful
// results are, a successful terminal state is inferred.
func (c *Client) PollBatchStatus(ctx context.Context, handle string) (BatchStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.StatusTimeout)
	defer cancel()

	prefix, _, err := c.fetchBatchBody(ctx, handle, statusPrefixLimit)
	if err != nil {
		return BatchStatus{}, err
	}

	return parseStatusPrefix(prefix), nil
}

// parseStatusPrefix extracts state, counts and error text from the
// accumulated prefix of a batch status response.
func parseStatusPrefix(prefix []byte) BatchStatus {
	var status BatchStatus

	if m := statePattern.FindSubmatch(prefix); m != nil {
		status.State = BatchState(m[1])
	} else if inlinedPattern.Match(prefix) {
		// Inlined results without a state marker still mean the job is
		// done; the state field can sit beyond the prefix on large
		// responses.
		status.State = BatchStateSucceeded
	}

	if m := succeededPattern.FindSubmatch(prefix); m != nil {
		status.CompletedCount, _ = strconv.Atoi(string(m[1]))
	}

	if m := failedPattern.FindSubmatch(prefix); m != nil {
		status.FailedCount, _ = strconv.Atoi(string(m[1]))
	}

	if m := errMsgPattern.FindSubmatch(prefix); m != nil {
		status.Error = string(m[1])
	}

	return status
}

// FetchBatchResults downloads and parses the full batch response. The
// read is stream-accumulated against resultSizeCeiling; past the
// ceiling the fetch aborts with ErrResponseTooLarge. Each result is
// matched to its item via correlation metadata; ItemID stays uuid.Nil
// when the metadata is absent so callers can fall back to positional
// matching.
func (c *Client) FetchBatchResults(ctx context.Context, handle string) ([]BatchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ResultTimeout)
	defer cancel()

	body, truncated, err := c.fetchBatchBody(ctx, handle, resultSizeCeiling)
	if err != nil {
		return nil, err
	}

	if truncated {
		return nil, fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, resultSizeCeiling)
	}

	var op batchOperation
	if err := json.Unmarshal(body, &op); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if op.Response == nil || op.Response.InlinedResponses == nil {
		return nil, fmt.Errorf("%w: batch response carries no inlined results", ErrInvalidResponse)
	}

	inlined := op.Response.InlinedResponses.InlinedResponses
	results := make([]BatchResult, 0, len(inlined))

	for _, entry := range inlined {
		result := BatchResult{}

		if key, ok := entry.Metadata[correlationKey]; ok {
			if id, parseErr := uuid.Parse(key); parseErr == nil {
				result.ItemID = id
			}
		}

		switch {
		case entry.Error != nil:
			result.Error = entry.Error.Message
		case entry.Response != nil:
			result.ImageData = firstInlineData(entry.Response)
			if result.ImageData == nil {
				result.Error = "batch result carries no image payload"
			}
		default:
			result.Error = "batch result carries neither response nor error"
		}

		results = append(results, result)
	}

	return results, nil
}

// firstInlineData returns the first inline binary payload in a
// generation response, or nil.
func firstInlineData(resp *wireGenResponse) []byte {
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data
			}
		}
	}
	return nil
}

// fetchBatchBody GETs the batch operation resource and accumulates at
// most limit bytes of its body, then abandons the rest of the stream.
// The second return reports whether the body exceeded the limit.
func (c *Client) fetchBatchBody(ctx context.Context, handle string, limit int64) ([]byte, bool, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, handle)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build batch request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, false, fmt.Errorf("batch request failed: %w", err)
	}
	// Closing the body without draining it cancels the remaining stream.
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read batch response: %w", err)
	}

	truncated := int64(len(body)) > limit
	if truncated {
		body = body[:limit]
	}

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("%w: HTTP %d: %s", ErrInvalidResponse, resp.StatusCode, truncate(body, 256))
	}

	return body, truncated, nil
}

// truncate clips b for inclusion in an error message.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
