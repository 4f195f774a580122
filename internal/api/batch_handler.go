package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/inkforge/inkforge/internal/api/shared"
	"github.com/inkforge/inkforge/internal/domain"
	"github.com/inkforge/inkforge/internal/store"
)

// defaultBatchListLimit caps GET /api/batches responses.
const defaultBatchListLimit = 50

// BatchSubmitService is the batch submission surface the handler needs.
type BatchSubmitService interface {
	Submit(ctx context.Context, ids []uuid.UUID) ([]*domain.BatchJob, error)
}

// BatchPollTrigger triggers one reconciliation pass out of schedule.
type BatchPollTrigger interface {
	Poll(ctx context.Context) bool
}

// BatchHandler handles batch job submission and inspection.
type BatchHandler struct {
	service BatchSubmitService
	jobs    store.BatchJobStore
	poller  BatchPollTrigger
	logger  *slog.Logger
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(
	service BatchSubmitService,
	jobs store.BatchJobStore,
	poller BatchPollTrigger,
	logger *slog.Logger,
) *BatchHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for BatchHandler")
	}

	return &BatchHandler{
		service: service,
		jobs:    jobs,
		poller:  poller,
		logger:  logger.With(slog.String("component", "batch_handler")),
	}
}

// Submit handles POST /api/batches requests.
func (h *BatchHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req BatchSubmitRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	ids, err := parseUUIDs(req.ItemIDs)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid item ID")
		return
	}

	jobs, err := h.service.Submit(r.Context(), ids)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.logger.Info("batch submitted",
		slog.Int("items", len(ids)),
		slog.Int("jobs", len(jobs)))

	responses := make([]BatchJobResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, batchJobToResponse(job))
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, responses)
}

// List handles GET /api/batches requests.
func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.List(r.Context(), defaultBatchListLimit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			http.StatusInternalServerError, "Failed to list batch jobs", err)
		return
	}

	responses := make([]BatchJobResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, batchJobToResponse(job))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// TriggerPoll handles POST /api/batches/poll requests. It reports
// whether a reconciliation pass actually ran; an overlapping pass in
// flight means the trigger is dropped.
func (h *BatchHandler) TriggerPoll(w http.ResponseWriter, r *http.Request) {
	ran := h.poller.Poll(r.Context())
	if !ran {
		shared.RespondWithJSON(w, r, http.StatusConflict, map[string]bool{"polled": false})
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]bool{"polled": true})
}
