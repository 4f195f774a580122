package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/inkforge/inkforge/internal/api/shared"
	"github.com/inkforge/inkforge/internal/domain"
)

// JobScheduler is the scheduler surface the job handler needs.
type JobScheduler interface {
	Add(ctx context.Context, ids []uuid.UUID) error
	AddEdit(ctx context.Context, id uuid.UUID, instruction string) error
	Cancel(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (map[domain.ItemStatus]int, error)
}

// JobHandler handles generation job requests against the live queue.
type JobHandler struct {
	scheduler JobScheduler
	logger    *slog.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(scheduler JobScheduler, logger *slog.Logger) *JobHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for JobHandler")
	}

	return &JobHandler{
		scheduler: scheduler,
		logger:    logger.With(slog.String("component", "job_handler")),
	}
}

// Enqueue handles POST /api/jobs requests.
func (h *JobHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
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

	if err := h.scheduler.Add(r.Context(), ids); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.logger.Info("items enqueued", slog.Int("count", len(ids)))
	shared.RespondWithJSON(w, r, http.StatusAccepted, EnqueueResponse{Queued: len(ids)})
}

// Edit handles POST /api/jobs/{id}/edit requests.
func (h *JobHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := itemIDFromURL(w, r)
	if !ok {
		return
	}

	var req EditRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if err := h.scheduler.AddEdit(r.Context(), id, req.Instruction); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.logger.Info("edit job enqueued", slog.String("item_id", id.String()))
	shared.RespondWithJSON(w, r, http.StatusAccepted, EnqueueResponse{Queued: 1})
}

// Cancel handles POST /api/jobs/{id}/cancel requests.
func (h *JobHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := itemIDFromURL(w, r)
	if !ok {
		return
	}

	if err := h.scheduler.Cancel(r.Context(), id); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.logger.Info("job cancelled", slog.String("item_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/jobs/stats requests.
func (h *JobHandler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.scheduler.Stats(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			http.StatusInternalServerError, "Failed to load job statistics", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, StatsResponse{Counts: counts})
}

// itemIDFromURL extracts and parses the {id} route parameter, writing
// a 400 response on failure.
func itemIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid item ID")
		return uuid.Nil, false
	}
	return id, true
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
