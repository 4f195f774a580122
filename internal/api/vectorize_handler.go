package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/inkforge/inkforge/internal/api/shared"
	"github.com/inkforge/inkforge/internal/domain"
)

// VectorizeSubmitter is the vectorization surface the handler needs.
type VectorizeSubmitter interface {
	SubmitItem(ctx context.Context, itemID uuid.UUID) (*domain.VectorizeJob, error)
}

// VectorizeHandler submits items for vector tracing.
type VectorizeHandler struct {
	poller VectorizeSubmitter
	logger *slog.Logger
}

// NewVectorizeHandler creates a new VectorizeHandler.
func NewVectorizeHandler(poller VectorizeSubmitter, logger *slog.Logger) *VectorizeHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for VectorizeHandler")
	}

	return &VectorizeHandler{
		poller: poller,
		logger: logger.With(slog.String("component", "vectorize_handler")),
	}
}

// Submit handles POST /api/items/{id}/vectorize requests.
func (h *VectorizeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := itemIDFromURL(w, r)
	if !ok {
		return
	}

	job, err := h.poller.SubmitItem(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.logger.Info("vectorization submitted",
		slog.String("item_id", id.String()),
		slog.String("job_id", job.JobID))

	shared.RespondWithJSON(w, r, http.StatusAccepted, VectorizeResponse{
		JobID:  job.JobID,
		ItemID: job.ItemID.String(),
		Status: string(job.Status),
	})
}
