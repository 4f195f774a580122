package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/inkforge/inkforge/internal/api/shared"
	"github.com/inkforge/inkforge/internal/dedupe"
	"github.com/inkforge/inkforge/internal/domain"
	"github.com/inkforge/inkforge/internal/store"
)

// DuplicateFinder is the dedupe surface the handler needs.
type DuplicateFinder interface {
	FindDuplicateGroups(ctx context.Context, items []*domain.Item) ([]dedupe.DuplicateGroup, error)
}

// DedupeHandler serves near-duplicate inspection requests.
type DedupeHandler struct {
	engine DuplicateFinder
	items  store.ItemStore
	logger *slog.Logger
}

// NewDedupeHandler creates a new DedupeHandler.
func NewDedupeHandler(engine DuplicateFinder, items store.ItemStore, logger *slog.Logger) *DedupeHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for DedupeHandler")
	}

	return &DedupeHandler{
		engine: engine,
		items:  items,
		logger: logger.With(slog.String("component", "dedupe_handler")),
	}
}

// ListDuplicates handles GET /api/duplicates requests. Embeddings are
// computed lazily, so the first call over a fresh corpus is slow.
func (h *DedupeHandler) ListDuplicates(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.ListByStatus(r.Context(), domain.AllItemStatuses(), 0)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			http.StatusInternalServerError, "Failed to load items", err)
		return
	}

	groups, err := h.engine.FindDuplicateGroups(r.Context(), items)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			http.StatusInternalServerError, "Failed to detect duplicates", err)
		return
	}

	h.logger.Debug("duplicate scan finished",
		slog.Int("items", len(items)),
		slog.Int("groups", len(groups)))

	responses := make([]DuplicateGroupResponse, 0, len(groups))
	for _, group := range groups {
		resp := DuplicateGroupResponse{
			MaxScore:   group.MaxScore,
			GroupScore: group.GroupScore,
		}
		for _, item := range group.Items {
			resp.Items = append(resp.Items, DuplicateItemResponse{
				ID:       item.ID.String(),
				Title:    item.Title,
				Category: item.Category,
				Status:   string(item.Status),
			})
		}
		responses = append(responses, resp)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}
