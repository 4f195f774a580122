package api

import (
	"time"

	"github.com/inkforge/inkforge/internal/domain"
)

// EnqueueRequest asks the scheduler to queue items for generation.
type EnqueueRequest struct {
	ItemIDs []string `json:"item_ids" validate:"required,min=1,dive,uuid"`
}

// EditRequest re-runs generation for an item with extra instructions,
// anchored on its selected result.
type EditRequest struct {
	Instruction string `json:"instruction" validate:"required,min=1,max=2000"`
}

// BatchSubmitRequest submits items to the asynchronous batch path.
type BatchSubmitRequest struct {
	ItemIDs []string `json:"item_ids" validate:"required,min=1,dive,uuid"`
}

// EnqueueResponse reports how many items were accepted.
type EnqueueResponse struct {
	Queued int `json:"queued"`
}

// StatsResponse reports item counts per lifecycle status.
type StatsResponse struct {
	Counts map[domain.ItemStatus]int `json:"counts"`
}

// DuplicateGroupResponse is one cluster of near-duplicate items.
type DuplicateGroupResponse struct {
	Items      []DuplicateItemResponse `json:"items"`
	MaxScore   float64                 `json:"max_score"`
	GroupScore float64                 `json:"group_score"`
}

// DuplicateItemResponse is the item view inside a duplicate group.
type DuplicateItemResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Status   string `json:"status"`
}

// VectorizeResponse reports the tracking job created for an item.
type VectorizeResponse struct {
	JobID  string `json:"job_id"`
	ItemID string `json:"item_id"`
	Status string `json:"status"`
}

// BatchJobResponse is the external view of one batch job.
type BatchJobResponse struct {
	ID             string     `json:"id"`
	ExternalHandle string     `json:"external_handle,omitempty"`
	Status         string     `json:"status"`
	ItemCount      int        `json:"item_count"`
	Mode           string     `json:"mode"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func batchJobToResponse(job *domain.BatchJob) BatchJobResponse {
	return BatchJobResponse{
		ID:             job.ID.String(),
		ExternalHandle: job.ExternalHandle,
		Status:         string(job.Status),
		ItemCount:      len(job.ItemIDs),
		Mode:           job.Mode,
		Error:          job.Error,
		CreatedAt:      job.CreatedAt,
		CompletedAt:    job.CompletedAt,
	}
}
