package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// VectorizeJobStatus represents the state of a vectorization job as
// reported by the external tracing service.
type VectorizeJobStatus string

// Possible vectorize job status values
const (
	VectorizeJobStatusPending    VectorizeJobStatus = "pending"
	VectorizeJobStatusProcessing VectorizeJobStatus = "processing"
	VectorizeJobStatusCompleted  VectorizeJobStatus = "completed"
	VectorizeJobStatusFailed     VectorizeJobStatus = "failed"
)

// ErrEmptyVectorizeJobID is returned when a vectorize job is created
// without an external job id.
var ErrEmptyVectorizeJobID = errors.New("vectorize job ID cannot be empty")

// VectorizeJob tracks one submission of an item's artifact to the
// external vector tracing service. The JobID is assigned by that service.
type VectorizeJob struct {
	JobID     string             `json:"job_id"`
	ItemID    uuid.UUID          `json:"item_id"`
	Status    VectorizeJobStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// NewVectorizeJob creates a pending vectorize job for the given item.
func NewVectorizeJob(jobID string, itemID uuid.UUID) (*VectorizeJob, error) {
	if jobID == "" {
		return nil, ErrEmptyVectorizeJobID
	}

	if itemID == uuid.Nil {
		return nil, ErrEmptyItemID
	}

	now := time.Now().UTC()
	return &VectorizeJob{
		JobID:     jobID,
		ItemID:    itemID,
		Status:    VectorizeJobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Terminal reports whether the job has reached a final state.
func (j *VectorizeJob) Terminal() bool {
	return j.Status == VectorizeJobStatusCompleted || j.Status == VectorizeJobStatusFailed
}
