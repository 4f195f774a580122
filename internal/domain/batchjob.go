package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// BatchJobStatus represents the aggregate state of a batch job.
type BatchJobStatus string

// Possible batch job status values
const (
	BatchJobStatusPending    BatchJobStatus = "pending"
	BatchJobStatusProcessing BatchJobStatus = "processing"
	BatchJobStatusCompleted  BatchJobStatus = "completed"
	BatchJobStatusFailed     BatchJobStatus = "failed"
)

// Common validation errors for BatchJob
var (
	ErrEmptyBatchJobID      = errors.New("batch job ID cannot be empty")
	ErrEmptyBatchJobItems   = errors.New("batch job must have at least one item")
	ErrInvalidBatchJobState = errors.New("invalid batch job status")
)

// BatchJob is a group of items submitted together to the asynchronous
// bulk generation path. The member item set is fixed at creation; the
// external handle stays empty until the service accepts the submission.
type BatchJob struct {
	ID             uuid.UUID      `json:"id"`
	ExternalHandle string         `json:"external_handle,omitempty"`
	Status         BatchJobStatus `json:"status"`
	ItemIDs        []uuid.UUID    `json:"item_ids"`
	Mode           string         `json:"mode"`
	Error          string         `json:"error,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

// NewBatchJob creates a pending batch job over the given item ids.
func NewBatchJob(itemIDs []uuid.UUID, mode string) (*BatchJob, error) {
	job := &BatchJob{
		ID:        uuid.New(),
		Status:    BatchJobStatusPending,
		ItemIDs:   itemIDs,
		Mode:      mode,
		CreatedAt: time.Now().UTC(),
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks if the BatchJob has valid data.
func (j *BatchJob) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyBatchJobID
	}

	if len(j.ItemIDs) == 0 {
		return ErrEmptyBatchJobItems
	}

	if !isValidBatchJobStatus(j.Status) {
		return ErrInvalidBatchJobState
	}

	return nil
}

// Terminal reports whether the job has reached a final state.
func (j *BatchJob) Terminal() bool {
	return j.Status == BatchJobStatusCompleted || j.Status == BatchJobStatusFailed
}

// Complete marks the job completed and stamps the completion time.
func (j *BatchJob) Complete() {
	now := time.Now().UTC()
	j.Status = BatchJobStatusCompleted
	j.CompletedAt = &now
}

// Fail marks the job failed with the given error text.
func (j *BatchJob) Fail(errText string) {
	now := time.Now().UTC()
	j.Status = BatchJobStatusFailed
	j.Error = errText
	j.CompletedAt = &now
}

func isValidBatchJobStatus(status BatchJobStatus) bool {
	switch status {
	case BatchJobStatusPending, BatchJobStatusProcessing,
		BatchJobStatusCompleted, BatchJobStatusFailed:
		return true
	default:
		return false
	}
}
