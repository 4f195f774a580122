package events

import (
	"time"

	"github.com/google/uuid"
)

// JobStage describes where in its lifecycle a job currently is.
type JobStage string

// Possible job stages carried by progress events.
const (
	StageQueued    JobStage = "queued"
	StageRunning   JobStage = "running"
	StageCompleted JobStage = "completed"
	StageFailed    JobStage = "failed"
	StageCancelled JobStage = "cancelled"
)

// JobProgress is one progress update for a generation job. Message
// carries textual fragments streamed back by the generation service
// while the call is in flight.
type JobProgress struct {
	ItemID    uuid.UUID `json:"item_id"`
	Stage     JobStage  `json:"stage"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewJobProgress creates a progress event for the given item and stage.
func NewJobProgress(itemID uuid.UUID, stage JobStage, message string) JobProgress {
	return JobProgress{
		ItemID:    itemID,
		Stage:     stage,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}
