package gemini

import "github.com/google/uuid"

// BatchRequest is one sub-request of a batch submission. The item ID is
// carried as correlation metadata so the result can be matched back to
// its originating item.
type BatchRequest struct {
	ItemID uuid.UUID
	Prompt string
}

// BatchState is the aggregate state reported by the batch endpoint.
type BatchState string

// Batch states as exposed by the external service.
const (
	BatchStatePending   BatchState = "JOB_STATE_PENDING"
	BatchStateRunning   BatchState = "JOB_STATE_RUNNING"
	BatchStateSucceeded BatchState = "JOB_STATE_SUCCEEDED"
	BatchStateFailed    BatchState = "JOB_STATE_FAILED"
	BatchStateCancelled BatchState = "JOB_STATE_CANCELLED"
)

// TerminalSuccess reports whether the state is a successful terminal state.
func (s BatchState) TerminalSuccess() bool {
	return s == BatchStateSucceeded
}

// TerminalFailure reports whether the state is a failed or cancelled
// terminal state.
func (s BatchState) TerminalFailure() bool {
	return s == BatchStateFailed || s == BatchStateCancelled
}

// BatchStatus summarizes a status poll: the external state, the
// success/failure counts the service reports, and its error text.
type BatchStatus struct {
	State          BatchState
	CompletedCount int
	FailedCount    int
	Error          string
}

// BatchResult is one item's outcome from a completed batch: either
// image bytes or an error message. ItemID is uuid.Nil when the service
// returned no correlation metadata; callers then match positionally.
type BatchResult struct {
	ItemID    uuid.UUID
	ImageData []byte
	Error     string
}
