package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// AttemptKind distinguishes plain generations from edit passes over an
// existing artifact.
type AttemptKind string

// Possible attempt kinds
const (
	AttemptKindGenerate AttemptKind = "generate"
	AttemptKindEdit     AttemptKind = "edit"
)

// Common validation errors for GenerationAttempt
var (
	ErrEmptyAttemptID     = errors.New("attempt ID cannot be empty")
	ErrEmptyAttemptItemID = errors.New("attempt item ID cannot be empty")
	ErrInvalidAttemptKind = errors.New("invalid attempt kind")
)

// GenerationAttempt records one concrete generation or edit invocation
// and its outcome. Attempts are immutable once created; an item has many
// attempts and at most one is selected.
type GenerationAttempt struct {
	ID           uuid.UUID   `json:"id"`
	ItemID       uuid.UUID   `json:"item_id"`
	Kind         AttemptKind `json:"kind"`
	Request      string      `json:"request"`
	ResponseMeta string      `json:"response_meta,omitempty"`
	ArtifactPath string      `json:"artifact_path,omitempty"`
	SHA256       string      `json:"sha256,omitempty"`
	QCReport     string      `json:"qc_report,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// NewGenerationAttempt creates a new attempt for the given item.
// The artifact path and hash are left empty; callers fill them in for
// successful generations before persisting.
func NewGenerationAttempt(itemID uuid.UUID, kind AttemptKind, request string) (*GenerationAttempt, error) {
	attempt := &GenerationAttempt{
		ID:        uuid.New(),
		ItemID:    itemID,
		Kind:      kind,
		Request:   request,
		CreatedAt: time.Now().UTC(),
	}

	if err := attempt.Validate(); err != nil {
		return nil, err
	}

	return attempt, nil
}

// Validate checks if the GenerationAttempt has valid data.
func (a *GenerationAttempt) Validate() error {
	if a.ID == uuid.Nil {
		return ErrEmptyAttemptID
	}

	if a.ItemID == uuid.Nil {
		return ErrEmptyAttemptItemID
	}

	if a.Kind != AttemptKindGenerate && a.Kind != AttemptKindEdit {
		return ErrInvalidAttemptKind
	}

	return nil
}

// Succeeded reports whether this attempt produced an artifact.
func (a *GenerationAttempt) Succeeded() bool {
	return a.ArtifactPath != ""
}
