package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ItemStatus represents the lifecycle state of an item.
type ItemStatus string

// Possible item status values
const (
	ItemStatusImported       ItemStatus = "Imported"
	ItemStatusQueued         ItemStatus = "Queued"
	ItemStatusGenerating     ItemStatus = "Generating"
	ItemStatusGenerated      ItemStatus = "Generated"
	ItemStatusNeedsAttention ItemStatus = "NeedsAttention"
	ItemStatusFailed         ItemStatus = "Failed"
	ItemStatusApproved       ItemStatus = "Approved"
	ItemStatusOmitted        ItemStatus = "Omitted"
	ItemStatusVectorized     ItemStatus = "Vectorized"
	ItemStatusExported       ItemStatus = "Exported"
	ItemStatusPublished      ItemStatus = "Published"
)

// Common validation errors for Item
var (
	ErrEmptyItemID       = errors.New("item ID cannot be empty")
	ErrEmptyItemTitle    = errors.New("item title cannot be empty")
	ErrInvalidItemStatus = errors.New("invalid item status")
)

// Item is the unit of work: a content record that gets an image
// generated for it and then flows through review, vectorization
// and publication.
type Item struct {
	ID                  uuid.UUID  `json:"id"`
	BatchID             uuid.UUID  `json:"batch_id"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	Category            string     `json:"category"`
	Skill               string     `json:"skill"`
	Tags                []string   `json:"tags,omitempty"`
	ExtendedDescription string     `json:"extended_description,omitempty"`
	Status              ItemStatus `json:"status"`
	SelectedAttemptID   *uuid.UUID `json:"selected_attempt_id,omitempty"`
	Embedding           []float32  `json:"-"`
	IgnoreDuplicates    bool       `json:"ignore_duplicates"`
	Notes               string     `json:"notes,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// NewItem creates a new Item with the given batch ID and content fields.
// It generates a new UUID for the item ID, sets the status to Imported,
// and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewItem(batchID uuid.UUID, title, description, category, skill string) (*Item, error) {
	item := &Item{
		ID:          uuid.New(),
		BatchID:     batchID,
		Title:       title,
		Description: description,
		Category:    category,
		Skill:       skill,
		Status:      ItemStatusImported,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks if the Item has valid data.
// Returns an error if any field fails validation.
func (i *Item) Validate() error {
	if i.ID == uuid.Nil {
		return ErrEmptyItemID
	}

	if strings.TrimSpace(i.Title) == "" {
		return ErrEmptyItemTitle
	}

	if !isValidItemStatus(i.Status) {
		return ErrInvalidItemStatus
	}

	return nil
}

// UpdateStatus updates the item's status and the UpdatedAt timestamp.
// Returns an error if the new status is invalid.
func (i *Item) UpdateStatus(status ItemStatus) error {
	if !isValidItemStatus(status) {
		return ErrInvalidItemStatus
	}

	i.Status = status
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// EmbeddingText returns the text that the dedupe engine embeds for this
// item: title and description concatenated.
func (i *Item) EmbeddingText() string {
	return strings.TrimSpace(i.Title + " " + i.Description)
}

// AllItemStatuses returns every valid item status in lifecycle order.
func AllItemStatuses() []ItemStatus {
	return []ItemStatus{
		ItemStatusImported, ItemStatusQueued, ItemStatusGenerating,
		ItemStatusGenerated, ItemStatusNeedsAttention, ItemStatusFailed,
		ItemStatusApproved, ItemStatusOmitted, ItemStatusVectorized,
		ItemStatusExported, ItemStatusPublished,
	}
}

// isValidItemStatus checks if the given status is a valid ItemStatus.
func isValidItemStatus(status ItemStatus) bool {
	for _, s := range AllItemStatuses() {
		if s == status {
			return true
		}
	}
	return false
}
