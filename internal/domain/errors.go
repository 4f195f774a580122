// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrAttemptItemMismatch is returned when an attempt is selected for
	// an item it does not belong to.
	ErrAttemptItemMismatch = errors.New("attempt does not belong to item")

	// ErrNoSelectedAttempt is returned when an operation requires a
	// selected artifact and the item has none.
	ErrNoSelectedAttempt = errors.New("item has no selected attempt")
)
