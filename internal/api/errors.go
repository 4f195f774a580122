package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/inkforge/inkforge/internal/domain"
	"github.com/inkforge/inkforge/internal/platform/gemini"
	"github.com/inkforge/inkforge/internal/queue"
	"github.com/inkforge/inkforge/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so
// handlers never leak internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, queue.ErrNoSelectedResult),
		errors.Is(err, domain.ErrNoSelectedAttempt),
		errors.Is(err, domain.ErrEmptyBatchJobItems),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest

	case errors.Is(err, queue.ErrSchedulerClosed):
		return http.StatusServiceUnavailable

	case errors.Is(err, gemini.ErrSubmissionRejected):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-facing message for the
// error. Internal detail stays in the logs.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, store.ErrItemNotFound):
		return "Item not found"

	case errors.Is(err, store.ErrAttemptNotFound):
		return "Generation attempt not found"

	case errors.Is(err, store.ErrBatchJobNotFound):
		return "Batch job not found"

	case errors.Is(err, store.ErrNotFound):
		return "Not found"

	case errors.Is(err, queue.ErrNoSelectedResult),
		errors.Is(err, domain.ErrNoSelectedAttempt):
		return "Item has no selected result"

	case errors.Is(err, domain.ErrEmptyBatchJobItems):
		return "Batch requires at least one item"

	case errors.Is(err, queue.ErrSchedulerClosed):
		return "Scheduler is shutting down"

	case errors.Is(err, gemini.ErrSubmissionRejected):
		return "Batch submission rejected by the generation service"

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return "Invalid request data"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a validator error into a terse
// user-facing message without echoing the submitted values.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example: "Key: 'EnqueueRequest.ItemIDs' Error:Field validation
		// for 'ItemIDs' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				if len(fieldParts) >= 5 {
					return fmt.Sprintf("Invalid %s: %s", field, validationTagMessage(fieldParts[3]))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too few entries"
	case "max":
		return "too many entries"
	case "uuid":
		return "must be a UUID"
	default:
		return "validation failed"
	}
}
