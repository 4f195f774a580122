package gemini

import "errors"

// Common errors returned by the generation client.
var (
	// ErrInvalidConfig is returned when the client configuration is invalid,
	// for example a missing API key. Surfaced before any state mutation.
	ErrInvalidConfig = errors.New("invalid generation client configuration")

	// ErrContentBlocked is returned when the service blocks the request
	// via its safety filters. Terminal for the attempt; not retried.
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrNoImage is returned when a generation stream ends without
	// producing an inline image payload.
	ErrNoImage = errors.New("no artifact produced by generation stream")

	// ErrInvalidResponse is returned when a service response cannot be
	// parsed or is structurally malformed.
	ErrInvalidResponse = errors.New("invalid response from generation service")

	// ErrResponseTooLarge is returned when a batch result download
	// exceeds the hard size ceiling. The job is left non-terminal so a
	// later poll can retry.
	ErrResponseTooLarge = errors.New("batch response exceeds size ceiling")

	// ErrSubmissionRejected is returned when the service rejects a batch
	// submission outright.
	ErrSubmissionRejected = errors.New("batch submission rejected")
)
