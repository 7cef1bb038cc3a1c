// Package errs defines the sentinel errors shared by the Save Point services.
// Callers distinguish them with errors.Is; the HTTP layer maps them to status codes.
package errs

import "errors"

var (
	// ErrAlreadyCompleted signals a second completion attempt for the same calendar day.
	// Recoverable: callers should treat it as a no-op, not a crash.
	ErrAlreadyCompleted = errors.New("habit already completed for this day")

	// ErrNotCompleted signals an undo attempt for a day with no completion recorded.
	ErrNotCompleted = errors.New("habit not completed for this day")

	// ErrInvalidDate signals a completion date before the habit existed, in the
	// future, or otherwise malformed.
	ErrInvalidDate = errors.New("invalid completion date")

	// ErrInvalidTransition signals a task status change outside the state machine.
	ErrInvalidTransition = errors.New("invalid task status transition")

	// ErrNotFound signals a missing habit, task or user.
	ErrNotFound = errors.New("not found")

	// ErrNotAuthorized signals an ownership or credential failure.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrValidation signals a field-length or enum violation in a request payload.
	ErrValidation = errors.New("validation failed")
)
