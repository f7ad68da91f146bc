package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers unknown businesses, services and tokens. Expired
	// tokens resolve to ErrNotFound as well so callers cannot probe whether
	// a token ever existed.
	ErrNotFound = errors.New("not found")

	// ErrSlotUnavailable means the requested window overlaps an active
	// appointment. The caller must re-fetch availability and pick another
	// slot; there is no automatic retry.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrInvalidTransition means a lifecycle guard rejected a status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAlreadyCancelled is returned when cancelling an appointment that is
	// already cancelled. The terminal state is the one the caller asked for,
	// but it is reported distinctly so UIs can message correctly.
	ErrAlreadyCancelled = errors.New("appointment already cancelled")

	// ErrLockTimeout means the booking lock was not acquired within the
	// configured bound. Safe to retry.
	ErrLockTimeout = errors.New("booking lock timeout")
)

// ValidationError reports malformed or out-of-range input the caller must fix.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
