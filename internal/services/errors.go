package services

import "errors"

var (
	// ErrAllocationConflict is returned when the counter increment could not be
	// committed within the bounded retry budget. Retryable; no number was
	// issued and nothing was persisted.
	ErrAllocationConflict = errors.New("could not reserve next document number")

	// ErrInvalidTransition is returned for status updates the lifecycle does
	// not allow (paid and cancelled are terminal).
	ErrInvalidTransition = errors.New("invalid status transition")
)
