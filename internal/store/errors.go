package store

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a conditional status update matched
	// no row because the entry is not in the expected source status.
	ErrInvalidTransition = errors.New("invalid status transition")
)
