package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a record violates a uniqueness constraint.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a record violates a schema constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrOverlap is returned when a booking overlaps an existing booking of the same room.
	ErrOverlap = errors.New("persistence: booking overlaps an existing booking")
	// ErrNotPending is returned when a review targets an item that was already approved or denied.
	ErrNotPending = errors.New("persistence: item is no longer pending")
)
