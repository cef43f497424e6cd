package application

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a resource collides with an existing one.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrConflict is returned when an approval would overlap a confirmed booking.
	ErrConflict = errors.New("application: booking conflict")
	// ErrRoomInactive is returned when a request targets a room closed for reservations.
	ErrRoomInactive = errors.New("application: room inactive")
	// ErrAlreadyReviewed is returned when a reservation item was already approved or denied.
	ErrAlreadyReviewed = errors.New("application: item already reviewed")
	// ErrRoomInUse is returned when deleting a room that still has reservations or bookings.
	ErrRoomInUse = errors.New("application: room in use")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}
