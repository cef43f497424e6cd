package scheduler

import (
	"errors"

	"github.com/example/room-scheduler/internal/calendar"
	"github.com/example/room-scheduler/internal/recurrence"
)

// Errors surfaced by the scheduling core. The calendar and recurrence
// sentinels are re-exported so callers only need this package.
var (
	ErrInvalidTimeRange      = calendar.ErrInvalidTimeRange
	ErrInvalidDate           = calendar.ErrInvalidDate
	ErrInvalidRecurrenceSpec = recurrence.ErrInvalidRecurrenceSpec
	ErrUnboundedRecurrence   = recurrence.ErrUnboundedRecurrence

	// ErrInvalidRequest indicates a reservation request missing required fields.
	ErrInvalidRequest = errors.New("scheduler: invalid reservation request")
	// ErrInvalidBooking indicates an existing booking rejected at ingestion.
	ErrInvalidBooking = errors.New("scheduler: invalid existing booking")
)

// ErrorKind maps scheduling errors to stable machine-readable labels.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidTimeRange):
		return "invalid_time_range"
	case errors.Is(err, ErrUnboundedRecurrence):
		return "unbounded_recurrence"
	case errors.Is(err, ErrInvalidRecurrenceSpec):
		return "invalid_recurrence"
	case errors.Is(err, ErrInvalidDate):
		return "invalid_date"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrInvalidBooking):
		return "invalid_booking"
	default:
		return ""
	}
}
