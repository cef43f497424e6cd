package calendar

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTimeRange indicates a range whose start is not strictly before its end.
	ErrInvalidTimeRange = errors.New("calendar: start must be before end")
	// ErrInvalidDate indicates a date or date component that cannot be resolved.
	ErrInvalidDate = errors.New("calendar: invalid date")
	// ErrWeekdayNotInMonth indicates an ordinal weekday (e.g. the 5th Friday)
	// that does not occur in the requested month.
	ErrWeekdayNotInMonth = fmt.Errorf("%w: weekday ordinal does not occur in month", ErrInvalidDate)
)
