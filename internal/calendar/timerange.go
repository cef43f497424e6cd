package calendar

import (
	"fmt"
	"time"
)

// TimeRange is an immutable half-open interval [start, end).
//
// The zero TimeRange is empty and overlaps nothing. Non-zero values can only
// be obtained through NewTimeRange, which guarantees start < end.
type TimeRange struct {
	start time.Time
	end   time.Time
}

// NewTimeRange returns the interval [start, end) or ErrInvalidTimeRange when
// start is not strictly before end.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if !start.Before(end) {
		return TimeRange{}, fmt.Errorf("%w: start=%s end=%s", ErrInvalidTimeRange,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return TimeRange{start: start, end: end}, nil
}

// Start returns the inclusive lower bound.
func (r TimeRange) Start() time.Time { return r.start }

// End returns the exclusive upper bound.
func (r TimeRange) End() time.Time { return r.end }

// Duration returns end - start.
func (r TimeRange) Duration() time.Duration { return r.end.Sub(r.start) }

// IsZero reports whether r is the empty zero value.
func (r TimeRange) IsZero() bool { return r.start.IsZero() && r.end.IsZero() }

// In returns r with both bounds expressed in loc.
func (r TimeRange) In(loc *time.Location) TimeRange {
	if loc == nil || r.IsZero() {
		return r
	}
	return TimeRange{start: r.start.In(loc), end: r.end.In(loc)}
}

// Equal reports whether both ranges denote the same instants.
func (r TimeRange) Equal(other TimeRange) bool {
	return r.start.Equal(other.start) && r.end.Equal(other.end)
}

// Overlaps reports whether r and other share at least one instant.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return Overlaps(r, other)
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.start.Format(time.RFC3339), r.end.Format(time.RFC3339))
}

// Overlaps applies the half-open test a.start < b.end && b.start < a.end.
// Ranges that merely touch (a.end == b.start) do not overlap.
func Overlaps(a, b TimeRange) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	return a.start.Before(b.end) && b.start.Before(a.end)
}
