package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/room-scheduler/internal/calendar"
)

// ExistingBooking is a confirmed booking taken from a snapshot of a room's calendar.
type ExistingBooking struct {
	ID     string
	RoomID string
	Range  calendar.TimeRange
}

// NewExistingBooking validates a booking at ingestion.
func NewExistingBooking(id, roomID string, start, end time.Time) (ExistingBooking, error) {
	if strings.TrimSpace(roomID) == "" {
		return ExistingBooking{}, fmt.Errorf("%w: booking %q has no room", ErrInvalidBooking, id)
	}
	r, err := calendar.NewTimeRange(start, end)
	if err != nil {
		return ExistingBooking{}, fmt.Errorf("%w: booking %q: %w", ErrInvalidBooking, id, err)
	}
	return ExistingBooking{ID: id, RoomID: roomID, Range: r}, nil
}

// Classification is the result of testing one candidate against a snapshot.
type Classification struct {
	// Conflict is the first overlapping booking in snapshot order, if any.
	Conflict *ExistingBooking
}

// Free reports whether no booking overlaps the candidate.
func (c Classification) Free() bool {
	return c.Conflict == nil
}

// Classify tests candidate against the bookings of roomID in existing.
// Bookings for other rooms are ignored. The snapshot is not modified.
func Classify(candidate calendar.TimeRange, roomID string, existing []ExistingBooking) Classification {
	for i := range existing {
		if existing[i].RoomID != roomID {
			continue
		}
		if calendar.Overlaps(candidate, existing[i].Range) {
			booking := existing[i]
			return Classification{Conflict: &booking}
		}
	}
	return Classification{}
}
