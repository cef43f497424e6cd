package scheduler

import (
	"github.com/example/room-scheduler/internal/calendar"
	"github.com/example/room-scheduler/internal/recurrence"
)

// ReservationRequest is a caller's request to book one room, possibly repeatedly.
type ReservationRequest struct {
	RoomID      string
	Anchor      calendar.TimeRange
	Recurrence  recurrence.Rule
	RequesterID string
}

// Status is the classification of a single occurrence.
type Status string

const (
	StatusPending     Status = "pending"
	StatusAccepted    Status = "accepted"
	StatusConflicting Status = "conflicting"
	StatusInvalid     Status = "invalid"
)

// Occurrence is one concrete instance of a reservation request.
type Occurrence struct {
	// Index is the zero-based position within the expanded series.
	Index         int
	Range         calendar.TimeRange
	Status        Status
	ConflictsWith *ExistingBooking
}

// Outcome aggregates the statuses of every occurrence of a request.
type Outcome string

const (
	OutcomeAllAccepted          Outcome = "all_accepted"
	OutcomePartiallyConflicting Outcome = "partially_conflicting"
	OutcomeAllConflicting       Outcome = "all_conflicting"
	OutcomeInvalid              Outcome = "invalid"
)

// SchedulingResult is the engine's answer for one request.
type SchedulingResult struct {
	RequestID      string
	Occurrences    []Occurrence
	Outcome        Outcome
	SnapshotDigest string
}

// Accepted returns the occurrences classified as accepted.
func (r SchedulingResult) Accepted() []Occurrence {
	return r.withStatus(StatusAccepted)
}

// Conflicting returns the occurrences classified as conflicting.
func (r SchedulingResult) Conflicting() []Occurrence {
	return r.withStatus(StatusConflicting)
}

func (r SchedulingResult) withStatus(status Status) []Occurrence {
	var out []Occurrence
	for _, occurrence := range r.Occurrences {
		if occurrence.Status == status {
			out = append(out, occurrence)
		}
	}
	return out
}

func aggregate(occurrences []Occurrence) Outcome {
	var accepted, conflicting, invalid int
	for _, occurrence := range occurrences {
		switch occurrence.Status {
		case StatusAccepted:
			accepted++
		case StatusConflicting:
			conflicting++
		case StatusInvalid:
			invalid++
		}
	}

	total := len(occurrences)
	switch {
	case total == 0 || invalid == total:
		return OutcomeInvalid
	case accepted == total:
		return OutcomeAllAccepted
	case accepted == 0:
		// Nothing can be booked: every valid occurrence conflicts.
		return OutcomeAllConflicting
	default:
		return OutcomePartiallyConflicting
	}
}
