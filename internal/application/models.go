package application

import (
	"time"

	"github.com/example/room-scheduler/internal/recurrence"
)

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name       string
	Location   string
	Capacity   int
	Facilities *string
	// Active defaults to true on creation and is left unchanged on update when nil.
	Active *bool
}

// Room represents a catalog entry for a bookable room.
type Room struct {
	ID         string
	Name       string
	Location   string
	Capacity   int
	Facilities *string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UpdateRoomParams wraps the data required to update a room.
type UpdateRoomParams struct {
	RoomID string
	Input  RoomInput
}

// Booking is a confirmed use of a room.
type Booking struct {
	ID          string
	RoomID      string
	ItemID      *string
	RequesterID string
	Start       time.Time
	End         time.Time
	CreatedAt   time.Time
}

// BookingWindow bounds a booking listing to [From, To). Zero bounds are open.
type BookingWindow struct {
	From time.Time
	To   time.Time
}

// ReservationInput captures a caller's request to reserve a room, possibly repeatedly.
type ReservationInput struct {
	RoomID      string
	RequesterID string
	Title       string
	Purpose     string
	// Participants is the expected head count. Zero means one.
	Participants int
	Start        time.Time
	End          time.Time
	Recurrence   recurrence.Rule
}

// ItemStatus is the review state of a reservation item.
type ItemStatus string

const (
	ItemPending  ItemStatus = "pending"
	ItemApproved ItemStatus = "approved"
	ItemDenied   ItemStatus = "denied"
)

// ReservationStatus summarises the review state of every item of a reservation.
type ReservationStatus string

const (
	ReservationPending           ReservationStatus = "pending"
	ReservationApproved          ReservationStatus = "approved"
	ReservationDenied            ReservationStatus = "denied"
	ReservationPartiallyApproved ReservationStatus = "partially_approved"
)

// ReservationItem is one occurrence of a reservation awaiting or after review.
type ReservationItem struct {
	ID        string
	RequestID string
	Position  int
	Start     time.Time
	End       time.Time
	Status    ItemStatus
	// Conflict is set when the occurrence overlapped a booking at submission
	// or at approval time.
	Conflict          bool
	ConflictBookingID *string
	Comment           string
	UpdatedAt         time.Time
}

// Reservation is a submitted request together with its items.
type Reservation struct {
	ID string
	// Fingerprint is the deterministic request id computed by the scheduling engine.
	Fingerprint    string
	RoomID         string
	RequesterID    string
	Title          string
	Purpose        string
	Participants   int
	Recurrence     string
	Start          time.Time
	End            time.Time
	SnapshotDigest string
	Items          []ReservationItem
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Status derives the reservation status from its items. Any pending item
// keeps the reservation pending.
func (r Reservation) Status() ReservationStatus {
	var approved, denied int
	for _, item := range r.Items {
		switch item.Status {
		case ItemApproved:
			approved++
		case ItemDenied:
			denied++
		default:
			return ReservationPending
		}
	}
	switch {
	case len(r.Items) == 0:
		return ReservationPending
	case approved == len(r.Items):
		return ReservationApproved
	case denied == len(r.Items):
		return ReservationDenied
	default:
		return ReservationPartiallyApproved
	}
}

// Item returns the item with id.
func (r Reservation) Item(id string) (ReservationItem, bool) {
	for _, item := range r.Items {
		if item.ID == id {
			return item, true
		}
	}
	return ReservationItem{}, false
}

// ReviewParams identifies a review action. ItemID is empty for bulk reviews.
type ReviewParams struct {
	ReservationID string
	ItemID        string
	ReviewerID    string
	Comment       string
}

// BulkReviewResult reports a bulk review. Skipped lists the items left
// pending because approving them would overlap a booking.
type BulkReviewResult struct {
	Reservation Reservation
	Reviewed    []string
	Skipped     []string
}
