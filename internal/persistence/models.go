package persistence

import "time"

// Room represents a bookable room catalog entry.
type Room struct {
	ID         string
	Name       string
	Location   string
	Capacity   int
	Facilities *string
	// Active rooms accept new reservation requests.
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Booking is a confirmed, non-overlapping use of a room.
type Booking struct {
	ID          string
	RoomID      string
	ItemID      *string
	RequesterID string
	Start       time.Time
	End         time.Time
	CreatedAt   time.Time
}

// ItemStatus is the review state of a reservation item.
type ItemStatus string

const (
	ItemPending  ItemStatus = "pending"
	ItemApproved ItemStatus = "approved"
	ItemDenied   ItemStatus = "denied"
)

// ReservationItem is one occurrence of a reservation request awaiting review.
type ReservationItem struct {
	ID                string
	RequestID         string
	Position          int
	Start             time.Time
	End               time.Time
	Status            ItemStatus
	Conflict          bool
	ConflictBookingID *string
	Comment           string
	UpdatedAt         time.Time
}

// ReservationRequest groups the items submitted together by a requester.
type ReservationRequest struct {
	ID             string
	Fingerprint    string
	RoomID         string
	RequesterID    string
	Title          string
	Purpose        string
	Participants   int
	Recurrence     string
	AnchorStart    time.Time
	AnchorEnd      time.Time
	SnapshotDigest string
	Items          []ReservationItem
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
