package persistence

import (
	"context"
	"time"
)

// RoomRepository exposes CRUD operations for rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

// BookingFilter selects the bookings of a room overlapping [From, To).
// A zero bound leaves that side open.
type BookingFilter struct {
	RoomID string
	From   time.Time
	To     time.Time
}

// BookingRepository stores confirmed bookings.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}

// ReservationRepository stores reservation requests and their review state.
type ReservationRepository interface {
	CreateRequest(ctx context.Context, request ReservationRequest) error
	GetRequest(ctx context.Context, id string) (ReservationRequest, error)
	ListRequests(ctx context.Context, requesterID string) ([]ReservationRequest, error)
	UpdateItem(ctx context.Context, item ReservationItem) error
	// ApproveItem stores item and inserts booking atomically. An overlapping
	// booking fails with ErrOverlap and leaves both untouched.
	ApproveItem(ctx context.Context, item ReservationItem, booking Booking) error
}
