package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/recurrence"
	"github.com/example/room-scheduler/internal/scheduler"
)

var (
	roomCounter        uint64
	bookingCounter     uint64
	reservationCounter uint64
)

var referenceTime = time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical "now" used by fixtures. It is a
// Wednesday morning; AnchorTime is the following Monday.
func ReferenceTime() time.Time {
	return referenceTime
}

// AnchorTime returns the default start of booking and reservation fixtures.
func AnchorTime() time.Time {
	return time.Date(2024, time.May, 6, 9, 0, 0, 0, time.UTC)
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic room record.
type RoomFixture struct {
	ID         string
	Name       string
	Location   string
	Capacity   int
	Facilities *string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns an active room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	created := referenceTime.Add(-time.Duration(idx) * time.Hour)
	fixture := RoomFixture{
		ID:        fmt.Sprintf("room-%03d", idx),
		Name:      fmt.Sprintf("Sala %03d", idx),
		Location:  "Bloco A",
		Capacity:  int(4 + idx%8),
		Active:    true,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomCapacity overrides the generated capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) {
		f.Capacity = capacity
	}
}

// WithRoomFacilities sets the facilities description.
func WithRoomFacilities(facilities string) RoomOption {
	return func(f *RoomFixture) {
		f.Facilities = &facilities
	}
}

// WithRoomInactive marks the room as closed for new requests.
func WithRoomInactive() RoomOption {
	return func(f *RoomFixture) {
		f.Active = false
	}
}

// Application returns the fixture as an application.Room.
func (f RoomFixture) Application() application.Room {
	return application.Room{
		ID:         f.ID,
		Name:       f.Name,
		Location:   f.Location,
		Capacity:   f.Capacity,
		Facilities: copyStringPtr(f.Facilities),
		Active:     f.Active,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Room.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:         f.ID,
		Name:       f.Name,
		Location:   f.Location,
		Capacity:   f.Capacity,
		Facilities: copyStringPtr(f.Facilities),
		Active:     f.Active,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// Input returns the fixture as an application.RoomInput.
func (f RoomFixture) Input() application.RoomInput {
	active := f.Active
	return application.RoomInput{
		Name:       f.Name,
		Location:   f.Location,
		Capacity:   f.Capacity,
		Facilities: copyStringPtr(f.Facilities),
		Active:     &active,
	}
}

// ---------------------------- Booking fixtures ---------------------------

// BookingFixture represents a confirmed booking of a room.
type BookingFixture struct {
	ID          string
	RoomID      string
	ItemID      *string
	RequesterID string
	Start       time.Time
	End         time.Time
	CreatedAt   time.Time
}

// BookingOption configures the generated booking fixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a one hour booking starting at AnchorTime.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	start := AnchorTime()
	fixture := BookingFixture{
		ID:          fmt.Sprintf("booking-%03d", idx),
		RoomID:      "room-001",
		RequesterID: "requester-001",
		Start:       start,
		End:         start.Add(time.Hour),
		CreatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBookingID overrides the generated booking ID.
func WithBookingID(id string) BookingOption {
	return func(f *BookingFixture) {
		f.ID = id
	}
}

// WithBookingRoom sets the booked room.
func WithBookingRoom(roomID string) BookingOption {
	return func(f *BookingFixture) {
		f.RoomID = roomID
	}
}

// WithBookingRange sets the booked interval.
func WithBookingRange(start, end time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.Start = start
		f.End = end
	}
}

// WithBookingItem links the booking to the reservation item it confirms.
func WithBookingItem(itemID string) BookingOption {
	return func(f *BookingFixture) {
		f.ItemID = &itemID
	}
}

// Application returns the fixture as an application.Booking.
func (f BookingFixture) Application() application.Booking {
	return application.Booking{
		ID:          f.ID,
		RoomID:      f.RoomID,
		ItemID:      copyStringPtr(f.ItemID),
		RequesterID: f.RequesterID,
		Start:       f.Start,
		End:         f.End,
		CreatedAt:   f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Booking.
func (f BookingFixture) Persistence() persistence.Booking {
	return persistence.Booking{
		ID:          f.ID,
		RoomID:      f.RoomID,
		ItemID:      copyStringPtr(f.ItemID),
		RequesterID: f.RequesterID,
		Start:       f.Start,
		End:         f.End,
		CreatedAt:   f.CreatedAt,
	}
}

// Existing returns the fixture as a scheduler snapshot entry.
func (f BookingFixture) Existing() scheduler.ExistingBooking {
	booking, err := scheduler.NewExistingBooking(f.ID, f.RoomID, f.Start, f.End)
	if err != nil {
		panic(fmt.Sprintf("testfixtures: invalid booking fixture %s: %v", f.ID, err))
	}
	return booking
}

// -------------------------- Reservation fixtures -------------------------

// ReservationFixture represents a weekly reservation request and its items.
type ReservationFixture struct {
	ID           string
	RoomID       string
	RequesterID  string
	Title        string
	Purpose      string
	Participants int
	Start        time.Time
	End          time.Time
	Weeks        int
	CreatedAt    time.Time
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns a one hour reservation repeated weekly for
// three weeks from AnchorTime.
func NewReservationFixture(opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	start := AnchorTime()
	fixture := ReservationFixture{
		ID:           fmt.Sprintf("reservation-%03d", idx),
		RoomID:       "room-001",
		RequesterID:  "requester-001",
		Title:        fmt.Sprintf("Reunião %03d", idx),
		Participants: 4,
		Start:        start,
		End:          start.Add(time.Hour),
		Weeks:        3,
		CreatedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationID overrides the generated reservation ID.
func WithReservationID(id string) ReservationOption {
	return func(f *ReservationFixture) {
		f.ID = id
	}
}

// WithReservationRoom sets the requested room.
func WithReservationRoom(roomID string) ReservationOption {
	return func(f *ReservationFixture) {
		f.RoomID = roomID
	}
}

// WithReservationRequester sets the requester.
func WithReservationRequester(requesterID string) ReservationOption {
	return func(f *ReservationFixture) {
		f.RequesterID = requesterID
	}
}

// WithReservationRange sets the first occurrence.
func WithReservationRange(start, end time.Time) ReservationOption {
	return func(f *ReservationFixture) {
		f.Start = start
		f.End = end
	}
}

// WithReservationParticipants sets the expected head count.
func WithReservationParticipants(n int) ReservationOption {
	return func(f *ReservationFixture) {
		f.Participants = n
	}
}

// WithReservationWeeks sets the number of weekly occurrences.
func WithReservationWeeks(weeks int) ReservationOption {
	return func(f *ReservationFixture) {
		f.Weeks = weeks
	}
}

// WithReservationCreatedAt sets the submission time.
func WithReservationCreatedAt(t time.Time) ReservationOption {
	return func(f *ReservationFixture) {
		f.CreatedAt = t
	}
}

// Rule returns the recurrence rule of the fixture.
func (f ReservationFixture) Rule() recurrence.Rule {
	if f.Weeks <= 1 {
		return recurrence.None()
	}
	return recurrence.Weekly(1).Until(recurrence.AfterOccurrences(f.Weeks))
}

// ItemID returns the identifier of the item at position.
func (f ReservationFixture) ItemID(position int) string {
	return fmt.Sprintf("%s-item-%d", f.ID, position)
}

// Input returns the fixture as an application.ReservationInput.
func (f ReservationFixture) Input() application.ReservationInput {
	return application.ReservationInput{
		RoomID:       f.RoomID,
		RequesterID:  f.RequesterID,
		Title:        f.Title,
		Purpose:      f.Purpose,
		Participants: f.Participants,
		Start:        f.Start,
		End:          f.End,
		Recurrence:   f.Rule(),
	}
}

// Persistence returns the fixture as a persistence.ReservationRequest with
// one pending item per week.
func (f ReservationFixture) Persistence() persistence.ReservationRequest {
	rrule, err := f.Rule().RRule()
	if err != nil {
		panic(fmt.Sprintf("testfixtures: invalid reservation fixture %s: %v", f.ID, err))
	}
	request := persistence.ReservationRequest{
		ID:           f.ID,
		Fingerprint:  "fingerprint-" + f.ID,
		RoomID:       f.RoomID,
		RequesterID:  f.RequesterID,
		Title:        f.Title,
		Purpose:      f.Purpose,
		Participants: f.Participants,
		Recurrence:   rrule,
		AnchorStart:  f.Start,
		AnchorEnd:    f.End,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
	for position := range max(f.Weeks, 1) {
		request.Items = append(request.Items, persistence.ReservationItem{
			ID:        f.ItemID(position),
			RequestID: f.ID,
			Position:  position,
			Start:     f.Start.AddDate(0, 0, 7*position),
			End:       f.End.AddDate(0, 0, 7*position),
			Status:    persistence.ItemPending,
			UpdatedAt: f.CreatedAt,
		})
	}
	return request
}

func copyStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
