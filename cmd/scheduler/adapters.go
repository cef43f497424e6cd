package main

import (
	"context"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/persistence"
)

type roomRepositoryAdapter struct {
	repo persistence.RoomRepository
}

func newRoomRepositoryAdapter(repo persistence.RoomRepository) *roomRepositoryAdapter {
	return &roomRepositoryAdapter{repo: repo}
}

func (a *roomRepositoryAdapter) CreateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	if err := a.repo.CreateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return application.Room{}, err
	}
	return a.GetRoom(ctx, room.ID)
}

func (a *roomRepositoryAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) UpdateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	if err := a.repo.UpdateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return application.Room{}, err
	}
	return a.GetRoom(ctx, room.ID)
}

func (a *roomRepositoryAdapter) DeleteRoom(ctx context.Context, id string) error {
	return a.repo.DeleteRoom(ctx, id)
}

func (a *roomRepositoryAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	models, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	rooms := make([]application.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toApplicationRoom(model))
	}
	return rooms, nil
}

type bookingRepositoryAdapter struct {
	repo persistence.BookingRepository
}

func newBookingRepositoryAdapter(repo persistence.BookingRepository) *bookingRepositoryAdapter {
	return &bookingRepositoryAdapter{repo: repo}
}

func (a *bookingRepositoryAdapter) ListBookings(ctx context.Context, roomID string, window application.BookingWindow) ([]application.Booking, error) {
	models, err := a.repo.ListBookings(ctx, persistence.BookingFilter{
		RoomID: roomID,
		From:   window.From,
		To:     window.To,
	})
	if err != nil {
		return nil, err
	}
	bookings := make([]application.Booking, 0, len(models))
	for _, model := range models {
		bookings = append(bookings, toApplicationBooking(model))
	}
	return bookings, nil
}

type reservationRepositoryAdapter struct {
	repo persistence.ReservationRepository
}

func newReservationRepositoryAdapter(repo persistence.ReservationRepository) *reservationRepositoryAdapter {
	return &reservationRepositoryAdapter{repo: repo}
}

func (a *reservationRepositoryAdapter) CreateReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	if err := a.repo.CreateRequest(ctx, toPersistenceRequest(reservation)); err != nil {
		return application.Reservation{}, err
	}
	return a.GetReservation(ctx, reservation.ID)
}

func (a *reservationRepositoryAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	stored, err := a.repo.GetRequest(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) ListReservations(ctx context.Context, requesterID string) ([]application.Reservation, error) {
	models, err := a.repo.ListRequests(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	reservations := make([]application.Reservation, 0, len(models))
	for _, model := range models {
		reservations = append(reservations, toApplicationReservation(model))
	}
	return reservations, nil
}

func (a *reservationRepositoryAdapter) UpdateItem(ctx context.Context, item application.ReservationItem) error {
	return a.repo.UpdateItem(ctx, toPersistenceItem(item))
}

func (a *reservationRepositoryAdapter) ApproveItem(ctx context.Context, item application.ReservationItem, booking application.Booking) error {
	return a.repo.ApproveItem(ctx, toPersistenceItem(item), toPersistenceBooking(booking))
}

func toPersistenceRoom(room application.Room) persistence.Room {
	return persistence.Room{
		ID:         room.ID,
		Name:       room.Name,
		Location:   room.Location,
		Capacity:   room.Capacity,
		Facilities: room.Facilities,
		Active:     room.Active,
		CreatedAt:  room.CreatedAt,
		UpdatedAt:  room.UpdatedAt,
	}
}

func toApplicationRoom(room persistence.Room) application.Room {
	return application.Room{
		ID:         room.ID,
		Name:       room.Name,
		Location:   room.Location,
		Capacity:   room.Capacity,
		Facilities: room.Facilities,
		Active:     room.Active,
		CreatedAt:  room.CreatedAt,
		UpdatedAt:  room.UpdatedAt,
	}
}

func toPersistenceBooking(booking application.Booking) persistence.Booking {
	return persistence.Booking{
		ID:          booking.ID,
		RoomID:      booking.RoomID,
		ItemID:      booking.ItemID,
		RequesterID: booking.RequesterID,
		Start:       booking.Start,
		End:         booking.End,
		CreatedAt:   booking.CreatedAt,
	}
}

func toApplicationBooking(booking persistence.Booking) application.Booking {
	return application.Booking{
		ID:          booking.ID,
		RoomID:      booking.RoomID,
		ItemID:      booking.ItemID,
		RequesterID: booking.RequesterID,
		Start:       booking.Start,
		End:         booking.End,
		CreatedAt:   booking.CreatedAt,
	}
}

func toPersistenceRequest(reservation application.Reservation) persistence.ReservationRequest {
	items := make([]persistence.ReservationItem, 0, len(reservation.Items))
	for _, item := range reservation.Items {
		items = append(items, toPersistenceItem(item))
	}
	return persistence.ReservationRequest{
		ID:             reservation.ID,
		Fingerprint:    reservation.Fingerprint,
		RoomID:         reservation.RoomID,
		RequesterID:    reservation.RequesterID,
		Title:          reservation.Title,
		Purpose:        reservation.Purpose,
		Participants:   reservation.Participants,
		Recurrence:     reservation.Recurrence,
		AnchorStart:    reservation.Start,
		AnchorEnd:      reservation.End,
		SnapshotDigest: reservation.SnapshotDigest,
		Items:          items,
		CreatedAt:      reservation.CreatedAt,
		UpdatedAt:      reservation.UpdatedAt,
	}
}

func toApplicationReservation(request persistence.ReservationRequest) application.Reservation {
	items := make([]application.ReservationItem, 0, len(request.Items))
	for _, item := range request.Items {
		items = append(items, toApplicationItem(item))
	}
	return application.Reservation{
		ID:             request.ID,
		Fingerprint:    request.Fingerprint,
		RoomID:         request.RoomID,
		RequesterID:    request.RequesterID,
		Title:          request.Title,
		Purpose:        request.Purpose,
		Participants:   request.Participants,
		Recurrence:     request.Recurrence,
		Start:          request.AnchorStart,
		End:            request.AnchorEnd,
		SnapshotDigest: request.SnapshotDigest,
		Items:          items,
		CreatedAt:      request.CreatedAt,
		UpdatedAt:      request.UpdatedAt,
	}
}

func toPersistenceItem(item application.ReservationItem) persistence.ReservationItem {
	return persistence.ReservationItem{
		ID:                item.ID,
		RequestID:         item.RequestID,
		Position:          item.Position,
		Start:             item.Start,
		End:               item.End,
		Status:            persistence.ItemStatus(item.Status),
		Conflict:          item.Conflict,
		ConflictBookingID: item.ConflictBookingID,
		Comment:           item.Comment,
		UpdatedAt:         item.UpdatedAt,
	}
}

func toApplicationItem(item persistence.ReservationItem) application.ReservationItem {
	return application.ReservationItem{
		ID:                item.ID,
		RequestID:         item.RequestID,
		Position:          item.Position,
		Start:             item.Start,
		End:               item.End,
		Status:            application.ItemStatus(item.Status),
		Conflict:          item.Conflict,
		ConflictBookingID: item.ConflictBookingID,
		Comment:           item.Comment,
		UpdatedAt:         item.UpdatedAt,
	}
}
