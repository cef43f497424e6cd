package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-scheduler/internal/audit"
	"github.com/example/room-scheduler/internal/calendar"
	"github.com/example/room-scheduler/internal/logging"
	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/scheduler"
)

const (
	maxTitleLength   = 200
	maxPurposeLength = 2000
	maxCommentLength = 1000
)

// BookingRepository exposes the confirmed bookings of a room.
type BookingRepository interface {
	ListBookings(ctx context.Context, roomID string, window BookingWindow) ([]Booking, error)
}

// ReservationRepository persists reservations and their review state.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, requesterID string) ([]Reservation, error)
	UpdateItem(ctx context.Context, item ReservationItem) error
	// ApproveItem stores item and booking atomically and fails with
	// persistence.ErrOverlap when booking overlaps an existing one.
	ApproveItem(ctx context.Context, item ReservationItem, booking Booking) error
}

// ReservationService previews, submits and reviews recurring reservations.
type ReservationService struct {
	rooms        RoomRepository
	bookings     BookingRepository
	reservations ReservationRepository
	engine       *scheduler.Engine
	publisher    audit.Publisher
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger

	locks   *roomLocks
	preview *previewCache
}

// NewReservationService wires dependencies for reservation operations.
func NewReservationService(rooms RoomRepository, bookings BookingRepository, reservations ReservationRepository, engine *scheduler.Engine, publisher audit.Publisher, idGenerator func() string, now func() time.Time) *ReservationService {
	return NewReservationServiceWithLogger(rooms, bookings, reservations, engine, publisher, idGenerator, now, nil)
}

// NewReservationServiceWithLogger wires dependencies with a specified logger.
// A nil engine uses UTC and the default occurrence limit; a nil publisher
// discards audit events.
func NewReservationServiceWithLogger(rooms RoomRepository, bookings BookingRepository, reservations ReservationRepository, engine *scheduler.Engine, publisher audit.Publisher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if engine == nil {
		engine = scheduler.NewEngine(nil)
	}
	if publisher == nil {
		publisher = audit.Nop{}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		rooms:        rooms,
		bookings:     bookings,
		reservations: reservations,
		engine:       engine,
		publisher:    publisher,
		idGenerator:  idGenerator,
		now:          now,
		logger:       logging.OrDefault(logger),
		locks:        newRoomLocks(),
		preview:      newPreviewCache(time.Minute, 256, now),
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// Preview classifies every occurrence of input against the room's current
// bookings without persisting anything. Occurrences starting before the
// current minute are invalid.
func (s *ReservationService) Preview(ctx context.Context, input ReservationInput) (result scheduler.SchedulingResult, err error) {
	if s == nil {
		return scheduler.SchedulingResult{}, fmt.Errorf("ReservationService is nil")
	}
	logger := s.loggerWith(ctx, "Preview", "room_id", input.RoomID, "requester_id", input.RequesterID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "preview rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "preview computed",
			"request_id", result.RequestID,
			"outcome", result.Outcome,
			"occurrences", len(result.Occurrences),
		)
	}()

	result, _, err = s.schedule(ctx, input)
	return result, err
}

// Submit schedules input and stores it as a reservation whose items await
// review. Invalid occurrences are dropped; conflicting ones are kept and
// flagged. A request without any valid occurrence is rejected.
func (s *ReservationService) Submit(ctx context.Context, input ReservationInput) (reservation Reservation, result scheduler.SchedulingResult, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	logger := s.loggerWith(ctx, "Submit", "room_id", input.RoomID, "requester_id", input.RequesterID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to submit reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation submitted",
			"reservation_id", reservation.ID,
			"outcome", result.Outcome,
			"items", len(reservation.Items),
		)
	}()

	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	var req scheduler.ReservationRequest
	result, req, err = s.schedule(ctx, input)
	if err != nil {
		return
	}
	if result.Outcome == scheduler.OutcomeInvalid {
		vErr := &ValidationError{}
		vErr.add("start", "no occurrence starts in the future")
		err = vErr
		return
	}

	recurrenceText, rErr := req.Recurrence.RRule()
	if rErr != nil {
		err = rErr
		return
	}

	createdAt := s.now()
	reservation = Reservation{
		ID:             s.idGenerator(),
		Fingerprint:    result.RequestID,
		RoomID:         req.RoomID,
		RequesterID:    req.RequesterID,
		Title:          strings.TrimSpace(input.Title),
		Purpose:        strings.TrimSpace(input.Purpose),
		Participants:   participants(input),
		Recurrence:     recurrenceText,
		Start:          req.Anchor.Start(),
		End:            req.Anchor.End(),
		SnapshotDigest: result.SnapshotDigest,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	for _, occurrence := range result.Occurrences {
		if occurrence.Status == scheduler.StatusInvalid {
			continue
		}
		item := ReservationItem{
			ID:        s.idGenerator(),
			RequestID: reservation.ID,
			Position:  occurrence.Index,
			Start:     occurrence.Range.Start(),
			End:       occurrence.Range.End(),
			Status:    ItemPending,
			UpdatedAt: createdAt,
		}
		if occurrence.ConflictsWith != nil {
			bookingID := occurrence.ConflictsWith.ID
			item.Conflict = true
			item.ConflictBookingID = &bookingID
		}
		reservation.Items = append(reservation.Items, item)
	}

	reservation, err = s.reservations.CreateReservation(ctx, reservation)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}

	s.publish(ctx, logger, audit.Event{
		Actor:    reservation.RequesterID,
		Action:   audit.ActionSubmit,
		Entity:   audit.EntityReservation,
		EntityID: reservation.ID,
	})
	return
}

// GetReservation returns a reservation with its items.
func (s *ReservationService) GetReservation(ctx context.Context, id string) (Reservation, error) {
	if s == nil {
		return Reservation{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return Reservation{}, ErrNotFound
	}
	reservation, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		return Reservation{}, mapReservationRepoError(err)
	}
	return reservation, nil
}

// ListReservations returns the reservations of requesterID, or every
// reservation when requesterID is empty.
func (s *ReservationService) ListReservations(ctx context.Context, requesterID string) ([]Reservation, error) {
	if s == nil {
		return nil, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return nil, nil
	}
	reservations, err := s.reservations.ListReservations(ctx, strings.TrimSpace(requesterID))
	if err != nil {
		return nil, mapReservationRepoError(err)
	}
	return reservations, nil
}

// ListBookings returns the confirmed bookings of a room within window.
func (s *ReservationService) ListBookings(ctx context.Context, roomID string, window BookingWindow) ([]Booking, error) {
	if s == nil {
		return nil, fmt.Errorf("ReservationService is nil")
	}
	if !window.From.IsZero() && !window.To.IsZero() && !window.To.After(window.From) {
		vErr := &ValidationError{}
		vErr.add("to", "to must be after from")
		return nil, vErr
	}
	if _, err := s.room(ctx, roomID); err != nil {
		return nil, err
	}
	if s.bookings == nil {
		return nil, nil
	}
	return s.bookings.ListBookings(ctx, roomID, window)
}

// ApproveItem confirms one pending item. Approval is serialised per room and
// re-checks the room's bookings; an overlap flags the item as conflicting,
// leaves it pending and returns ErrConflict.
func (s *ReservationService) ApproveItem(ctx context.Context, params ReviewParams) (item ReservationItem, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	logger := s.loggerWith(ctx, "ApproveItem",
		"reservation_id", params.ReservationID,
		"item_id", params.ItemID,
		"reviewer_id", params.ReviewerID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to approve item", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "item approved")
	}()

	if err = validateReview(params); err != nil {
		return
	}
	reservation, unlock, err := s.lockReservation(ctx, params.ReservationID)
	if err != nil {
		return
	}
	defer unlock()

	current, ok := reservation.Item(params.ItemID)
	if !ok {
		err = ErrNotFound
		return
	}
	return s.approveLocked(ctx, logger, reservation, current, params)
}

// DenyItem rejects one pending item.
func (s *ReservationService) DenyItem(ctx context.Context, params ReviewParams) (item ReservationItem, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	logger := s.loggerWith(ctx, "DenyItem",
		"reservation_id", params.ReservationID,
		"item_id", params.ItemID,
		"reviewer_id", params.ReviewerID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to deny item", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "item denied")
	}()

	if err = validateReview(params); err != nil {
		return
	}
	reservation, unlock, err := s.lockReservation(ctx, params.ReservationID)
	if err != nil {
		return
	}
	defer unlock()

	current, ok := reservation.Item(params.ItemID)
	if !ok {
		err = ErrNotFound
		return
	}
	return s.deny(ctx, logger, current, params)
}

// ApproveAll approves every pending item. Items that would overlap a booking
// stay pending, are flagged and reported in Skipped.
func (s *ReservationService) ApproveAll(ctx context.Context, params ReviewParams) (result BulkReviewResult, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	logger := s.loggerWith(ctx, "ApproveAll",
		"reservation_id", params.ReservationID,
		"reviewer_id", params.ReviewerID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to approve reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation approved",
			"approved", len(result.Reviewed),
			"skipped", len(result.Skipped),
			"status", result.Reservation.Status(),
		)
	}()

	params.ItemID = ""
	if err = validateReview(params); err != nil {
		return
	}
	reservation, unlock, err := s.lockReservation(ctx, params.ReservationID)
	if err != nil {
		return
	}
	defer unlock()

	for _, item := range reservation.Items {
		if item.Status != ItemPending {
			continue
		}
		if _, aErr := s.approveLocked(ctx, logger, reservation, item, params); aErr != nil {
			if errors.Is(aErr, ErrConflict) {
				result.Skipped = append(result.Skipped, item.ID)
				continue
			}
			err = aErr
			return
		}
		result.Reviewed = append(result.Reviewed, item.ID)
	}

	result.Reservation, err = s.GetReservation(ctx, params.ReservationID)
	return
}

// DenyAll denies every pending item.
func (s *ReservationService) DenyAll(ctx context.Context, params ReviewParams) (result BulkReviewResult, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	logger := s.loggerWith(ctx, "DenyAll",
		"reservation_id", params.ReservationID,
		"reviewer_id", params.ReviewerID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to deny reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation denied", "denied", len(result.Reviewed))
	}()

	params.ItemID = ""
	if err = validateReview(params); err != nil {
		return
	}
	reservation, unlock, err := s.lockReservation(ctx, params.ReservationID)
	if err != nil {
		return
	}
	defer unlock()

	for _, item := range reservation.Items {
		if item.Status != ItemPending {
			continue
		}
		if _, err = s.deny(ctx, logger, item, params); err != nil {
			return
		}
		result.Reviewed = append(result.Reviewed, item.ID)
	}

	result.Reservation, err = s.GetReservation(ctx, params.ReservationID)
	return
}

// schedule validates input, loads the room's bookings for the series window
// and classifies every occurrence.
func (s *ReservationService) schedule(ctx context.Context, input ReservationInput) (scheduler.SchedulingResult, scheduler.ReservationRequest, error) {
	if vErr := validateReservationInput(input); vErr.HasErrors() {
		return scheduler.SchedulingResult{}, scheduler.ReservationRequest{}, vErr
	}

	anchor, err := calendar.NewTimeRange(input.Start, input.End)
	if err != nil {
		return scheduler.SchedulingResult{Outcome: scheduler.OutcomeInvalid}, scheduler.ReservationRequest{}, err
	}
	req := scheduler.ReservationRequest{
		RoomID:      strings.TrimSpace(input.RoomID),
		Anchor:      anchor,
		Recurrence:  input.Recurrence,
		RequesterID: strings.TrimSpace(input.RequesterID),
	}

	occurrences, err := s.engine.Plan(req)
	if err != nil {
		return scheduler.SchedulingResult{RequestID: scheduler.RequestID(req), Outcome: scheduler.OutcomeInvalid}, req, err
	}

	room, err := s.room(ctx, req.RoomID)
	if err != nil {
		return scheduler.SchedulingResult{}, req, err
	}
	if !room.Active {
		return scheduler.SchedulingResult{}, req, ErrRoomInactive
	}
	if n := participants(input); n > room.Capacity {
		vErr := &ValidationError{}
		vErr.add("participants", fmt.Sprintf("participants must be at most %d", room.Capacity))
		return scheduler.SchedulingResult{}, req, vErr
	}

	snapshot, err := s.snapshot(ctx, req.RoomID, BookingWindow{
		From: occurrences[0].Range.Start(),
		To:   occurrences[len(occurrences)-1].Range.End(),
	})
	if err != nil {
		return scheduler.SchedulingResult{}, req, err
	}

	notBefore := s.now().Truncate(time.Minute)
	key := previewCacheKey(scheduler.RequestID(req), scheduler.SnapshotDigest(req.RoomID, snapshot), notBefore)
	if cached, ok := s.preview.Get(key); ok {
		return cached, req, nil
	}

	result, err := s.engine.ScheduleWithOptions(req, snapshot, scheduler.Options{NotBefore: notBefore})
	if err != nil {
		return result, req, err
	}
	s.preview.Store(key, result)
	return result, req, nil
}

func (s *ReservationService) snapshot(ctx context.Context, roomID string, window BookingWindow) ([]scheduler.ExistingBooking, error) {
	if s.bookings == nil {
		return nil, nil
	}
	bookings, err := s.bookings.ListBookings(ctx, roomID, window)
	if err != nil {
		return nil, fmt.Errorf("load bookings of room %s: %w", roomID, err)
	}
	snapshot := make([]scheduler.ExistingBooking, 0, len(bookings))
	for _, booking := range bookings {
		existing, err := scheduler.NewExistingBooking(booking.ID, booking.RoomID, booking.Start, booking.End)
		if err != nil {
			return nil, err
		}
		snapshot = append(snapshot, existing)
	}
	return snapshot, nil
}

func (s *ReservationService) room(ctx context.Context, roomID string) (Room, error) {
	if s.rooms == nil {
		return Room{}, ErrNotFound
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return Room{}, mapRoomRepoError(err)
	}
	return room, nil
}

// lockReservation takes the lock of the reservation's room and returns the
// reservation as read under that lock, so reviews of the same room never
// act on a stale item status. Callers must call unlock.
func (s *ReservationService) lockReservation(ctx context.Context, id string) (Reservation, func(), error) {
	reservation, err := s.GetReservation(ctx, id)
	if err != nil {
		return Reservation{}, nil, err
	}
	unlock := s.locks.lock(reservation.RoomID)
	if reservation, err = s.GetReservation(ctx, id); err != nil {
		unlock()
		return Reservation{}, nil, err
	}
	return reservation, unlock, nil
}

// approveLocked must be called with the room lock held.
func (s *ReservationService) approveLocked(ctx context.Context, logger *slog.Logger, reservation Reservation, item ReservationItem, params ReviewParams) (ReservationItem, error) {
	if item.Status != ItemPending {
		return item, ErrAlreadyReviewed
	}

	candidate, err := calendar.NewTimeRange(item.Start, item.End)
	if err != nil {
		return item, err
	}
	snapshot, err := s.snapshot(ctx, reservation.RoomID, BookingWindow{From: item.Start, To: item.End})
	if err != nil {
		return item, err
	}
	if classification := scheduler.Classify(candidate, reservation.RoomID, snapshot); !classification.Free() {
		return s.flagConflict(ctx, item, classification.Conflict.ID)
	}

	approved := item
	approved.Status = ItemApproved
	approved.Conflict = false
	approved.ConflictBookingID = nil
	approved.Comment = strings.TrimSpace(params.Comment)
	approved.UpdatedAt = s.now()

	itemID := approved.ID
	booking := Booking{
		ID:          s.idGenerator(),
		RoomID:      reservation.RoomID,
		ItemID:      &itemID,
		RequesterID: reservation.RequesterID,
		Start:       approved.Start,
		End:         approved.End,
		CreatedAt:   approved.UpdatedAt,
	}
	if err := s.reservations.ApproveItem(ctx, approved, booking); err != nil {
		if errors.Is(err, persistence.ErrOverlap) {
			// Another writer took the slot after the classification above.
			return s.flagConflict(ctx, item, "")
		}
		return item, mapReservationRepoError(err)
	}

	s.publish(ctx, logger, audit.Event{
		Actor:    params.ReviewerID,
		Action:   audit.ActionApprove,
		Entity:   audit.EntityReservationItem,
		EntityID: approved.ID,
		Comment:  approved.Comment,
	})
	return approved, nil
}

func (s *ReservationService) flagConflict(ctx context.Context, item ReservationItem, bookingID string) (ReservationItem, error) {
	flagged := item
	flagged.Conflict = true
	if bookingID != "" {
		flagged.ConflictBookingID = &bookingID
	}
	flagged.UpdatedAt = s.now()
	if err := s.reservations.UpdateItem(ctx, flagged); err != nil {
		return item, mapReservationRepoError(err)
	}
	if bookingID != "" {
		return flagged, fmt.Errorf("%w: overlaps booking %s", ErrConflict, bookingID)
	}
	return flagged, ErrConflict
}

// deny must be called with the room lock held.
func (s *ReservationService) deny(ctx context.Context, logger *slog.Logger, item ReservationItem, params ReviewParams) (ReservationItem, error) {
	if item.Status != ItemPending {
		return item, ErrAlreadyReviewed
	}
	denied := item
	denied.Status = ItemDenied
	denied.Comment = strings.TrimSpace(params.Comment)
	denied.UpdatedAt = s.now()
	if err := s.reservations.UpdateItem(ctx, denied); err != nil {
		return item, mapReservationRepoError(err)
	}

	s.publish(ctx, logger, audit.Event{
		Actor:    params.ReviewerID,
		Action:   audit.ActionDeny,
		Entity:   audit.EntityReservationItem,
		EntityID: denied.ID,
		Comment:  denied.Comment,
	})
	return denied, nil
}

// publish sends event and logs failures; audit delivery never fails the operation.
func (s *ReservationService) publish(ctx context.Context, logger *slog.Logger, event audit.Event) {
	event.ID = s.idGenerator()
	event.Timestamp = s.now()
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "failed to publish audit event",
			"action", event.Action,
			"entity_id", event.EntityID,
			"error", err,
		)
	}
}

func validateReservationInput(input ReservationInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.RequesterID) == "" {
		vErr.add("requester_id", "requester is required")
	}
	if len(input.Title) > maxTitleLength {
		vErr.add("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if len(input.Purpose) > maxPurposeLength {
		vErr.add("purpose", fmt.Sprintf("purpose must be at most %d characters", maxPurposeLength))
	}
	if input.Participants < 0 {
		vErr.add("participants", "participants must be positive")
	}
	return vErr
}

func participants(input ReservationInput) int {
	if input.Participants == 0 {
		return 1
	}
	return input.Participants
}

func validateReview(params ReviewParams) error {
	vErr := &ValidationError{}
	if strings.TrimSpace(params.ReviewerID) == "" {
		vErr.add("reviewer_id", "reviewer is required")
	}
	if len(params.Comment) > maxCommentLength {
		vErr.add("comment", fmt.Sprintf("comment must be at most %d characters", maxCommentLength))
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func mapReservationRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrNotPending):
		return fmt.Errorf("%w: %v", ErrAlreadyReviewed, err)
	case errors.Is(err, persistence.ErrOverlap):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
