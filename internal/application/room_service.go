package application

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/example/room-scheduler/internal/audit"
	"github.com/example/room-scheduler/internal/logging"
	"github.com/example/room-scheduler/internal/persistence"
)

const (
	maxRoomNameLength       = 100
	maxRoomLocationLength   = 200
	maxRoomFacilitiesLength = 500
)

// RoomRepository captures the persistence operations needed by the service.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) (Room, error)
	GetRoom(ctx context.Context, id string) (Room, error)
	UpdateRoom(ctx context.Context, room Room) (Room, error)
	DeleteRoom(ctx context.Context, id string) error
	ListRooms(ctx context.Context) ([]Room, error)
}

// RoomService maintains the room catalog. Every change to the catalog is
// published as an audit event with before and after snapshots.
type RoomService struct {
	rooms       RoomRepository
	publisher   audit.Publisher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoomService constructs a room service that does not audit changes.
func NewRoomService(rooms RoomRepository, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, nil, idGenerator, now, nil)
}

// NewRoomServiceWithLogger constructs a room service publishing audit events
// to publisher. A nil publisher discards events and a nil logger falls back
// to slog.Default.
func NewRoomServiceWithLogger(rooms RoomRepository, publisher audit.Publisher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoomService {
	if publisher == nil {
		publisher = audit.Nop{}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{
		rooms:       rooms,
		publisher:   publisher,
		idGenerator: idGenerator,
		now:         now,
		logger:      logging.OrDefault(logger),
	}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

func (s *RoomService) ready() error {
	if s == nil {
		return fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil {
		return fmt.Errorf("room repository not configured")
	}
	return nil
}

// CreateRoom validates input and persists a new room. Rooms are active
// unless the input says otherwise.
func (s *RoomService) CreateRoom(ctx context.Context, input RoomInput) (room Room, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room created", "room_id", room.ID)
	}()

	fields, vErr := normalizeRoomInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	created := s.now()
	draft := Room{ID: s.idGenerator(), Active: true, CreatedAt: created, UpdatedAt: created}
	fields.applyTo(&draft)

	if room, err = s.rooms.CreateRoom(ctx, draft); err != nil {
		err = mapRoomRepoError(err)
		return
	}

	s.publish(ctx, logger, audit.ActionCreate, room.ID, nil, &room)
	return
}

// UpdateRoom replaces the editable fields of an existing room. Active is left
// unchanged when the input omits it.
func (s *RoomService) UpdateRoom(ctx context.Context, params UpdateRoomParams) (room Room, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom", "room_id", params.RoomID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room updated", "active", room.Active)
	}()

	fields, vErr := normalizeRoomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var before Room
	if before, err = s.rooms.GetRoom(ctx, params.RoomID); err != nil {
		err = mapRoomRepoError(err)
		return
	}

	draft := before
	fields.applyTo(&draft)
	draft.UpdatedAt = s.now()

	if room, err = s.rooms.UpdateRoom(ctx, draft); err != nil {
		err = mapRoomRepoError(err)
		return
	}

	s.publish(ctx, logger, audit.ActionUpdate, room.ID, &before, &room)
	return
}

// GetRoom returns a single room.
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (Room, error) {
	if err := s.ready(); err != nil {
		return Room{}, err
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return Room{}, mapRoomRepoError(err)
	}
	return room, nil
}

// DeleteRoom removes a room. Rooms referenced by reservations or bookings are
// kept and ErrRoomInUse is returned; deactivate them instead.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteRoom", "room_id", roomID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room deleted")
	}()

	var before Room
	if before, err = s.rooms.GetRoom(ctx, roomID); err != nil {
		err = mapRoomRepoError(err)
		return
	}

	if err = s.rooms.DeleteRoom(ctx, roomID); err != nil {
		if errors.Is(err, persistence.ErrConstraintViolation) {
			err = ErrRoomInUse
		} else {
			err = mapRoomRepoError(err)
		}
		return
	}

	s.publish(ctx, logger, audit.ActionDelete, roomID, &before, nil)
	return
}

// ListRooms returns the catalog ordered by name, ignoring case, then by ID.
func (s *RoomService) ListRooms(ctx context.Context) (rooms []Room, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ListRooms")

	raw, err := s.rooms.ListRooms(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list rooms", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	rooms = slices.Clone(raw)
	slices.SortFunc(rooms, func(a, b Room) int {
		return cmp.Or(
			strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			strings.Compare(a.ID, b.ID),
		)
	})

	logger.DebugContext(ctx, "rooms listed", "result_count", len(rooms))
	return rooms, nil
}

func (s *RoomService) publish(ctx context.Context, logger *slog.Logger, action, roomID string, before, after *Room) {
	actor, _ := ActorFromContext(ctx)
	event := audit.Event{
		ID:        s.idGenerator(),
		Actor:     actor,
		Action:    action,
		Entity:    audit.EntityRoom,
		EntityID:  roomID,
		Timestamp: s.now(),
		Before:    roomSnapshot(before),
		After:     roomSnapshot(after),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "failed to publish audit event", "action", action, "entity_id", roomID, "error", err)
	}
}

// roomFields are the editable attributes of a room after trimming.
type roomFields struct {
	name       string
	location   string
	capacity   int
	facilities *string
	active     *bool
}

func (f roomFields) applyTo(room *Room) {
	room.Name = f.name
	room.Location = f.location
	room.Capacity = f.capacity
	room.Facilities = f.facilities
	if f.active != nil {
		room.Active = *f.active
	}
}

func normalizeRoomInput(input RoomInput) (roomFields, *ValidationError) {
	fields := roomFields{
		name:       strings.TrimSpace(input.Name),
		location:   strings.TrimSpace(input.Location),
		capacity:   input.Capacity,
		facilities: normalizeOptionalString(input.Facilities),
		active:     input.Active,
	}

	vErr := &ValidationError{}
	switch {
	case fields.name == "":
		vErr.add("name", "name is required")
	case len(fields.name) > maxRoomNameLength:
		vErr.add("name", fmt.Sprintf("name must be at most %d characters", maxRoomNameLength))
	}
	switch {
	case fields.location == "":
		vErr.add("location", "location is required")
	case len(fields.location) > maxRoomLocationLength:
		vErr.add("location", fmt.Sprintf("location must be at most %d characters", maxRoomLocationLength))
	}
	if fields.capacity <= 0 {
		vErr.add("capacity", "capacity must be positive")
	}
	if fields.facilities != nil && len(*fields.facilities) > maxRoomFacilitiesLength {
		vErr.add("facilities", fmt.Sprintf("facilities must be at most %d characters", maxRoomFacilitiesLength))
	}
	return fields, vErr
}

func roomSnapshot(room *Room) json.RawMessage {
	if room == nil {
		return nil
	}
	data, err := json.Marshal(struct {
		Name       string  `json:"name"`
		Location   string  `json:"location"`
		Capacity   int     `json:"capacity"`
		Facilities *string `json:"facilities,omitempty"`
		Active     bool    `json:"active"`
	}{room.Name, room.Location, room.Capacity, room.Facilities, room.Active})
	if err != nil {
		return nil
	}
	return data
}

func mapRoomRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("capacity", "capacity must be positive")
		return vErr
	}
	return err
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
