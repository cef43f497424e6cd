package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/audit"
	"github.com/example/room-scheduler/internal/recurrence"
	"github.com/example/room-scheduler/internal/scheduler"
)

// ServiceFactory builds application services that share a deterministic
// clock and identifier sequence.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Location    *time.Location
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory reading ReferenceTime and
// scheduling in UTC unless overridden.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Location:    time.UTC,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Location == nil {
		factory.Location = time.UTC
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLocation sets the zone used for recurrence arithmetic.
func WithLocation(loc *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Location = loc
	}
}

// Engine returns a scheduling engine in the factory location with the
// default occurrence limit.
func (f *ServiceFactory) Engine() *scheduler.Engine {
	return scheduler.NewEngine(recurrence.NewExpander(f.Location, recurrence.DefaultMaxOccurrences))
}

// RoomServiceDeps captures dependencies for constructing a room service.
// A nil Publisher drops audit events.
type RoomServiceDeps struct {
	Rooms       application.RoomRepository
	Publisher   audit.Publisher
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewRoomService builds a room service using the supplied dependencies.
func (f *ServiceFactory) NewRoomService(deps RoomServiceDeps) *application.RoomService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewRoomServiceWithLogger(deps.Rooms, deps.Publisher, idGen, now, deps.Logger)
}

// ReservationServiceDeps captures dependencies for constructing a
// reservation service. Nil Engine and Publisher use the factory engine and
// a publisher that drops events.
type ReservationServiceDeps struct {
	Rooms        application.RoomRepository
	Bookings     application.BookingRepository
	Reservations application.ReservationRepository
	Engine       *scheduler.Engine
	Publisher    audit.Publisher
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewReservationService builds a reservation service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewReservationService(deps ReservationServiceDeps) *application.ReservationService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	engine := deps.Engine
	if engine == nil {
		engine = f.Engine()
	}
	return application.NewReservationServiceWithLogger(
		deps.Rooms,
		deps.Bookings,
		deps.Reservations,
		engine,
		deps.Publisher,
		idGen,
		now,
		deps.Logger,
	)
}
