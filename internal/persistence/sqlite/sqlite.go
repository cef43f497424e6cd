package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/example/room-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the embedded schema migrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(fmt.Sprintf("sqlite: embedded migrations: %v", err))
	}
	return sub
}

// Storage is the SQLite-backed persistence layer. It satisfies
// persistence.RoomRepository, persistence.BookingRepository and
// persistence.ReservationRepository.
type Storage struct {
	*RoomRepository
	*BookingRepository
	*ReservationRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

// Open opens the database at path with the production configuration.
// Call Migrate before using the repositories on a fresh database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Storage, error) {
	return OpenWithConfig(ctx, migration.DefaultSQLiteConfig(path), logger)
}

// OpenWithConfig opens the database described by config.
func OpenWithConfig(ctx context.Context, config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		RoomRepository:        NewRoomRepository(pool),
		BookingRepository:     NewBookingRepository(pool),
		ReservationRepository: NewReservationRepository(pool),
		pool:                  pool,
		logger:                logger,
	}, nil
}

// Migrate applies pending embedded migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewManager(
		migration.NewFileScanner(),
		migration.NewSQLiteExecutor(s.pool.DB()),
		Migrations(),
		s.logger,
	)
	return manager.RunMigrations(ctx)
}

// MigrationStatus reports applied and pending embedded migrations.
func (s *Storage) MigrationStatus(ctx context.Context) (*migration.Status, error) {
	manager := migration.NewManager(
		migration.NewFileScanner(),
		migration.NewSQLiteExecutor(s.pool.DB()),
		Migrations(),
		s.logger,
	)
	return manager.Status(ctx)
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
