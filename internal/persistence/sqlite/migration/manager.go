package migration

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"time"
)

// Manager applies pending migrations from a file system.
type Manager struct {
	scanner  FileScanner
	executor Executor
	files    fs.FS
	logger   *slog.Logger
}

// NewManager creates a Manager reading migrations from files.
func NewManager(scanner FileScanner, executor Executor, files fs.FS, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		scanner:  scanner,
		executor: executor,
		files:    files,
		logger:   logger.With("component", "migration"),
	}
}

// RunMigrations executes all pending migrations in version order.
func (m *Manager) RunMigrations(ctx context.Context) error {
	started := time.Now()

	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	if len(status.PendingMigrations) == 0 {
		m.logger.InfoContext(ctx, "schema up to date", "version", status.CurrentVersion)
		return nil
	}

	m.logger.InfoContext(ctx, "applying migrations",
		"current_version", status.CurrentVersion,
		"pending", len(status.PendingMigrations),
	)

	for i, migration := range status.PendingMigrations {
		elapsed, err := m.executor.ExecuteMigration(ctx, migration)
		if err != nil {
			m.logger.ErrorContext(ctx, "migration failed",
				"version", migration.Version,
				"file", migration.FilePath,
				"error", err,
			)
			return err
		}
		m.logger.InfoContext(ctx, "migration applied",
			"version", migration.Version,
			"description", migration.Description,
			"position", fmt.Sprintf("%d/%d", i+1, len(status.PendingMigrations)),
			"duration", elapsed,
		)
	}

	m.logger.InfoContext(ctx, "migrations completed",
		"count", len(status.PendingMigrations),
		"duration", time.Since(started),
	)
	return nil
}

// Status reports applied and pending migrations. It fails when the files do
// not form a gapless sequence covering every applied version, or when an
// applied file has changed since it ran.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, err
	}

	available, err := m.scanner.ScanMigrations(m.files)
	if err != nil {
		return nil, err
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateSequence(available, applied); err != nil {
		return nil, err
	}

	appliedByVersion := make(map[int]AppliedMigration, len(applied))
	for _, a := range applied {
		appliedByVersion[versionNumber(a.Version)] = a
	}

	status := &Status{AppliedMigrations: applied}
	for _, migration := range available {
		record, ok := appliedByVersion[versionNumber(migration.Version)]
		if !ok {
			status.PendingMigrations = append(status.PendingMigrations, migration)
			continue
		}
		if record.Checksum != "" && record.Checksum != migration.Checksum {
			return nil, NewMigrationError(migration.Version, migration.FilePath, "verify checksum",
				fmt.Errorf("%w: recorded %s, file has %s", ErrChecksumMismatch, record.Checksum, migration.Checksum))
		}
		status.CurrentVersion = migration.Version
	}
	return status, nil
}

func validateSequence(available []Migration, applied []AppliedMigration) error {
	known := make(map[int]bool, len(available))
	for i, migration := range available {
		number := versionNumber(migration.Version)
		known[number] = true
		if i > 0 {
			if previous := versionNumber(available[i-1].Version); number != previous+1 {
				return fmt.Errorf("%w: missing migration version %03d", ErrVersionConflict, previous+1)
			}
		}
	}
	for _, a := range applied {
		number, err := strconv.Atoi(a.Version)
		if err != nil {
			return fmt.Errorf("%w: applied version %q is not numeric", ErrInvalidVersion, a.Version)
		}
		if !known[number] {
			return fmt.Errorf("%w: applied migration %03d has no file", ErrVersionConflict, number)
		}
	}
	return nil
}
