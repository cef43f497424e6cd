package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/room-scheduler/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
type BookingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
	now    func() time.Time
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		now:    time.Now,
	}
}

const bookingColumns = `id, room_id, item_id, requester_id, start_at, end_at, created_at`

// CreateBooking inserts a booking. A booking overlapping another booking of
// the same room fails with persistence.ErrOverlap.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" || booking.RoomID == "" || !booking.End.After(booking.Start) {
		return persistence.ErrConstraintViolation
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = r.now().UTC()
	}
	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, insertBookingSQL, bookingArgs(booking)...)
		return err
	})
}

// ListBookings returns the bookings matching filter ordered by start, end, ID.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.RoomID != "" {
		clauses = append(clauses, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "start_at < ?")
		args = append(args, formatTime(filter.To))
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, "end_at > ?")
		args = append(args, formatTime(filter.From))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY start_at ASC, end_at ASC, id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return bookings, nil
}

// DeleteBooking removes a booking by ID.
func (r *BookingRepository) DeleteBooking(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

const insertBookingSQL = `
	INSERT INTO bookings (` + bookingColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?)
`

func bookingArgs(booking persistence.Booking) []any {
	return []any{
		booking.ID,
		booking.RoomID,
		nullableString(booking.ItemID),
		booking.RequesterID,
		formatTime(booking.Start),
		formatTime(booking.End),
		formatTime(booking.CreatedAt),
	}
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var (
		booking                   persistence.Booking
		itemID                    sql.NullString
		startAt, endAt, createdAt string
	)
	if err := row.Scan(
		&booking.ID,
		&booking.RoomID,
		&itemID,
		&booking.RequesterID,
		&startAt,
		&endAt,
		&createdAt,
	); err != nil {
		return persistence.Booking{}, err
	}

	if itemID.Valid {
		value := itemID.String
		booking.ItemID = &value
	}
	var err error
	if booking.Start, err = parseTime("start_at", startAt); err != nil {
		return persistence.Booking{}, err
	}
	if booking.End, err = parseTime("end_at", endAt); err != nil {
		return persistence.Booking{}, err
	}
	if booking.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Booking{}, err
	}
	return booking, nil
}
