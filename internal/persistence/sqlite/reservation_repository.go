package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/room-scheduler/internal/persistence"
)

// ReservationRepository implements persistence.ReservationRepository using SQLite.
type ReservationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
	now    func() time.Time
}

// NewReservationRepository creates a new SQLite reservation repository.
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		now:    time.Now,
	}
}

const (
	requestColumns = `id, fingerprint, room_id, requester_id, title, purpose, participants,
		recurrence, anchor_start, anchor_end, snapshot_digest, created_at, updated_at`
	itemColumns = `id, request_id, position, start_at, end_at, status, conflict,
		conflict_booking_id, comment, updated_at`
)

// CreateRequest stores a request and all of its items in one transaction.
func (r *ReservationRepository) CreateRequest(ctx context.Context, request persistence.ReservationRequest) error {
	if request.ID == "" || request.RoomID == "" || request.RequesterID == "" {
		return persistence.ErrConstraintViolation
	}
	now := r.now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	if request.UpdatedAt.IsZero() {
		request.UpdatedAt = request.CreatedAt
	}
	participants := request.Participants
	if participants == 0 {
		participants = 1
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO reservation_requests (`+requestColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				request.ID,
				request.Fingerprint,
				request.RoomID,
				request.RequesterID,
				request.Title,
				request.Purpose,
				participants,
				request.Recurrence,
				formatTime(request.AnchorStart),
				formatTime(request.AnchorEnd),
				request.SnapshotDigest,
				formatTime(request.CreatedAt),
				formatTime(request.UpdatedAt),
			)
			if err != nil {
				return err
			}

			for _, item := range request.Items {
				item.RequestID = request.ID
				if item.UpdatedAt.IsZero() {
					item.UpdatedAt = request.CreatedAt
				}
				if item.Status == "" {
					item.Status = persistence.ItemPending
				}
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO reservation_items (`+itemColumns+`)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					item.ID,
					item.RequestID,
					item.Position,
					formatTime(item.Start),
					formatTime(item.End),
					string(item.Status),
					item.Conflict,
					nullableString(item.ConflictBookingID),
					item.Comment,
					formatTime(item.UpdatedAt),
				); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// GetRequest retrieves a request with its items ordered by position.
func (r *ReservationRepository) GetRequest(ctx context.Context, id string) (persistence.ReservationRequest, error) {
	if id == "" {
		return persistence.ReservationRequest{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+requestColumns+` FROM reservation_requests WHERE id = ?`, id)
	request, err := scanRequest(row)
	if err != nil {
		return persistence.ReservationRequest{}, r.mapper.MapError(err)
	}

	items, err := r.listItems(ctx, id)
	if err != nil {
		return persistence.ReservationRequest{}, err
	}
	request.Items = items
	return request, nil
}

// ListRequests returns the requests of requesterID, or all requests when it
// is empty, newest first. Items are included.
func (r *ReservationRepository) ListRequests(ctx context.Context, requesterID string) ([]persistence.ReservationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM reservation_requests`
	var args []any
	if requesterID != "" {
		query += ` WHERE requester_id = ?`
		args = append(args, requesterID)
	}
	query += ` ORDER BY created_at DESC, id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	var requests []persistence.ReservationRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			rows.Close()
			return nil, r.mapper.MapError(err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, r.mapper.MapError(err)
	}
	rows.Close()

	for i := range requests {
		if requests[i].Items, err = r.listItems(ctx, requests[i].ID); err != nil {
			return nil, err
		}
	}
	return requests, nil
}

// UpdateItem stores the review state of a pending item. Items already
// approved or denied are left untouched and persistence.ErrNotPending is
// returned.
func (r *ReservationRepository) UpdateItem(ctx context.Context, item persistence.ReservationItem) error {
	if item.ID == "" {
		return persistence.ErrNotFound
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = r.now().UTC()
	}
	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			return updateItemTx(ctx, tx, item)
		})
	})
}

// ApproveItem stores item and inserts booking atomically. An overlapping
// booking fails with persistence.ErrOverlap and an item that is no longer
// pending with persistence.ErrNotPending; both leave the database untouched.
func (r *ReservationRepository) ApproveItem(ctx context.Context, item persistence.ReservationItem, booking persistence.Booking) error {
	if item.ID == "" {
		return persistence.ErrNotFound
	}
	if booking.ID == "" || !booking.End.After(booking.Start) {
		return persistence.ErrConstraintViolation
	}
	now := r.now().UTC()
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = now
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.ItemID = &item.ID

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, insertBookingSQL, bookingArgs(booking)...); err != nil {
				return err
			}
			return updateItemTx(ctx, tx, item)
		})
	})
}

func updateItemTx(ctx context.Context, tx *sql.Tx, item persistence.ReservationItem) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE reservation_items
		SET status = ?, conflict = ?, conflict_booking_id = ?, comment = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(item.Status),
		item.Conflict,
		nullableString(item.ConflictBookingID),
		item.Comment,
		formatTime(item.UpdatedAt),
		item.ID,
		string(persistence.ItemPending),
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var status string
	if err := tx.QueryRowContext(ctx, `SELECT status FROM reservation_items WHERE id = ?`, item.ID).Scan(&status); err != nil {
		return err
	}
	return fmt.Errorf("%w: item %s is %s", persistence.ErrNotPending, item.ID, status)
}

func (r *ReservationRepository) listItems(ctx context.Context, requestID string) ([]persistence.ReservationItem, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT `+itemColumns+` FROM reservation_items WHERE request_id = ? ORDER BY position ASC`, requestID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var items []persistence.ReservationItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return items, nil
}

func scanRequest(row rowScanner) (persistence.ReservationRequest, error) {
	var (
		request                                      persistence.ReservationRequest
		anchorStart, anchorEnd, createdAt, updatedAt string
	)
	if err := row.Scan(
		&request.ID,
		&request.Fingerprint,
		&request.RoomID,
		&request.RequesterID,
		&request.Title,
		&request.Purpose,
		&request.Participants,
		&request.Recurrence,
		&anchorStart,
		&anchorEnd,
		&request.SnapshotDigest,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.ReservationRequest{}, err
	}

	parsed, err := parseTimes(
		[]string{"anchor_start", "anchor_end", "created_at", "updated_at"},
		[]string{anchorStart, anchorEnd, createdAt, updatedAt},
	)
	if err != nil {
		return persistence.ReservationRequest{}, err
	}
	request.AnchorStart, request.AnchorEnd, request.CreatedAt, request.UpdatedAt = parsed[0], parsed[1], parsed[2], parsed[3]
	return request, nil
}

func scanItem(row rowScanner) (persistence.ReservationItem, error) {
	var (
		item                      persistence.ReservationItem
		status                    string
		conflictBookingID         sql.NullString
		startAt, endAt, updatedAt string
	)
	if err := row.Scan(
		&item.ID,
		&item.RequestID,
		&item.Position,
		&startAt,
		&endAt,
		&status,
		&item.Conflict,
		&conflictBookingID,
		&item.Comment,
		&updatedAt,
	); err != nil {
		return persistence.ReservationItem{}, err
	}

	item.Status = persistence.ItemStatus(status)
	if conflictBookingID.Valid {
		value := conflictBookingID.String
		item.ConflictBookingID = &value
	}
	parsed, err := parseTimes(
		[]string{"start_at", "end_at", "updated_at"},
		[]string{startAt, endAt, updatedAt},
	)
	if err != nil {
		return persistence.ReservationItem{}, err
	}
	item.Start, item.End, item.UpdatedAt = parsed[0], parsed[1], parsed[2]
	return item, nil
}

func parseTimes(columns, values []string) ([]time.Time, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("sqlite: %d columns for %d values", len(columns), len(values))
	}
	parsed := make([]time.Time, len(values))
	for i, value := range values {
		t, err := parseTime(columns[i], value)
		if err != nil {
			return nil, err
		}
		parsed[i] = t
	}
	return parsed, nil
}
