// Package pgstore keeps bookings and their audit trail in PostgreSQL.
//
// Each room transaction locks the room's row, so several API processes
// sharing one database still serialize writes per room.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"roombooking/internal/audit"
	"roombooking/internal/booking"
	"roombooking/internal/scheduling"
	"roombooking/pkg/db"
)

type Options struct {
	// RetryAttempts bounds how often a transaction that lost a lock race is rerun.
	RetryAttempts int
	// LockTimeout caps the wait for a room's row lock within one attempt.
	LockTimeout time.Duration
}

type Store struct {
	pool *pgxpool.Pool
	opts Options
}

var _ scheduling.Store = (*Store)(nil)

func New(pool *pgxpool.Pool, opts Options) *Store {
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 5
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 2 * time.Second
	}
	return &Store{pool: pool, opts: opts}
}

func (s *Store) WithRoomTx(ctx context.Context, roomID string, fn func(tx scheduling.Tx) error) error {
	return db.WithTxRetry(ctx, s.pool, s.opts.RetryAttempts, func(tx pgx.Tx) error {
		// SET does not take bind parameters.
		setTimeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.opts.LockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, setTimeout); err != nil {
			return err
		}

		const qLock = `SELECT id FROM rooms WHERE id = $1 FOR UPDATE`
		var id string
		if err := tx.QueryRow(ctx, qLock, roomID).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return booking.NotFound("room %s not found", roomID)
			}
			return err
		}
		return fn(&roomTx{tx: tx})
	})
}

const bookingColumns = `
id::text, room_id, requester_id, requester_name, start_time, end_time,
purpose, status, COALESCE(decision_notes, ''), created_at, updated_at
`

func scanBooking(row pgx.Row) (booking.Booking, error) {
	var b booking.Booking
	err := row.Scan(
		&b.ID, &b.RoomID, &b.RequesterID, &b.RequesterName, &b.StartTime, &b.EndTime,
		&b.Purpose, &b.Status, &b.DecisionNotes, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return booking.Booking{}, err
	}
	b.StartTime = b.StartTime.UTC()
	b.EndTime = b.EndTime.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}

// rowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getBooking(ctx context.Context, q rowQuerier, id string, forUpdate bool) (*booking.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, booking.NotFound("booking %s not found", id)
	}
	sql := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	b, err := scanBooking(q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, booking.NotFound("booking %s not found", id)
		}
		return nil, err
	}
	return &b, nil
}

func (s *Store) Booking(ctx context.Context, id string) (*booking.Booking, error) {
	return getBooking(ctx, s.pool, id, false)
}

func (s *Store) listBookings(ctx context.Context, where, order string, args ...any) ([]booking.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings`
	if where != "" {
		q += ` WHERE ` + where
	}
	q += ` ORDER BY ` + order

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []booking.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) BookingsByRoom(ctx context.Context, roomID string) ([]booking.Booking, error) {
	return s.listBookings(ctx, `room_id = $1`, `start_time ASC, id ASC`, roomID)
}

func (s *Store) BookingsByRequester(ctx context.Context, requesterID string) ([]booking.Booking, error) {
	return s.listBookings(ctx, `requester_id = $1`, `created_at DESC, id DESC`, requesterID)
}

func (s *Store) AllBookings(ctx context.Context) ([]booking.Booking, error) {
	return s.listBookings(ctx, "", `created_at DESC, id DESC`)
}

func (s *Store) ActiveBookings(ctx context.Context) ([]booking.Booking, error) {
	return s.listBookings(ctx, `status IN ('Pending', 'Approved')`, `room_id, start_time`)
}

func (s *Store) AuditByRoom(ctx context.Context, roomID string) ([]audit.Entry, error) {
	return audit.ListByRoom(ctx, s.pool, roomID)
}

func (s *Store) AuditByBooking(ctx context.Context, bookingID string) ([]audit.Entry, error) {
	if _, err := uuid.Parse(bookingID); err != nil {
		return []audit.Entry{}, nil
	}
	return audit.ListByBooking(ctx, s.pool, bookingID)
}

type roomTx struct {
	tx pgx.Tx
}

func (t *roomTx) Booking(ctx context.Context, id string) (*booking.Booking, error) {
	return getBooking(ctx, t.tx, id, true)
}

func (t *roomTx) HasOverlap(ctx context.Context, roomID string, start, end time.Time) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM bookings
  WHERE room_id = $1
    AND status IN ('Pending', 'Approved')
    AND start_time < $3
    AND end_time > $2
)
`
	var exists bool
	err := t.tx.QueryRow(ctx, q, roomID, start, end).Scan(&exists)
	return exists, err
}

func (t *roomTx) InsertBooking(ctx context.Context, b *booking.Booking) error {
	const q = `
INSERT INTO bookings (
  id, room_id, requester_id, requester_name, start_time, end_time,
  purpose, status, decision_notes, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11)
`
	_, err := t.tx.Exec(ctx, q,
		b.ID, b.RoomID, b.RequesterID, b.RequesterName, b.StartTime, b.EndTime,
		b.Purpose, string(b.Status), b.DecisionNotes, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

func (t *roomTx) UpdateBooking(ctx context.Context, b *booking.Booking) error {
	const q = `
UPDATE bookings
SET status = $2, decision_notes = NULLIF($3, ''), updated_at = $4
WHERE id = $1
`
	tag, err := t.tx.Exec(ctx, q, b.ID, string(b.Status), b.DecisionNotes, b.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.NotFound("booking %s not found", b.ID)
	}
	return nil
}

func (t *roomTx) DeleteBooking(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.NotFound("booking %s not found", id)
	}
	return nil
}

func (t *roomTx) AppendAudit(ctx context.Context, e audit.Entry) error {
	return audit.Insert(ctx, t.tx, e)
}

func (t *roomTx) PurgeAudit(ctx context.Context, bookingID string) error {
	return audit.DeleteByBooking(ctx, t.tx, bookingID)
}
