package audit

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func Insert(ctx context.Context, tx pgx.Tx, e Entry) error {
	const q = `
INSERT INTO audit_entries (id, booking_id, room_id, actor_id, action, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := tx.Exec(ctx, q, e.ID, e.BookingID, e.RoomID, e.ActorID, string(e.Action), e.Notes, e.Timestamp)
	return err
}

func DeleteByBooking(ctx context.Context, tx pgx.Tx, bookingID string) error {
	const q = `DELETE FROM audit_entries WHERE booking_id = $1`
	_, err := tx.Exec(ctx, q, bookingID)
	return err
}

func ListByRoom(ctx context.Context, db Querier, roomID string) ([]Entry, error) {
	const q = `
SELECT id::text, booking_id::text, room_id, actor_id, action, notes, created_at
FROM audit_entries
WHERE room_id = $1
ORDER BY created_at ASC, seq ASC
`
	return list(ctx, db, q, roomID)
}

func ListByBooking(ctx context.Context, db Querier, bookingID string) ([]Entry, error) {
	const q = `
SELECT id::text, booking_id::text, room_id, actor_id, action, notes, created_at
FROM audit_entries
WHERE booking_id = $1
ORDER BY created_at ASC, seq ASC
`
	return list(ctx, db, q, bookingID)
}

func list(ctx context.Context, db Querier, q string, arg string) ([]Entry, error) {
	rows, err := db.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.BookingID, &e.RoomID, &e.ActorID, &e.Action, &e.Notes, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Timestamp = e.Timestamp.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
