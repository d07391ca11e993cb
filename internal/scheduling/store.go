package scheduling

import (
	"context"
	"time"

	"roombooking/internal/audit"
	"roombooking/internal/booking"
)

// Store persists bookings and their audit trail.
//
// Read methods return a consistent snapshot and never observe a partially
// applied transaction. Unknown bookings yield a booking.NotFound error.
type Store interface {
	// WithRoomTx runs fn as one atomic unit holding the room's storage lock.
	// If fn or the commit fails, none of fn's writes are kept. Losing a race
	// for the lock is retried internally and is not reported as an error.
	WithRoomTx(ctx context.Context, roomID string, fn func(tx Tx) error) error

	Booking(ctx context.Context, id string) (*booking.Booking, error)
	BookingsByRoom(ctx context.Context, roomID string) ([]booking.Booking, error)
	BookingsByRequester(ctx context.Context, requesterID string) ([]booking.Booking, error)
	AllBookings(ctx context.Context) ([]booking.Booking, error)
	ActiveBookings(ctx context.Context) ([]booking.Booking, error)

	AuditByRoom(ctx context.Context, roomID string) ([]audit.Entry, error)
	AuditByBooking(ctx context.Context, bookingID string) ([]audit.Entry, error)
}

// Tx is the write surface available inside WithRoomTx.
type Tx interface {
	Booking(ctx context.Context, id string) (*booking.Booking, error)
	// HasOverlap reports whether an active booking in the room overlaps
	// [start, end) according to storage.
	HasOverlap(ctx context.Context, roomID string, start, end time.Time) (bool, error)
	InsertBooking(ctx context.Context, b *booking.Booking) error
	UpdateBooking(ctx context.Context, b *booking.Booking) error
	DeleteBooking(ctx context.Context, id string) error
	AppendAudit(ctx context.Context, e audit.Entry) error
	PurgeAudit(ctx context.Context, bookingID string) error
}
