// Package scheduling admits, decides and cancels room bookings. All writes
// touching one room run under that room's lock; different rooms never wait
// on each other.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"roombooking/internal/audit"
	"roombooking/internal/availability"
	"roombooking/internal/booking"
	"roombooking/internal/claims"
	"roombooking/internal/room"
)

// ErrInternal is returned when an operation could not be durably recorded.
// Nothing the operation attempted is kept.
var ErrInternal = errors.New("internal error")

// PurgePolicy decides what an administrative purge does with audit history.
type PurgePolicy string

const (
	PurgePreserveAudit PurgePolicy = "preserve"
	PurgeDeleteAudit   PurgePolicy = "purge"
)

func ParsePurgePolicy(s string) (PurgePolicy, error) {
	switch PurgePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PurgePreserveAudit:
		return PurgePreserveAudit, nil
	case PurgeDeleteAudit:
		return PurgeDeleteAudit, nil
	default:
		return "", fmt.Errorf("unknown audit purge policy %q", s)
	}
}

type Options struct {
	Now         func() time.Time
	NewID       func() string
	PurgePolicy PurgePolicy
	Logger      *slog.Logger
}

type Service struct {
	store  Store
	rooms  room.Catalog
	index  *availability.Index
	locks  *roomLocks
	now    func() time.Time
	newID  func() string
	purge  PurgePolicy
	logger *slog.Logger
}

func NewService(store Store, rooms room.Catalog, opts Options) *Service {
	s := &Service{
		store:  store,
		rooms:  rooms,
		index:  availability.NewIndex(),
		locks:  newRoomLocks(),
		now:    opts.Now,
		newID:  opts.NewID,
		purge:  opts.PurgePolicy,
		logger: opts.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.purge == "" {
		s.purge = PurgePreserveAudit
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// Warm loads every active booking from the store into the availability index.
// Call it once before serving traffic.
func (s *Service) Warm(ctx context.Context) error {
	active, err := s.store.ActiveBookings(ctx)
	if err != nil {
		return fmt.Errorf("load active bookings: %w", err)
	}
	for _, b := range active {
		s.index.Insert(b.RoomID, b.ID, b.StartTime, b.EndTime)
	}
	s.logger.Info("availability index warmed", "active_bookings", len(active))
	return nil
}

type SubmitInput struct {
	RoomID      string
	RequesterID string
	Start       time.Time
	End         time.Time
	Purpose     string
}

// Submit admits a new booking in Pending state.
func (s *Service) Submit(ctx context.Context, p claims.Principal, in SubmitInput) (*booking.Booking, error) {
	rm, err := s.rooms.Room(ctx, in.RoomID)
	switch {
	case errors.Is(err, room.ErrNotFound):
		rm = nil
	case err != nil:
		return nil, fmt.Errorf("lookup room: %w", err)
	}

	req := booking.Request{
		Now:         s.now(),
		Room:        rm,
		RoomID:      in.RoomID,
		Principal:   p,
		RequesterID: in.RequesterID,
		Start:       in.Start,
		End:         in.End,
	}
	if err := booking.Validate(req); err != nil {
		return nil, err
	}

	release, err := s.locks.acquire(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}
	defer release()

	// The index only reflects writes made through this process. A hit is
	// confirmed against storage below; hits storage does not confirm are stale.
	var stale []availability.Interval
	if s.index.Query(in.RoomID, in.Start, in.End) {
		stale = s.index.Conflicts(in.RoomID, in.Start, in.End)
	}

	b := booking.NewPending(s.newID(), req, in.Purpose)
	err = s.store.WithRoomTx(ctx, b.RoomID, func(tx Tx) error {
		overlap, err := tx.HasOverlap(ctx, b.RoomID, b.StartTime, b.EndTime)
		if err != nil {
			return err
		}
		if overlap {
			return booking.Conflict("room already booked for an overlapping interval")
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		return appendAudit(ctx, tx, audit.NewEntry(b.ID, b.RoomID, p.UserID, audit.ActionCreated, "", b.CreatedAt))
	})
	if err != nil {
		return nil, s.fail("submit", err)
	}

	for _, iv := range stale {
		s.index.Remove(b.RoomID, iv.BookingID)
	}
	if len(stale) > 0 {
		s.logger.Warn("dropped stale availability intervals", "room_id", b.RoomID, "count", len(stale))
	}
	s.index.Insert(b.RoomID, b.ID, b.StartTime, b.EndTime)
	s.logger.Info("booking submitted",
		"booking_id", b.ID, "room_id", b.RoomID, "requester_id", b.RequesterID,
		"start", b.StartTime, "end", b.EndTime)
	return b, nil
}

// Decide moves a booking to Approved, Rejected or Cancelled.
func (s *Service) Decide(ctx context.Context, p claims.Principal, bookingID string, to booking.Status, notes string) (*booking.Booking, error) {
	current, err := s.store.Booking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	release, err := s.locks.acquire(ctx, current.RoomID)
	if err != nil {
		return nil, err
	}
	defer release()

	var updated *booking.Booking
	err = s.store.WithRoomTx(ctx, current.RoomID, func(tx Tx) error {
		b, err := tx.Booking(ctx, bookingID)
		if err != nil {
			return err
		}
		now := s.now()
		action, err := booking.Transition(b, to, p, notes, now)
		if err != nil {
			return err
		}
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}
		// Cancel fills in default notes; use what the machine recorded.
		entryNotes := notes
		if b.DecisionNotes != "" {
			entryNotes = b.DecisionNotes
		}
		if err := appendAudit(ctx, tx, audit.NewEntry(b.ID, b.RoomID, p.UserID, action, entryNotes, now)); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, s.fail("decide", err)
	}

	if !updated.Status.Active() {
		s.index.Remove(updated.RoomID, updated.ID)
	}
	s.logger.Info("booking status changed",
		"booking_id", updated.ID, "room_id", updated.RoomID, "status", updated.Status, "actor_id", p.UserID)
	return updated, nil
}

func (s *Service) Approve(ctx context.Context, p claims.Principal, bookingID, notes string) (*booking.Booking, error) {
	return s.Decide(ctx, p, bookingID, booking.StatusApproved, notes)
}

func (s *Service) Reject(ctx context.Context, p claims.Principal, bookingID, notes string) (*booking.Booking, error) {
	return s.Decide(ctx, p, bookingID, booking.StatusRejected, notes)
}

func (s *Service) Cancel(ctx context.Context, p claims.Principal, bookingID, notes string) (*booking.Booking, error) {
	return s.Decide(ctx, p, bookingID, booking.StatusCancelled, notes)
}

// Purge deletes a terminal booking record. It is not a transition and
// appends no audit entry; the configured policy decides whether the
// booking's existing entries survive.
func (s *Service) Purge(ctx context.Context, p claims.Principal, bookingID string) error {
	if !p.IsApprover() {
		return booking.Forbidden("only approvers may delete bookings")
	}
	current, err := s.store.Booking(ctx, bookingID)
	if err != nil {
		return err
	}

	release, err := s.locks.acquire(ctx, current.RoomID)
	if err != nil {
		return err
	}
	defer release()

	err = s.store.WithRoomTx(ctx, current.RoomID, func(tx Tx) error {
		b, err := tx.Booking(ctx, bookingID)
		if err != nil {
			return err
		}
		if !b.Status.Terminal() {
			return booking.InvalidTransition("only rejected or cancelled bookings can be deleted, booking is %s", b.Status)
		}
		if err := tx.DeleteBooking(ctx, b.ID); err != nil {
			return err
		}
		if s.purge == PurgeDeleteAudit {
			return tx.PurgeAudit(ctx, b.ID)
		}
		return nil
	})
	if err != nil {
		return s.fail("purge", err)
	}
	s.logger.Info("booking purged", "booking_id", bookingID, "room_id", current.RoomID, "policy", s.purge, "actor_id", p.UserID)
	return nil
}

// Booking returns one booking. Requesters only see their own.
func (s *Service) Booking(ctx context.Context, p claims.Principal, id string) (*booking.Booking, error) {
	if !p.Known() {
		return nil, booking.Forbidden("caller has no booking role")
	}
	b, err := s.store.Booking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsApprover() && b.RequesterID != p.UserID {
		return nil, booking.Forbidden("booking %s belongs to another requester", id)
	}
	return b, nil
}

func (s *Service) BookingLogs(ctx context.Context, p claims.Principal, id string) ([]audit.Entry, error) {
	if _, err := s.Booking(ctx, p, id); err != nil {
		return nil, err
	}
	return s.store.AuditByBooking(ctx, id)
}

// RoomSchedule lists a room's bookings ordered by start time.
func (s *Service) RoomSchedule(ctx context.Context, roomID string, activeOnly bool) ([]booking.Booking, error) {
	if _, err := s.rooms.Room(ctx, roomID); err != nil {
		if errors.Is(err, room.ErrNotFound) {
			return nil, booking.NotFound("room %s not found", roomID)
		}
		return nil, fmt.Errorf("lookup room: %w", err)
	}
	list, err := s.store.BookingsByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !activeOnly {
		return list, nil
	}
	out := list[:0]
	for _, b := range list {
		if b.Active() {
			out = append(out, b)
		}
	}
	return out, nil
}

// RoomLogs returns a room's audit history, oldest first.
func (s *Service) RoomLogs(ctx context.Context, p claims.Principal, roomID string) ([]audit.Entry, error) {
	if !p.IsApprover() {
		return nil, booking.Forbidden("only approvers may read room audit logs")
	}
	return s.store.AuditByRoom(ctx, roomID)
}

// RequesterBookings lists a requester's bookings, newest first.
func (s *Service) RequesterBookings(ctx context.Context, p claims.Principal, requesterID string) ([]booking.Booking, error) {
	switch {
	case !p.Known():
		return nil, booking.Forbidden("caller has no booking role")
	case !p.IsApprover() && requesterID != p.UserID:
		return nil, booking.Forbidden("requesters may only list their own bookings")
	}
	return s.store.BookingsByRequester(ctx, requesterID)
}

// AllBookings lists every booking, newest first.
func (s *Service) AllBookings(ctx context.Context, p claims.Principal, status *booking.Status) ([]booking.Booking, error) {
	if !p.IsApprover() {
		return nil, booking.Forbidden("only approvers may list all bookings")
	}
	list, err := s.store.AllBookings(ctx)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return list, nil
	}
	out := list[:0]
	for _, b := range list {
		if b.Status == *status {
			out = append(out, b)
		}
	}
	return out, nil
}

// Rooms lists the catalog for schedule pickers.
func (s *Service) Rooms(ctx context.Context) ([]room.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// auditError marks a failed audit append so it is never mistaken for a
// caller error further up.
type auditError struct{ err error }

func (e *auditError) Error() string { return "append audit entry: " + e.err.Error() }
func (e *auditError) Unwrap() error { return e.err }

func appendAudit(ctx context.Context, tx Tx, e audit.Entry) error {
	if err := tx.AppendAudit(ctx, e); err != nil {
		return &auditError{err: err}
	}
	return nil
}

// fail passes domain errors through and turns everything else into ErrInternal.
func (s *Service) fail(op string, err error) error {
	var ae *auditError
	if !errors.As(err, &ae) {
		if booking.KindOf(err) != "" || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}
	s.logger.Error("booking operation failed", "op", op, "err", err)
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}
