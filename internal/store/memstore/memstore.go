// Package memstore is an in-process booking store. Transactions stage their
// writes and apply them in one step on commit, so readers never see half of
// a transaction.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"roombooking/internal/audit"
	"roombooking/internal/booking"
	"roombooking/internal/scheduling"
)

type Store struct {
	mu       sync.RWMutex
	bookings map[string]booking.Booking
	ledger   *audit.Ledger

	roomLocks sync.Map // map[string]*sync.Mutex
}

var _ scheduling.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		bookings: make(map[string]booking.Booking),
		ledger:   audit.NewLedger(),
	}
}

func (s *Store) roomLock(roomID string) *sync.Mutex {
	v, _ := s.roomLocks.LoadOrStore(roomID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (s *Store) WithRoomTx(ctx context.Context, roomID string, fn func(tx scheduling.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mu := s.roomLock(roomID)
	mu.Lock()
	defer mu.Unlock()

	t := &tx{
		store:   s,
		roomID:  roomID,
		staged:  make(map[string]booking.Booking),
		deleted: make(map[string]bool),
	}
	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.commit(t)
	return nil
}

func (s *Store) commit(t *tx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range t.staged {
		s.bookings[id] = b
	}
	for id := range t.deleted {
		delete(s.bookings, id)
	}
	for _, e := range t.entries {
		s.ledger.Append(e)
	}
	for _, id := range t.purged {
		s.ledger.Purge(id)
	}
}

func (s *Store) Booking(_ context.Context, id string) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, booking.NotFound("booking %s not found", id)
	}
	return &b, nil
}

func (s *Store) BookingsByRoom(_ context.Context, roomID string) ([]booking.Booking, error) {
	out := s.filter(func(b booking.Booking) bool { return b.RoomID == roomID })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) BookingsByRequester(_ context.Context, requesterID string) ([]booking.Booking, error) {
	out := s.filter(func(b booking.Booking) bool { return b.RequesterID == requesterID })
	newestFirst(out)
	return out, nil
}

func (s *Store) AllBookings(_ context.Context) ([]booking.Booking, error) {
	out := s.filter(func(booking.Booking) bool { return true })
	newestFirst(out)
	return out, nil
}

func (s *Store) ActiveBookings(_ context.Context) ([]booking.Booking, error) {
	return s.filter(booking.Booking.Active), nil
}

func (s *Store) AuditByRoom(_ context.Context, roomID string) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.ByRoom(roomID), nil
}

func (s *Store) AuditByBooking(_ context.Context, bookingID string) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.ByBooking(bookingID), nil
}

func (s *Store) filter(keep func(booking.Booking) bool) []booking.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]booking.Booking, 0)
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

func newestFirst(list []booking.Booking) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
}

// tx reads through its own staged writes to the committed state.
type tx struct {
	store   *Store
	roomID  string
	staged  map[string]booking.Booking
	deleted map[string]bool
	entries []audit.Entry
	purged  []string
}

func (t *tx) lookup(id string) (booking.Booking, bool) {
	if t.deleted[id] {
		return booking.Booking{}, false
	}
	if b, ok := t.staged[id]; ok {
		return b, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	b, ok := t.store.bookings[id]
	return b, ok
}

func (t *tx) Booking(_ context.Context, id string) (*booking.Booking, error) {
	b, ok := t.lookup(id)
	if !ok {
		return nil, booking.NotFound("booking %s not found", id)
	}
	return &b, nil
}

func (t *tx) HasOverlap(_ context.Context, roomID string, start, end time.Time) (bool, error) {
	hit := func(b booking.Booking) bool {
		return b.RoomID == roomID && b.Active() && booking.Overlaps(b.StartTime, b.EndTime, start, end)
	}
	for _, b := range t.staged {
		if hit(b) {
			return true, nil
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for id, b := range t.store.bookings {
		if _, shadowed := t.staged[id]; shadowed || t.deleted[id] {
			continue
		}
		if hit(b) {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) InsertBooking(_ context.Context, b *booking.Booking) error {
	if _, exists := t.lookup(b.ID); exists {
		return booking.Conflict("booking %s already exists", b.ID)
	}
	t.staged[b.ID] = *b
	return nil
}

func (t *tx) UpdateBooking(_ context.Context, b *booking.Booking) error {
	if _, ok := t.lookup(b.ID); !ok {
		return booking.NotFound("booking %s not found", b.ID)
	}
	t.staged[b.ID] = *b
	return nil
}

func (t *tx) DeleteBooking(_ context.Context, id string) error {
	if _, ok := t.lookup(id); !ok {
		return booking.NotFound("booking %s not found", id)
	}
	delete(t.staged, id)
	t.deleted[id] = true
	return nil
}

func (t *tx) AppendAudit(_ context.Context, e audit.Entry) error {
	t.entries = append(t.entries, e)
	return nil
}

func (t *tx) PurgeAudit(_ context.Context, bookingID string) error {
	t.purged = append(t.purged, bookingID)
	return nil
}
