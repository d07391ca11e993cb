// Package availability keeps, per room, the time windows held by active
// bookings and answers overlap queries against them.
package availability

import (
	"sort"
	"sync"
	"time"
)

// Interval is a half-open window [Start, End) held by one booking.
type Interval struct {
	BookingID string
	Start     time.Time
	End       time.Time
}

// Index maps rooms to their active intervals. Rooms are independent: each has
// its own lock and no operation touches more than one room.
type Index struct {
	rooms sync.Map // map[string]*roomIntervals
}

func NewIndex() *Index { return &Index{} }

type roomIntervals struct {
	mu sync.RWMutex
	// items sorted by Start, then BookingID.
	items []Interval
	// maxEnd[i] is the latest End among items[0..i].
	maxEnd []time.Time
	byID   map[string]time.Time
}

func (x *Index) room(roomID string, create bool) *roomIntervals {
	if v, ok := x.rooms.Load(roomID); ok {
		return v.(*roomIntervals)
	}
	if !create {
		return nil
	}
	v, _ := x.rooms.LoadOrStore(roomID, &roomIntervals{byID: make(map[string]time.Time)})
	return v.(*roomIntervals)
}

// Query reports whether any active interval in the room overlaps [start, end).
func (x *Index) Query(roomID string, start, end time.Time) bool {
	return len(x.conflicts(roomID, start, end, 1)) > 0
}

// Conflicts returns the intervals in the room overlapping [start, end),
// latest start first.
func (x *Index) Conflicts(roomID string, start, end time.Time) []Interval {
	return x.conflicts(roomID, start, end, -1)
}

func (x *Index) conflicts(roomID string, start, end time.Time, limit int) []Interval {
	r := x.room(roomID, false)
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Candidates start before end; walk them backwards while some earlier
	// interval could still reach past start.
	i := sort.Search(len(r.items), func(i int) bool { return !r.items[i].Start.Before(end) })
	var out []Interval
	for j := i - 1; j >= 0 && r.maxEnd[j].After(start); j-- {
		if r.items[j].End.After(start) {
			out = append(out, r.items[j])
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

// Insert registers an active interval. Re-inserting a booking id replaces
// its previous interval.
func (x *Index) Insert(roomID, bookingID string, start, end time.Time) {
	r := x.room(roomID, true)
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[bookingID]; ok {
		r.removeLocked(bookingID)
	}
	iv := Interval{BookingID: bookingID, Start: start, End: end}
	i := sort.Search(len(r.items), func(i int) bool { return less(iv, r.items[i]) })
	r.items = append(r.items, Interval{})
	copy(r.items[i+1:], r.items[i:])
	r.items[i] = iv
	r.byID[bookingID] = start
	r.rebuildFrom(i)
}

// Remove retracts the interval of bookingID. It reports whether one was held.
func (x *Index) Remove(roomID, bookingID string) bool {
	r := x.room(roomID, false)
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(bookingID)
}

// Intervals returns a copy of the room's intervals ordered by start.
func (x *Index) Intervals(roomID string) []Interval {
	r := x.room(roomID, false)
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Interval, len(r.items))
	copy(out, r.items)
	return out
}

// Len is the number of intervals held for the room.
func (x *Index) Len(roomID string) int {
	r := x.room(roomID, false)
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *roomIntervals) removeLocked(bookingID string) bool {
	start, ok := r.byID[bookingID]
	if !ok {
		return false
	}
	key := Interval{BookingID: bookingID, Start: start}
	i := sort.Search(len(r.items), func(i int) bool { return !less(r.items[i], key) })
	if i >= len(r.items) || r.items[i].BookingID != bookingID {
		return false
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	delete(r.byID, bookingID)
	r.rebuildFrom(i)
	return true
}

func (r *roomIntervals) rebuildFrom(i int) {
	if cap(r.maxEnd) < len(r.items) {
		grown := make([]time.Time, len(r.items), 2*len(r.items))
		copy(grown, r.maxEnd)
		r.maxEnd = grown
	}
	r.maxEnd = r.maxEnd[:len(r.items)]
	for j := i; j < len(r.items); j++ {
		m := r.items[j].End
		if j > 0 && r.maxEnd[j-1].After(m) {
			m = r.maxEnd[j-1]
		}
		r.maxEnd[j] = m
	}
}

func less(a, b Interval) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	return a.BookingID < b.BookingID
}
