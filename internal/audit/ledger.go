package audit

import "slices"

// Ledger is an in-memory append-only sequence of entries indexed by room and
// by booking. It is not safe for concurrent use; owners guard it.
type Ledger struct {
	entries   []Entry
	byRoom    map[string][]int
	byBooking map[string][]int
}

func NewLedger() *Ledger {
	return &Ledger{
		byRoom:    make(map[string][]int),
		byBooking: make(map[string][]int),
	}
}

func (l *Ledger) Append(e Entry) {
	i := len(l.entries)
	l.entries = append(l.entries, e)
	l.byRoom[e.RoomID] = append(l.byRoom[e.RoomID], i)
	l.byBooking[e.BookingID] = append(l.byBooking[e.BookingID], i)
}

func (l *Ledger) ByRoom(roomID string) []Entry { return l.collect(l.byRoom[roomID]) }

func (l *Ledger) ByBooking(bookingID string) []Entry { return l.collect(l.byBooking[bookingID]) }

// Purge drops every entry of bookingID. Only the administrative purge path
// calls this; slots are tombstoned so positions held by the indexes stay valid.
func (l *Ledger) Purge(bookingID string) int {
	idx := l.byBooking[bookingID]
	if len(idx) == 0 {
		return 0
	}
	for _, i := range idx {
		roomID := l.entries[i].RoomID
		l.byRoom[roomID] = slices.DeleteFunc(l.byRoom[roomID], func(j int) bool { return j == i })
		l.entries[i] = Entry{}
	}
	delete(l.byBooking, bookingID)
	return len(idx)
}

func (l *Ledger) collect(idx []int) []Entry {
	out := make([]Entry, 0, len(idx))
	for _, i := range idx {
		out = append(out, l.entries[i])
	}
	return out
}
