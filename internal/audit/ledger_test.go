package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_IndexesByRoomAndBooking(t *testing.T) {
	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	l := NewLedger()
	l.Append(NewEntry("b1", "R101", "u1", ActionCreated, "", now))
	l.Append(NewEntry("b2", "R102", "u2", ActionCreated, "", now))
	l.Append(NewEntry("b1", "R101", "a1", ActionApproved, "", now.Add(time.Minute)))

	r101 := l.ByRoom("R101")
	require.Len(t, r101, 2)
	assert.Equal(t, ActionCreated, r101[0].Action)
	assert.Equal(t, ActionApproved, r101[1].Action)

	assert.Len(t, l.ByBooking("b2"), 1)
	assert.Empty(t, l.ByBooking("missing"))
}

func TestLedger_Purge(t *testing.T) {
	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	l := NewLedger()
	l.Append(NewEntry("b1", "R101", "u1", ActionCreated, "", now))
	l.Append(NewEntry("b2", "R101", "u2", ActionCreated, "", now))

	assert.Equal(t, 1, l.Purge("b1"))
	require.Len(t, l.ByRoom("R101"), 1)
	assert.Equal(t, "b2", l.ByRoom("R101")[0].BookingID)
	assert.Empty(t, l.ByBooking("b1"))

	// Later appends are indexed past the tombstoned slot.
	l.Append(NewEntry("b2", "R101", "a1", ActionApproved, "", now.Add(time.Minute)))
	assert.Len(t, l.ByBooking("b2"), 2)
	assert.Equal(t, 0, l.Purge("unknown"))
}
