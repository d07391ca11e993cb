// Package audit is the append-only ledger of booking state changes.
package audit

import (
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionCreated   Action = "Created"
	ActionApproved  Action = "Approved"
	ActionRejected  Action = "Rejected"
	ActionCancelled Action = "Cancelled"
)

// Entry records one transition. Entries are never mutated once appended.
type Entry struct {
	ID        string    `json:"id"`
	BookingID string    `json:"bookingId"`
	RoomID    string    `json:"roomId"`
	ActorID   string    `json:"actorId"`
	Action    Action    `json:"action"`
	Notes     string    `json:"notes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntry(bookingID, roomID, actorID string, action Action, notes string, at time.Time) Entry {
	return Entry{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		RoomID:    roomID,
		ActorID:   actorID,
		Action:    action,
		Notes:     notes,
		Timestamp: at.UTC(),
	}
}
