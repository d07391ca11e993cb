// Package booking holds the reservation record, its lifecycle rules and the
// admission checks run before a request touches shared state.
package booking

import "time"

type Booking struct {
	ID            string    `json:"id"`
	RoomID        string    `json:"roomId"`
	RequesterID   string    `json:"requesterId"`
	RequesterName string    `json:"requesterName,omitempty"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	Purpose       string    `json:"purpose"`
	Status        Status    `json:"status"`
	DecisionNotes string    `json:"decisionNotes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Active reports whether the booking occupies its room's time window.
func (b Booking) Active() bool { return b.Status.Active() }

// Overlaps applies the half-open interval test: [s1,e1) and [s2,e2) intersect
// iff s1 < e2 && s2 < e1. Touching endpoints do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// Duration is the length of the reserved window.
func (b Booking) Duration() time.Duration { return b.EndTime.Sub(b.StartTime) }
