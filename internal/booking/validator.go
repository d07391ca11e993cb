package booking

import (
	"time"

	"roombooking/internal/claims"
	"roombooking/internal/room"
)

// Request is a proposed reservation as the admission rules see it.
type Request struct {
	Now       time.Time
	Room      *room.Room // nil when the catalog has no such room
	RoomID    string
	Principal claims.Principal
	// RequesterID is who the booking is for; empty means the principal itself.
	RequesterID string
	Start       time.Time
	End         time.Time
}

// Validate applies the admission rules in order; the first failure wins.
// It has no side effects and does not look at other bookings.
func Validate(req Request) error {
	if req.Start.Before(req.Now) {
		return PastBooking("start time %s is in the past", req.Start.UTC().Format(time.RFC3339))
	}
	if !req.Start.Before(req.End) {
		return InvalidInterval("start time must be before end time")
	}
	if err := authorizeSubmit(req.Principal, req.RequesterID); err != nil {
		return err
	}
	if req.Room == nil {
		return NotFound("room %s not found", req.RoomID)
	}
	if !req.Room.IsAvailable {
		return RoomUnavailable("room %s is not available for booking", req.Room.Name)
	}
	return nil
}

func authorizeSubmit(p claims.Principal, requesterID string) error {
	switch {
	case !p.Known():
		return Forbidden("caller has no booking role")
	case p.IsApprover():
		return nil
	case requesterID != "" && requesterID != p.UserID:
		return Forbidden("requesters may only book for themselves")
	default:
		return nil
	}
}
