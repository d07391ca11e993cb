package booking

import (
	"fmt"
	"time"

	"roombooking/internal/audit"
	"roombooking/internal/claims"
)

// NewPending builds the initial record of an admitted request.
func NewPending(id string, req Request, purpose string) *Booking {
	requesterID := req.RequesterID
	requesterName := ""
	if requesterID == "" || requesterID == req.Principal.UserID {
		requesterID = req.Principal.UserID
		requesterName = req.Principal.DisplayName
	}
	now := req.Now.UTC()
	return &Booking{
		ID:            id,
		RoomID:        req.RoomID,
		RequesterID:   requesterID,
		RequesterName: requesterName,
		StartTime:     req.Start.UTC(),
		EndTime:       req.End.UTC(),
		Purpose:       purpose,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Transition moves b to the target status on behalf of actor. It is the only
// code that writes Booking.Status after creation. On success b is updated in
// place and the audit action to record is returned; on failure b is untouched.
func Transition(b *Booking, to Status, actor claims.Principal, notes string, now time.Time) (audit.Action, error) {
	var action audit.Action
	decisionNotes := ""

	switch to {
	case StatusApproved:
		if !actor.IsApprover() {
			return "", Forbidden("only approvers may approve bookings")
		}
		action = audit.ActionApproved
	case StatusRejected:
		if !actor.IsApprover() {
			return "", Forbidden("only approvers may reject bookings")
		}
		if notes == "" {
			return "", NotesRequired("a reason is required to reject a booking")
		}
		action = audit.ActionRejected
		decisionNotes = notes
	case StatusCancelled:
		if !actor.IsApprover() && actor.UserID != b.RequesterID {
			return "", Forbidden("only the requester or an approver may cancel this booking")
		}
		if notes == "" {
			notes = fmt.Sprintf("Cancelled by %s", roleLabel(actor))
		}
		action = audit.ActionCancelled
		decisionNotes = notes
	default:
		return "", InvalidTransition("cannot move a booking to %s", to)
	}

	if !CanTransition(b.Status, to) {
		return "", InvalidTransition("cannot move booking from %s to %s", b.Status, to)
	}

	b.Status = to
	b.DecisionNotes = decisionNotes
	b.UpdatedAt = now.UTC()
	return action, nil
}

func roleLabel(p claims.Principal) string {
	if p.Label != "" {
		return p.Label
	}
	return string(p.Role)
}
