// Package claims resolves the caller identity carried by a pre-verified bearer
// token into a Principal. It holds no state of its own.
package claims

import (
	"context"
	"strings"
)

type Role string

const (
	// RoleRequester covers students and lecturers.
	RoleRequester Role = "Requester"
	// RoleApprover is the administrative role that decides on bookings.
	RoleApprover Role = "Approver"
)

// Principal is the per-request identity passed explicitly into every
// scheduling call.
type Principal struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	Role        Role   `json:"role"`
	// Label is the role as the identity service named it (e.g. "Mahasiswa", "Dosen", "Admin").
	Label string `json:"roleLabel,omitempty"`
}

func (p Principal) IsApprover() bool { return p.Role == RoleApprover }

func (p Principal) IsRequester() bool { return p.Role == RoleRequester }

// Known reports whether the principal carries an identity and a recognized role.
func (p Principal) Known() bool {
	return p.UserID != "" && (p.Role == RoleRequester || p.Role == RoleApprover)
}

// RoleFromLabel maps identity-service role labels to engine roles.
// Unrecognized labels map to the empty Role.
func RoleFromLabel(label string) Role {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "admin", "administrator", "approver":
		return RoleApprover
	case "mahasiswa", "student", "dosen", "lecturer", "requester":
		return RoleRequester
	default:
		return ""
	}
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
