package api

import (
	"context"

	"roombooking/internal/claims"
)

type ctxKey string

const ctxKeyRequestID ctxKey = "request_id"

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// PrincipalFromContext returns the caller attached by ClaimsAuth. The zero
// Principal is returned for anonymous requests.
func PrincipalFromContext(ctx context.Context) claims.Principal {
	p, _ := claims.FromContext(ctx)
	return p
}
