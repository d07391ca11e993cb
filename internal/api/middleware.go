package api

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"roombooking/internal/claims"
	"roombooking/pkg/config"
)

// ClaimsAuth resolves the caller from `Authorization: Bearer <JWT>`.
//
// In dev, if Authorization is missing, the caller may be given directly with
// X-User-Id, X-User-Name and X-User-Role to keep local testing simple.
func ClaimsAuth(cfg config.Config, verifier claims.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				p, err := verifier.Verify(strings.TrimSpace(authz[7:]), time.Now())
				if err != nil {
					WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer token")
					return
				}
				next.ServeHTTP(w, r.WithContext(claims.WithPrincipal(r.Context(), p)))
				return
			}

			// Dev fallback
			if !cfg.IsProduction() {
				if p, ok := headerPrincipal(r); ok {
					next.ServeHTTP(w, r.WithContext(claims.WithPrincipal(r.Context(), p)))
					return
				}
			}

			WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		})
	}
}

func headerPrincipal(r *http.Request) (claims.Principal, bool) {
	id := strings.TrimSpace(r.Header.Get("X-User-Id"))
	label := strings.TrimSpace(r.Header.Get("X-User-Role"))
	if id == "" || label == "" {
		return claims.Principal{}, false
	}
	p := claims.Principal{
		UserID:      id,
		DisplayName: strings.TrimSpace(r.Header.Get("X-User-Name")),
		Role:        claims.RoleFromLabel(label),
		Label:       label,
	}
	return p, p.Known()
}

// RequireApprover rejects callers without the Approver role.
func RequireApprover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !PrincipalFromContext(r.Context()).IsApprover() {
			WriteError(w, http.StatusForbidden, "FORBIDDEN", "approver role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// RequestID reuses a well-formed X-Request-ID or assigns a fresh UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}

// RequestLogger writes one structured line per request.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", RequestIDFromContext(r.Context()),
			)
		})
	}
}
