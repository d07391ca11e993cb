package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"roombooking/internal/booking"
)

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Error: APIError{Code: code, Message: message},
	})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusForKind maps a booking error kind to its HTTP status.
func StatusForKind(k booking.Kind) int {
	switch k {
	case booking.KindPastBooking, booking.KindInvalidInterval, booking.KindNotesRequired:
		return http.StatusBadRequest
	case booking.KindForbidden:
		return http.StatusForbidden
	case booking.KindNotFound:
		return http.StatusNotFound
	case booking.KindConflict, booking.KindInvalidTransition:
		return http.StatusConflict
	case booking.KindRoomUnavailable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteDomainError renders err with its kind as the error code. Anything that
// is not a booking error is logged and reported as INTERNAL without detail.
func WriteDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var be *booking.Error
	if errors.As(err, &be) {
		WriteError(w, StatusForKind(be.Kind), string(be.Kind), be.Message)
		return
	}
	if ctxErr := r.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		// Client went away; nothing useful to send.
		WriteError(w, http.StatusServiceUnavailable, "CANCELLED", "request cancelled")
		return
	}
	if logger != nil {
		logger.Error("request failed",
			"method", r.Method, "path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()), "err", err)
	}
	WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}
