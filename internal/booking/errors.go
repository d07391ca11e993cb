package booking

import (
	"errors"
	"fmt"
)

// Kind names exactly one cause of failure.
type Kind string

const (
	KindPastBooking       Kind = "PAST_BOOKING"
	KindInvalidInterval   Kind = "INVALID_INTERVAL"
	KindRoomUnavailable   Kind = "ROOM_UNAVAILABLE"
	KindForbidden         Kind = "FORBIDDEN"
	KindConflict          Kind = "CONFLICT"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindNotFound          Kind = "NOT_FOUND"
	KindNotesRequired     Kind = "NOTES_REQUIRED"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind, so callers can compare against the
// sentinels below regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrPastBooking       = &Error{Kind: KindPastBooking}
	ErrInvalidInterval   = &Error{Kind: KindInvalidInterval}
	ErrRoomUnavailable   = &Error{Kind: KindRoomUnavailable}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrNotesRequired     = &Error{Kind: KindNotesRequired}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func PastBooking(format string, args ...any) error { return newError(KindPastBooking, format, args...) }

func InvalidInterval(format string, args ...any) error {
	return newError(KindInvalidInterval, format, args...)
}

func RoomUnavailable(format string, args ...any) error {
	return newError(KindRoomUnavailable, format, args...)
}

func Forbidden(format string, args ...any) error { return newError(KindForbidden, format, args...) }

func Conflict(format string, args ...any) error { return newError(KindConflict, format, args...) }

func InvalidTransition(format string, args ...any) error {
	return newError(KindInvalidTransition, format, args...)
}

func NotFound(format string, args ...any) error { return newError(KindNotFound, format, args...) }

func NotesRequired(format string, args ...any) error {
	return newError(KindNotesRequired, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
