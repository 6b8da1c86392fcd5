// Package apperr defines the error taxonomy surfaced by the chat and LinkU cores.
// Every error carries a coarse Kind, used for transport mapping, and a fine
// grained Code that callers match with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation       Kind = "VALIDATION"
	KindNotAuthenticated Kind = "NOT_AUTHENTICATED"
	KindNotAuthorized    Kind = "NOT_AUTHORIZED"
	KindNotFound         Kind = "NOT_FOUND"
	KindConflict         Kind = "CONFLICT"
	KindTransient        Kind = "TRANSIENT"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches by Code so that wrapped or re-messaged errors still compare equal
// to their sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Cause = cause
	return &cp
}

func Validation(code, format string, args ...any) *Error {
	return New(KindValidation, code, fmt.Sprintf(format, args...))
}

func Transient(cause error) *Error {
	return &Error{Kind: KindTransient, Code: "STORAGE_UNAVAILABLE", Message: "storage failure, retry later", Cause: cause}
}

var (
	ErrSelfChat          = New(KindValidation, "SELF_CHAT", "cannot open a chat with yourself")
	ErrSelfSend          = New(KindValidation, "SELF_SEND", "sender and receiver must differ")
	ErrInvalidInput      = New(KindValidation, "INVALID_INPUT", "invalid input")
	ErrNotAuthenticated  = New(KindNotAuthenticated, "NOT_AUTHENTICATED", "missing or invalid credential")
	ErrNotParticipant    = New(KindNotAuthorized, "NOT_PARTICIPANT", "user is not a participant of this room")
	ErrForbidden         = New(KindNotAuthorized, "FORBIDDEN", "action not allowed for this user")
	ErrRoomNotFound      = New(KindNotFound, "ROOM_NOT_FOUND", "room not found")
	ErrLinkuNotFound     = New(KindNotFound, "LINKU_NOT_FOUND", "linku connection not found")
	ErrReviewNotFound    = New(KindNotFound, "REVIEW_NOT_FOUND", "review not found")
	ErrUserNotFound      = New(KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrPostNotFound      = New(KindNotFound, "POST_NOT_FOUND", "talent post not found")
	ErrAlreadyReviewed   = New(KindConflict, "ALREADY_REVIEWED", "review already written for this linku")
	ErrNoActiveLinku     = New(KindConflict, "NO_ACTIVE_LINKU", "no accepted linku in this room")
	ErrInvalidTransition = New(KindConflict, "INVALID_TRANSITION", "linku is not in a state that allows this action")
)

// KindOf reports the Kind of err, TRANSIENT for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// CodeOf reports the Code of err, or "INTERNAL" for unclassified errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL"
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotAuthenticated:
		return http.StatusUnauthorized
	case KindNotAuthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}
