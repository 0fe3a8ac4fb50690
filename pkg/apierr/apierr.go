package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error independently of its HTTP status, so that
// callers can tell apart failures that share a status code.
type Kind string

const (
	KindBadRequest   Kind = "bad_request"
	KindUnauthorized Kind = "unauthorized"
	KindTokenReuse   Kind = "token_reuse"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Error is the single structured error raised by the service layer.
// Message is safe to show to clients; Err is kept for logs only.
type Error struct {
	Status  int
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, kind Kind, msg string, cause error) *Error {
	return &Error{Status: status, Kind: kind, Message: msg, Err: cause}
}

func BadRequest(msg string) *Error {
	return New(http.StatusBadRequest, KindBadRequest, msg, nil)
}

func Unauthorized(msg string, cause error) *Error {
	return New(http.StatusUnauthorized, KindUnauthorized, msg, cause)
}

// TokenReuse is an Unauthorized error raised when a refresh credential does
// not match the one currently stored for its identity.
func TokenReuse(msg string) *Error {
	return New(http.StatusUnauthorized, KindTokenReuse, msg, nil)
}

func NotFound(msg string) *Error {
	return New(http.StatusNotFound, KindNotFound, msg, nil)
}

func Conflict(msg string, cause error) *Error {
	return New(http.StatusConflict, KindConflict, msg, cause)
}

func Internal(msg string, cause error) *Error {
	return New(http.StatusInternalServerError, KindInternal, msg, cause)
}

// From returns err as an *Error, converting unknown errors into a generic 500.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("internal server error", err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
