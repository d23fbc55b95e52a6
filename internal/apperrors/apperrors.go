package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of error categories the HTTP layer knows how to map
// to status codes. Services return a tagged *Error instead of leaving the
// middleware to sniff fields of arbitrary error values.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindForbidden
	KindNotFound
	KindDuplicate
	KindTooLarge
	KindRateLimited
)

// Error carries a user-facing message plus an optional wrapped cause.
type Error struct {
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

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindDuplicate, KindTooLarge:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error  { return New(KindValidation, message) }
func Auth(message string) *Error        { return New(KindAuth, message) }
func Forbidden(message string) *Error   { return New(KindForbidden, message) }
func NotFound(message string) *Error    { return New(KindNotFound, message) }
func Duplicate(message string) *Error   { return New(KindDuplicate, message) }
func TooLarge(message string) *Error    { return New(KindTooLarge, message) }
func RateLimited(message string) *Error { return New(KindRateLimited, message) }

func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// As extracts a tagged error from an error chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err is a tagged error of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
