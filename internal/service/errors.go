package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
	ErrBusiness   = errors.New("business rule violated")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)

// Error is a domain failure of a known kind with a caller-facing message.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

func BadRequest(format string, args ...any) error {
	return newError(ErrBadRequest, format, args...)
}

func Business(format string, args ...any) error {
	return newError(ErrBusiness, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newError(ErrForbidden, format, args...)
}

func Conflict(format string, args ...any) error {
	return newError(ErrConflict, format, args...)
}

// Kind returns the kind of err, or nil when err is not a domain error.
func Kind(err error) error {
	for _, kind := range []error{ErrNotFound, ErrBadRequest, ErrBusiness, ErrForbidden, ErrConflict} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindName is a short label for the kind of err, used in logs and metrics.
func KindName(err error) string {
	switch Kind(err) {
	case ErrNotFound:
		return "not_found"
	case ErrBadRequest:
		return "bad_request"
	case ErrBusiness:
		return "business"
	case ErrForbidden:
		return "forbidden"
	case ErrConflict:
		return "conflict"
	}
	return "internal"
}

// NotFoundOr translates gorm.ErrRecordNotFound into a NotFound error naming
// what was looked up and passes any other error through.
func NotFoundOr(err error, what string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("%s %v not found", what, id)
	}
	return err
}
