package apperror

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies an error for the HTTP boundary.
type Kind string

const (
	KindAuth          Kind = "auth"
	KindValidation    Kind = "validation"
	KindUnprocessable Kind = "unprocessable"
	KindNotFound      Kind = "not_found"
	KindDuplicate     Kind = "duplicate"
	KindInternal      Kind = "internal"
)

// Error is an application error carrying its kind and an optional cause.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// Status maps the kind to an HTTP status code. Duplicates are a
// successful outcome for webhook senders.
func (e *Error) Status() int {
	switch e.Kind {
	case KindAuth:
		return fiber.StatusUnauthorized
	case KindValidation:
		return fiber.StatusBadRequest
	case KindUnprocessable:
		return fiber.StatusUnprocessableEntity
	case KindNotFound:
		return fiber.StatusNotFound
	case KindDuplicate:
		return fiber.StatusOK
	default:
		return fiber.StatusInternalServerError
	}
}

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Auth(message string) *Error { return New(KindAuth, message, nil) }

func Validation(message string, err error) *Error { return New(KindValidation, message, err) }

func Unprocessable(message string, err error) *Error { return New(KindUnprocessable, message, err) }

func NotFound(message string) *Error { return New(KindNotFound, message, nil) }

func Duplicate(message string) *Error { return New(KindDuplicate, message, nil) }

func Internal(message string, err error) *Error { return New(KindInternal, message, err) }

// KindOf returns the kind of the first *Error in err's chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// StatusOf returns the HTTP status for err, 200 for nil.
func StatusOf(err error) int {
	if err == nil {
		return fiber.StatusOK
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status()
	}
	return fiber.StatusInternalServerError
}

// IsTerminal reports whether retrying err cannot succeed.
func IsTerminal(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindUnprocessable, KindNotFound, KindAuth, KindDuplicate:
		return true
	}
	return false
}
