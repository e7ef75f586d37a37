package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an application error with the HTTP status it maps to.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match against the sentinel of the same Code, so
// errors.Is(err, ErrValidation) holds for every validation failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || !sentinels[t] {
		return false
	}
	return t.Code == e.Code
}

func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(http.StatusBadRequest, message, nil)
}

func Upstream(message string, err error) *Error {
	return New(http.StatusBadGateway, message, err)
}

var (
	ErrValidation   = New(http.StatusBadRequest, "Validation error", nil)
	ErrUnauthorized = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrForbidden    = New(http.StatusForbidden, "Forbidden", nil)
	ErrNotFound     = New(http.StatusNotFound, "Not found", nil)
	ErrUpstream     = New(http.StatusBadGateway, "Upstream error", nil)
	ErrInternal     = New(http.StatusInternalServerError, "Internal server error", nil)
)

var sentinels = map[*Error]bool{
	ErrValidation:   true,
	ErrUnauthorized: true,
	ErrForbidden:    true,
	ErrNotFound:     true,
	ErrUpstream:     true,
	ErrInternal:     true,
}

// Status returns the HTTP status and client-facing message for err.
func Status(err error) (int, string) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, e.Message
	}
	return http.StatusInternalServerError, ErrInternal.Message
}
