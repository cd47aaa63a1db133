package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a status-coded error. Handlers unwrap it to pick the HTTP status
// and machine-readable code for the response envelope; anything that is not
// an *Error maps to 500 internal.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(err error) *Error {
	return New(http.StatusBadRequest, "validation", err)
}

func Unauthorized(err error) *Error {
	return New(http.StatusUnauthorized, "unauthorized", err)
}

func Forbidden(err error) *Error {
	return New(http.StatusForbidden, "forbidden", err)
}

func NotFound(err error) *Error {
	return New(http.StatusNotFound, "not_found", err)
}

func StateConflict(err error) *Error {
	return New(http.StatusConflict, "state_conflict", err)
}

func AdmissionDenied(err error) *Error {
	return New(http.StatusTooManyRequests, "admission_denied", err)
}

func RateLimited(err error) *Error {
	return New(http.StatusTooManyRequests, "rate_limited", err)
}

func UpstreamTimeout(err error) *Error {
	return New(http.StatusGatewayTimeout, "upstream_timeout", err)
}

func UpstreamFailure(err error) *Error {
	return New(http.StatusBadGateway, "upstream_failure", err)
}

// From returns err as an *Error, or wraps it as a 500 internal error.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return New(http.StatusInternalServerError, "internal", err)
}
