package handler

import (
	"errors"
	"net/http"
)

var (
	// ErrNilResponse indicates a handler returned nil instead of a Response
	ErrNilResponse = errors.New("handler returned nil response")
)

// HTTPError carries the status code and client-facing detail for an error.
// Detail is written to the response body as-is, so it must never contain
// secrets or internal error text.
type HTTPError struct {
	Code   int
	Detail string
}

func (e HTTPError) Error() string {
	return e.Detail
}

// NewHTTPError creates an HTTPError. An empty detail falls back to the
// standard status text.
func NewHTTPError(code int, detail string) HTTPError {
	if detail == "" {
		detail = http.StatusText(code)
	}
	return HTTPError{Code: code, Detail: detail}
}

// Common client-facing errors.
var (
	ErrBadRequest         = NewHTTPError(http.StatusBadRequest, "")
	ErrNotFound           = NewHTTPError(http.StatusNotFound, "")
	ErrTooManyRequests    = NewHTTPError(http.StatusTooManyRequests, "Too many requests")
	ErrInternalServer     = NewHTTPError(http.StatusInternalServerError, "")
	ErrServiceUnavailable = NewHTTPError(http.StatusServiceUnavailable, "")
)
