package handler

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// jsonResponse implements Response for JSON rendering
type jsonResponse struct {
	status int
	body   any
}

func (j jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSONOption configures JSON response
type JSONOption func(*jsonResponse)

// WithJSONStatus sets custom HTTP status code
func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) {
		r.status = status
	}
}

// JSON renders v as the response body without any envelope.
//
//	return handler.JSON(map[string]string{"status": "ok"})
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{
		status: http.StatusOK,
		body:   v,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSONError renders err as {"detail": "..."}.
// An HTTPError anywhere in the chain provides the status and detail; any other
// error becomes a 500 with a generic detail so internal messages never leak.
func JSONError(err error, opts ...JSONOption) Response {
	httpErr := ErrInternalServer
	var target HTTPError
	if errors.As(err, &target) {
		httpErr = target
	}

	r := &jsonResponse{
		status: httpErr.Code,
		body:   ErrorBody{Detail: httpErr.Detail},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
