package handler

import "net/http"

type failResponse struct {
	err error
}

func (f failResponse) Render(http.ResponseWriter, *http.Request) error {
	return f.err
}

// Fail hands err to the ErrorHandler configured for Wrap instead of writing
// a response itself, so error mapping and logging live in one place.
func Fail(err error) Response {
	if err == nil {
		err = ErrInternalServer
	}
	return failResponse{err: err}
}
