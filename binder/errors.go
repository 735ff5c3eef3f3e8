package binder

import "errors"

// Common binding errors
var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrInvalidJSON          = errors.New("invalid JSON")
	ErrInvalidQuery         = errors.New("invalid query parameter")
	ErrMissingContentType   = errors.New("missing content type")

	// ErrBinderNotApplicable tells the caller the request carries nothing for
	// this binder to read, so it should be skipped rather than failed.
	ErrBinderNotApplicable = errors.New("binder not applicable")
)
