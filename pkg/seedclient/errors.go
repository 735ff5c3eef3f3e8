package seedclient

import "errors"

var (
	ErrInvalidEndpoint  = errors.New("invalid seed endpoint")
	ErrInvalidRequest   = errors.New("invalid seed request")
	ErrRequestFailed    = errors.New("seed request failed")
	ErrPermanentFailure = errors.New("seed endpoint rejected the request")
	ErrEmptySeed        = errors.New("encrypted seed missing in response")
	ErrInvalidResponse  = errors.New("invalid seed response")
)
