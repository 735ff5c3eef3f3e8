package totp

import "errors"

var (
	ErrMissingAccountName = errors.New("missing account name")
	ErrMissingIssuer      = errors.New("missing issuer")
)
