package qrcode

import "errors"

var (
	ErrEmptyContent   = errors.New("content cannot be empty")
	ErrGenerateFailed = errors.New("failed to generate QR code")
)
