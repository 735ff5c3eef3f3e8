package twofa

import "errors"

var (
	ErrEncryptedSeedMissing = errors.New("encrypted seed not provided and no encrypted seed file")
	ErrSeedDecryption       = errors.New("seed decryption failed")
	ErrCodeMissing          = errors.New("missing code")
	ErrEnrollment           = errors.New("failed to build enrollment")
)
