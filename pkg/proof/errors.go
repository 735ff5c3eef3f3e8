package proof

import "errors"

var (
	ErrSigningFailed     = errors.New("failed to sign commit identifier")
	ErrSignatureInvalid  = errors.New("signature verification failed")
	ErrEncryptionFailed  = errors.New("failed to encrypt signature for counterparty")
	ErrIncompleteBundle  = errors.New("proof bundle is incomplete")
	ErrMissingKey        = errors.New("missing RSA key")
	ErrEmptyCommitID     = errors.New("commit identifier is empty")
	ErrWriteFailed       = errors.New("failed to write proof artifacts")
	ErrArchiveInvalid    = errors.New("proof archive is invalid")
	ErrDuplicateArtifact = errors.New("two proof artifacts share a base name")
)
