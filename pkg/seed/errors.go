package seed

import "errors"

var (
	// ErrEncodingInvalid covers malformed Base64 input and non UTF-8 plaintext.
	ErrEncodingInvalid = errors.New("invalid encoding")
	// ErrDecryptionFailed is deliberately opaque: it never says which OAEP check failed.
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrSeedMalformed    = errors.New("seed must be 64 hexadecimal characters")
	ErrSeedNotFound     = errors.New("seed not decrypted yet")
	ErrMissingKey       = errors.New("missing RSA key")
	ErrStoreWrite       = errors.New("failed to persist seed")
)
