package keys

import "errors"

var (
	ErrKeyNotFound      = errors.New("key file not found")
	ErrKeyFormatInvalid = errors.New("key file is not a valid PEM encoded RSA key")
	ErrKeyExists        = errors.New("key material already exists")
	ErrKeyGeneration    = errors.New("failed to generate RSA key pair")
	ErrKeyWrite         = errors.New("failed to write key file")
)
