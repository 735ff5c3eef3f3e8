package seed

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"unicode/utf8"
)

// HexLength is the length of a canonical seed: 32 bytes, hex encoded.
const HexLength = 64

// Seed is a validated shared secret in its canonical lowercase hex form.
// The only way to obtain a non-empty Seed is through Validate.
type Seed string

// String returns the canonical hex representation.
func (s Seed) String() string { return string(s) }

// Bytes returns the raw 32 secret bytes.
func (s Seed) Bytes() []byte {
	b, _ := hex.DecodeString(string(s))
	return b
}

// Validate normalizes candidate and checks that it is a 64 character hex string.
// Surrounding whitespace is ignored and upper case digits are folded to lower case.
func Validate(candidate string) (Seed, error) {
	normalized := strings.TrimSpace(candidate)
	if len(normalized) != HexLength {
		return "", ErrSeedMalformed
	}
	for i := 0; i < len(normalized); i++ {
		if !isHexDigit(normalized[i]) {
			return "", ErrSeedMalformed
		}
	}
	return Seed(strings.ToLower(normalized)), nil
}

// Decrypt decodes the Base64 ciphertext and decrypts it with RSA-OAEP.
// SHA-256 is used both as the OAEP hash and for MGF1; the label is empty.
func Decrypt(key *rsa.PrivateKey, ciphertextB64 string) ([]byte, error) {
	if key == nil {
		return nil, ErrMissingKey
	}

	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertextB64))
	if err != nil {
		return nil, errors.Join(ErrEncodingInvalid, err)
	}

	plaintext, err := rsa.DecryptOAEP(sha256.New(), nil, key, ciphertext, nil)
	if err != nil {
		// The underlying error is dropped on purpose.
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// Encrypt is the inverse of Decrypt and returns Base64 encoded ciphertext.
func Encrypt(key *rsa.PublicKey, plaintext []byte) (string, error) {
	if key == nil {
		return "", ErrMissingKey
	}

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, key, plaintext, nil)
	if err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Open turns an encrypted seed into a validated Seed: decrypt, require UTF-8, validate.
func Open(key *rsa.PrivateKey, ciphertextB64 string) (Seed, error) {
	plaintext, err := Decrypt(key, ciphertextB64)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plaintext) {
		return "", errors.Join(ErrEncodingInvalid, errors.New("plaintext is not valid UTF-8"))
	}
	return Validate(string(plaintext))
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
