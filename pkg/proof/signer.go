package proof

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

var pssOptions = &rsa.PSSOptions{
	// Auto selects the largest salt the modulus allows when signing.
	SaltLength: rsa.PSSSaltLengthAuto,
	Hash:       crypto.SHA256,
}

// Sign produces an RSA-PSS signature over the SHA-256 digest of commitID.
func Sign(key *rsa.PrivateKey, commitID string) ([]byte, error) {
	if key == nil {
		return nil, ErrMissingKey
	}
	if commitID == "" {
		return nil, ErrEmptyCommitID
	}

	digest := sha256.Sum256([]byte(commitID))
	sig, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest[:], pssOptions)
	if err != nil {
		return nil, errors.Join(ErrSigningFailed, err)
	}
	return sig, nil
}

// VerifySignature checks a signature produced by Sign.
func VerifySignature(key *rsa.PublicKey, commitID string, sig []byte) error {
	if key == nil {
		return ErrMissingKey
	}

	digest := sha256.Sum256([]byte(commitID))
	if err := rsa.VerifyPSS(key, crypto.SHA256, digest[:], sig, pssOptions); err != nil {
		return errors.Join(ErrSignatureInvalid, err)
	}
	return nil
}

// EncryptForCounterparty encrypts sig with RSA-OAEP (SHA-256 digest and MGF1)
// under the counterparty key and returns it Base64 encoded.
//
// OAEP can carry at most k-66 bytes for a k byte modulus, so the counterparty
// modulus must be larger than the local one by at least 66 bytes.
func EncryptForCounterparty(key *rsa.PublicKey, sig []byte) (string, error) {
	if key == nil {
		return "", ErrMissingKey
	}

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, key, sig, nil)
	if err != nil {
		if errors.Is(err, rsa.ErrMessageTooLong) {
			err = fmt.Errorf("%w: %d byte signature, counterparty key accepts at most %d",
				err, len(sig), key.Size()-2*sha256.Size-2)
		}
		return "", errors.Join(ErrEncryptionFailed, err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Generate signs commitID, encrypts the signature for the counterparty and
// assembles the bundle. Nothing is written to disk.
func Generate(local *rsa.PrivateKey, counterparty *rsa.PublicKey, commitID string, meta Metadata) (Bundle, error) {
	sig, err := Sign(local, commitID)
	if err != nil {
		return Bundle{}, err
	}

	encrypted, err := EncryptForCounterparty(counterparty, sig)
	if err != nil {
		return Bundle{}, err
	}

	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	return AssembleBundle(commitID, sig, encrypted, meta)
}
