package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

const (
	// DefaultBits is the modulus size used for the local key pair.
	DefaultBits = 4096

	privateKeyMode = 0o600
	publicKeyMode  = 0o644

	pemTypePrivate = "RSA PRIVATE KEY"
	pemTypePublic  = "PUBLIC KEY"
)

// Generate creates a fresh RSA key pair and persists both halves.
//
// Existing key material is never overwritten: if either file is present
// ErrKeyExists is returned. The private key file is created exclusively, so of
// two concurrent callers only the first one succeeds.
func Generate(privPath, pubPath string, bits int) (*rsa.PrivateKey, error) {
	if bits <= 0 {
		bits = DefaultBits
	}

	for _, p := range []string{privPath, pubPath} {
		if _, err := os.Stat(p); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrKeyExists, p)
		}
	}

	// rsa.GenerateKey always uses the public exponent 65537.
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, errors.Join(ErrKeyGeneration, err)
	}

	if err := writeExclusive(privPath, EncodePrivateKeyPEM(key), privateKeyMode); err != nil {
		return nil, err
	}

	pubPEM, err := EncodePublicKeyPEM(&key.PublicKey)
	if err == nil {
		err = writeExclusive(pubPath, pubPEM, publicKeyMode)
	}
	if err != nil {
		_ = os.Remove(privPath)
		return nil, err
	}

	return key, nil
}

// LoadPrivateKey reads the local private key from a PEM file.
// Both PKCS#1 and PKCS#8 encodings are accepted.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrKeyFormatInvalid, path, err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s: not an RSA key", ErrKeyFormatInvalid, path)
	}
	return key, nil
}

// LoadPublicKey reads an RSA public key in SubjectPublicKeyInfo or PKCS#1 form.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}

	if parsed, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s: not an RSA key", ErrKeyFormatInvalid, path)
		}
		return key, nil
	}

	key, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrKeyFormatInvalid, path, err)
	}
	return key, nil
}

// LoadCounterpartyPublicKey reads the remote party's public key.
// It fails the same way LoadPublicKey does but names the counterparty in the error.
func LoadCounterpartyPublicKey(path string) (*rsa.PublicKey, error) {
	key, err := LoadPublicKey(path)
	if err != nil {
		return nil, fmt.Errorf("counterparty public key: %w", err)
	}
	return key, nil
}

// EncodePrivateKeyPEM returns the unencrypted PKCS#1 PEM form of key.
func EncodePrivateKeyPEM(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  pemTypePrivate,
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}

// EncodePublicKeyPEM returns the SubjectPublicKeyInfo PEM form of key.
func EncodePublicKeyPEM(key *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, errors.Join(ErrKeyFormatInvalid, err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePublic, Bytes: der}), nil
}

// Fingerprint returns the OpenSSH style SHA256 fingerprint of key.
func Fingerprint(key *rsa.PublicKey) (string, error) {
	pk, err := ssh.NewPublicKey(key)
	if err != nil {
		return "", errors.Join(ErrKeyFormatInvalid, err)
	}
	return ssh.FingerprintSHA256(pk), nil
}

func readPEM(path string) (*pem.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: %s: no PEM block", ErrKeyFormatInvalid, path)
	}
	return block, nil
}

func writeExclusive(path string, data []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Join(ErrKeyWrite, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrKeyExists, path)
		}
		return errors.Join(ErrKeyWrite, err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return errors.Join(ErrKeyWrite, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return errors.Join(ErrKeyWrite, err)
	}

	// The umask may have narrowed the mode; the private key must end up at exactly 0600.
	if err := os.Chmod(path, mode); err != nil {
		_ = os.Remove(path)
		return errors.Join(ErrKeyWrite, err)
	}
	return nil
}
