package qrcode

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 256
	MaxSize     = 1024
)

func encode(content string) (*skipqrcode.QRCode, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	// Enrollment URIs are short; medium recovery keeps the symbol small
	// enough to scan from a terminal.
	q, err := skipqrcode.New(content, skipqrcode.Medium)
	if err != nil {
		return nil, errors.Join(ErrGenerateFailed, err)
	}
	return q, nil
}

// PNG renders content as a square PNG image. A non-positive size falls back to
// DefaultSize and sizes above MaxSize are clamped.
func PNG(content string, size int) ([]byte, error) {
	q, err := encode(content)
	if err != nil {
		return nil, err
	}
	switch {
	case size <= 0:
		size = DefaultSize
	case size > MaxSize:
		size = MaxSize
	}
	img, err := q.PNG(size)
	if err != nil {
		return nil, errors.Join(ErrGenerateFailed, err)
	}
	return img, nil
}

// DataURI returns the PNG as a data:image/png;base64 URI.
func DataURI(content string, size int) (string, error) {
	img, err := PNG(content, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(img), nil
}

// Terminal renders content with half-block characters for display in a
// terminal.
func Terminal(content string) (string, error) {
	q, err := encode(content)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}
