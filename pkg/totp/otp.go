package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/dmitrymomot/pki2fa/pkg/seed"
)

const (
	Digits        = 6      // Standard 6-digit TOTP codes
	Period        = 30     // 30-second validity window (RFC 6238 standard)
	Algorithm     = "SHA1" // HMAC-SHA1 algorithm (RFC 6238 standard)
	DefaultWindow = 1      // Steps accepted on each side of the current one
)

// Generate returns the code for the 30-second step containing at and the number
// of seconds left in that step. Exactly on a step boundary the remaining time
// is reported as 0.
func Generate(seedHex string, at time.Time) (string, int, error) {
	s, err := seed.Validate(seedHex)
	if err != nil {
		return "", 0, err
	}

	unix := at.Unix()
	code := formatCode(GenerateHOTP(s.Bytes(), counterAt(unix), Digits))

	remaining := Period - int(floorMod(unix, Period))
	if remaining == Period {
		remaining = 0
	}
	return code, remaining, nil
}

// Verify reports whether code matches the step containing at or any step within
// window steps on either side of it, to absorb clock skew.
// A code that is not exactly six ASCII digits is a non-match, not an error;
// only a malformed seed is reported as an error.
func Verify(seedHex, code string, at time.Time, window int) (bool, error) {
	s, err := seed.Validate(seedHex)
	if err != nil {
		return false, err
	}
	if !isCodeFormat(code) {
		return false, nil
	}
	if window < 0 {
		window = 0
	}

	key := s.Bytes()
	counter := counterAt(at.Unix())
	matched := 0
	for i := -window; i <= window; i++ {
		candidate := formatCode(GenerateHOTP(key, counter+int64(i), Digits))
		matched |= subtle.ConstantTimeCompare([]byte(candidate), []byte(code))
	}
	return matched == 1, nil
}

// GenerateHOTP implements RFC 4226 HMAC-based One-Time Password algorithm.
// The algorithm converts a counter value into a numeric code using HMAC-SHA1.
func GenerateHOTP(key []byte, counter int64, digits int) int {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	hash := mac.Sum(nil)

	// Dynamic truncation (RFC 4226): use last 4 bits as offset into hash
	offset := hash[len(hash)-1] & 0x0f
	code := (int(hash[offset]&0x7f) << 24) |
		(int(hash[offset+1]) << 16) |
		(int(hash[offset+2]) << 8) |
		int(hash[offset+3])

	return code % int(math.Pow10(digits))
}

// Base32Secret converts a hex seed into the unpadded Base32 form expected by
// authenticator apps.
func Base32Secret(seedHex string) (string, error) {
	s, err := seed.Validate(seedHex)
	if err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(s.Bytes()), nil
}

// URIParams describes the otpauth:// enrollment URI.
type URIParams struct {
	Seed        string // Validated hex seed (required)
	AccountName string // User identifier (required)
	Issuer      string // Service name displayed in authenticator apps (required)
}

// GetTOTPURI creates a properly encoded TOTP URI for use with authenticator apps.
// The URI format follows the Key Uri Format specification:
// https://github.com/google/google-authenticator/wiki/Key-Uri-Format
func GetTOTPURI(params URIParams) (string, error) {
	if params.AccountName == "" {
		return "", ErrMissingAccountName
	}
	if params.Issuer == "" {
		return "", ErrMissingIssuer
	}

	secret, err := Base32Secret(params.Seed)
	if err != nil {
		return "", err
	}

	label := fmt.Sprintf("%s:%s",
		url.PathEscape(params.Issuer),
		url.PathEscape(params.AccountName),
	)

	query := url.Values{}
	query.Set("secret", secret)
	query.Set("issuer", params.Issuer)
	query.Set("algorithm", Algorithm)
	query.Set("digits", fmt.Sprintf("%d", Digits))
	query.Set("period", fmt.Sprintf("%d", Period))

	return fmt.Sprintf("otpauth://totp/%s?%s", label, query.Encode()), nil
}

func counterAt(unix int64) int64 {
	return floorDiv(unix, Period)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}

func formatCode(code int) string {
	return fmt.Sprintf("%0*d", Digits, code)
}

func isCodeFormat(code string) bool {
	if len(code) != Digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
