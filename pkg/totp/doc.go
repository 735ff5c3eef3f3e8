// Package totp generates and verifies RFC 6238 time-based one-time passwords
// for a single 64-character hex seed.
//
// The parameter set is fixed: HMAC-SHA1, 6 digits and a 30 second step. The
// counter is floor(unix/30) encoded as an 8 byte big-endian integer and the
// code is produced with RFC 4226 dynamic truncation.
//
// # Usage
//
//	code, remaining, err := totp.Generate(seedHex, time.Now())
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("%s (valid for %ds)\n", code, remaining)
//
//	ok, err := totp.Verify(seedHex, submitted, time.Now(), totp.DefaultWindow)
//
// Verify accepts the current step and DefaultWindow steps on each side of it.
// Submitted codes that are not exactly six ASCII digits never match; they are
// not reported as errors.
//
// # Enrollment
//
// GetTOTPURI builds an otpauth:// URI with the seed bytes Base32 encoded, which
// authenticator apps can import directly or from a QR code.
//
// # Error Handling
//
// A seed that fails seed.Validate is returned as seed.ErrSeedMalformed.
// ErrMissingAccountName and ErrMissingIssuer are returned by GetTOTPURI.
package totp
