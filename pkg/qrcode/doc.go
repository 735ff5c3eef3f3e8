// Package qrcode renders otpauth:// enrollment URIs as QR codes.
//
// PNG is served by the HTTP enrollment endpoint, Terminal is printed by the
// CLI so an authenticator app can scan the code straight from the console.
// Both wrap github.com/skip2/go-qrcode.
//
//	img, err := qrcode.PNG(uri, 256)
//	if errors.Is(err, qrcode.ErrEmptyContent) {
//		// nothing to encode
//	}
package qrcode
