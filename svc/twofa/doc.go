// Package twofa serves TOTP codes derived from an RSA-encrypted shared seed.
//
// The seed arrives as Base64 RSA-OAEP ciphertext, either in the body of
// POST /decrypt-seed or from the configured encrypted seed file. It is
// decrypted with the local private key, validated and stored. Codes are then
// generated and verified against the stored seed on demand:
//
//	GET  /health                      liveness
//	GET  /ready                       503 until a valid seed is stored
//	POST /decrypt-seed                {"encrypted_seed": "..."} (optional)
//	GET  /generate-2fa, /generate-totp {"code", "totp", "valid_for", "expires_in"}
//	POST /run-totp                    same shape, and appends the code to the audit log
//	POST /verify-2fa                  {"code"} or {"totp"} -> {"valid", "verified"}
//	POST /verify                      {"totp"} -> {"verified"}
//	GET  /enroll.png?size=N           QR code of the otpauth:// URI
//	GET  /metrics                     Prometheus metrics
//
// Errors are returned as {"detail": "..."}: 400 for missing or malformed
// input and 500 for server-side state such as a missing seed or a failed
// decryption. Verification routes are rate limited per client address when a
// limiter is configured.
package twofa
