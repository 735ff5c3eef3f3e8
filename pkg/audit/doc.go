// Package audit keeps the plain-text log of generated and verified codes.
//
// The log is append-only and line oriented so it can be tailed by operators
// and shared with a cron job writing to the same file:
//
//	2025-01-02 03:04:05 - 2FA Code: 406395
//	verify 406395 => True
//
// Logger renders Events into lines and hands them to a Storage. FileLog is the
// file backed Storage; it can mirror every line into additional files.
//
//	log := audit.NewLogger(audit.NewFileLog("/data/cron.log", "/cron/last_code.txt"))
//	line, err := log.LogCode(ctx, code)
package audit
