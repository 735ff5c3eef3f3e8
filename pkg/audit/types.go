package audit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kind distinguishes the two lines the audit log records.
type Kind string

const (
	KindCode   Kind = "code"
	KindVerify Kind = "verify"
)

// TimestampLayout is the UTC layout used by code lines.
const TimestampLayout = "2006-01-02 15:04:05"

// Event is a single audit entry. Code events carry a timestamp, verify events
// carry the verification outcome.
type Event struct {
	Kind      Kind
	Code      string
	Verified  bool
	CreatedAt time.Time
}

// Validate checks that the event can be rendered as a single line.
func (e Event) Validate() error {
	switch e.Kind {
	case KindCode, KindVerify:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrEventValidation, e.Kind)
	}
	if e.Kind == KindCode && e.Code == "" {
		return fmt.Errorf("%w: code is required", ErrEventValidation)
	}
	if strings.ContainsAny(e.Code, "\r\n") {
		return fmt.Errorf("%w: code must be a single line", ErrEventValidation)
	}
	return nil
}

// Line renders the event in the log format.
func (e Event) Line() string {
	if e.Kind == KindVerify {
		return VerifyLine(e.Code, e.Verified)
	}
	return CodeLine(e.CreatedAt, e.Code)
}

// CodeLine formats a generated code as "YYYY-mm-dd HH:MM:SS - 2FA Code: C" in UTC.
func CodeLine(at time.Time, code string) string {
	return fmt.Sprintf("%s - 2FA Code: %s", at.UTC().Format(TimestampLayout), code)
}

// VerifyLine formats a verification attempt as "verify C => True|False".
func VerifyLine(code string, ok bool) string {
	result := "False"
	if ok {
		result = "True"
	}
	return fmt.Sprintf("verify %s => %s", code, result)
}

// Storage persists rendered audit lines.
type Storage interface {
	Append(ctx context.Context, line string) error
}
