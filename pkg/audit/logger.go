package audit

import (
	"context"
	"time"
)

// Logger records generated and verified codes.
type Logger struct {
	storage Storage
	now     func() time.Time
}

// Option configures Logger behavior during initialization.
type Option func(*Logger)

// WithClock overrides the time source for code lines.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLogger creates a Logger backed by storage.
func NewLogger(storage Storage, opts ...Option) *Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	l := &Logger{
		storage: storage,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log validates and stores event. A zero CreatedAt is set to the current time.
func (l *Logger) Log(ctx context.Context, event Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = l.now()
	}
	if err := event.Validate(); err != nil {
		return err
	}
	return l.storage.Append(ctx, event.Line())
}

// LogCode records a generated code and returns the line that was written.
func (l *Logger) LogCode(ctx context.Context, code string) (string, error) {
	event := Event{Kind: KindCode, Code: code, CreatedAt: l.now()}
	if err := l.Log(ctx, event); err != nil {
		return "", err
	}
	return event.Line(), nil
}

// LogVerify records the outcome of a verification attempt.
func (l *Logger) LogVerify(ctx context.Context, code string, ok bool) error {
	return l.Log(ctx, Event{Kind: KindVerify, Code: code, Verified: ok})
}
