package twofa

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dmitrymomot/pki2fa/handler"
	"github.com/dmitrymomot/pki2fa/pkg/audit"
	"github.com/dmitrymomot/pki2fa/pkg/keys"
	"github.com/dmitrymomot/pki2fa/pkg/logger"
	"github.com/dmitrymomot/pki2fa/pkg/qrcode"
	"github.com/dmitrymomot/pki2fa/pkg/ratelimiter"
	"github.com/dmitrymomot/pki2fa/pkg/seed"
	"github.com/dmitrymomot/pki2fa/pkg/totp"
)

// Config holds the resolved locations and identity the service works with.
type Config struct {
	PrivateKeyPath    string // PEM private key used to decrypt the seed
	EncryptedSeedPath string // Fallback ciphertext when a request carries none
	Issuer            string // otpauth issuer
	AccountName       string // otpauth account label
}

// Code is a generated TOTP code and the seconds left in its step.
type Code struct {
	Code      string
	Remaining int
}

// Service decrypts and stores the shared seed, then generates and verifies
// codes against it. Every verification is recorded in the audit log.
type Service struct {
	cfg          Config
	store        *seed.FileStore
	audit        *audit.Logger
	metrics      *Metrics
	limiter      *ratelimiter.Limiter
	logger       *slog.Logger
	now          func() time.Time
	window       int
	errorHandler handler.ErrorHandler[handler.Context]
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for codes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics replaces the metrics set, e.g. to share it with tests.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithVerifyLimiter rate limits the verification routes.
func WithVerifyLimiter(l *ratelimiter.Limiter) Option {
	return func(s *Service) {
		s.limiter = l
	}
}

// WithWindow sets how many steps on each side of the current one verification accepts.
func WithWindow(steps int) Option {
	return func(s *Service) {
		if steps >= 0 {
			s.window = steps
		}
	}
}

// New creates a Service. It panics when store or auditLog is nil.
func New(cfg Config, store *seed.FileStore, auditLog *audit.Logger, opts ...Option) *Service {
	if store == nil {
		panic("twofa: seed store cannot be nil")
	}
	if auditLog == nil {
		panic("twofa: audit logger cannot be nil")
	}

	s := &Service{
		cfg:    cfg,
		store:  store,
		audit:  auditLog,
		logger: logger.Discard(),
		now:    time.Now,
		window: totp.DefaultWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	s.errorHandler = newErrorHandler(s.logger)
	return s
}

// Metrics returns the service metrics.
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// DecryptSeed decrypts ciphertext, validates the seed and stores it.
// Blank ciphertext falls back to the configured encrypted seed file.
func (s *Service) DecryptSeed(ctx context.Context, ciphertext string) (err error) {
	defer func() {
		if !errors.Is(err, ErrEncryptedSeedMissing) {
			s.metrics.seedDecrypted(err == nil)
		}
	}()

	ciphertext = strings.TrimSpace(ciphertext)
	if ciphertext == "" {
		ciphertext, err = s.readEncryptedSeed()
		if err != nil {
			return err
		}
	}

	if _, err := base64.StdEncoding.DecodeString(ciphertext); err != nil {
		return errors.Join(seed.ErrEncodingInvalid, err)
	}

	key, err := keys.LoadPrivateKey(s.cfg.PrivateKeyPath)
	if err != nil {
		return errors.Join(ErrSeedDecryption, err)
	}

	value, err := seed.Open(key, ciphertext)
	if err != nil {
		return errors.Join(ErrSeedDecryption, err)
	}

	if err := s.store.Save(value); err != nil {
		return errors.Join(ErrSeedDecryption, err)
	}

	s.logger.InfoContext(ctx, "seed decrypted and stored", logger.Path(s.store.Path()))
	return nil
}

func (s *Service) readEncryptedSeed() (string, error) {
	if s.cfg.EncryptedSeedPath == "" {
		return "", ErrEncryptedSeedMissing
	}
	data, err := os.ReadFile(s.cfg.EncryptedSeedPath)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrEncryptedSeedMissing
	}
	if err != nil {
		return "", errors.Join(ErrSeedDecryption, err)
	}
	ciphertext := strings.TrimSpace(string(data))
	if ciphertext == "" {
		return "", ErrEncryptedSeedMissing
	}
	return ciphertext, nil
}

// CurrentCode returns the code for the current step.
func (s *Service) CurrentCode(ctx context.Context) (Code, error) {
	value, err := s.store.Load()
	if err != nil {
		return Code{}, err
	}

	code, remaining, err := totp.Generate(value.String(), s.now())
	if err != nil {
		return Code{}, err
	}
	s.metrics.codeGenerated()
	s.logger.DebugContext(ctx, "generated code", slog.Int("seconds_remaining", remaining))
	return Code{Code: code, Remaining: remaining}, nil
}

// RunTOTP generates the current code and appends it to the audit log.
// It returns the code together with the line that was written.
func (s *Service) RunTOTP(ctx context.Context) (Code, string, error) {
	code, err := s.CurrentCode(ctx)
	if err != nil {
		return Code{}, "", err
	}
	line, err := s.audit.LogCode(ctx, code.Code)
	if err != nil {
		return Code{}, "", err
	}
	return code, line, nil
}

// Verify checks code against the stored seed and records the attempt.
// Surrounding whitespace is ignored; a blank code yields ErrCodeMissing.
func (s *Service) Verify(ctx context.Context, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, ErrCodeMissing
	}

	value, err := s.store.Load()
	if err != nil {
		return false, err
	}

	ok, err := totp.Verify(value.String(), code, s.now(), s.window)
	if err != nil {
		return false, err
	}
	s.metrics.verified(ok)
	s.logger.InfoContext(ctx, "verification attempt", slog.Bool("valid", ok))

	if err := s.audit.LogVerify(ctx, code, ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Ready reports whether a valid seed is stored.
func (s *Service) Ready(context.Context) error {
	_, err := s.store.Load()
	return err
}

// EnrollmentURI returns the otpauth:// URI for the stored seed.
func (s *Service) EnrollmentURI(context.Context) (string, error) {
	value, err := s.store.Load()
	if err != nil {
		return "", err
	}
	uri, err := totp.GetTOTPURI(totp.URIParams{
		Seed:        value.String(),
		AccountName: s.cfg.AccountName,
		Issuer:      s.cfg.Issuer,
	})
	if err != nil {
		return "", errors.Join(ErrEnrollment, err)
	}
	return uri, nil
}

// EnrollmentPNG renders the enrollment URI as a QR code of the given size.
func (s *Service) EnrollmentPNG(ctx context.Context, size int) ([]byte, error) {
	uri, err := s.EnrollmentURI(ctx)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.PNG(uri, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnrollment, err)
	}
	return png, nil
}
