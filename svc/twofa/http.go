package twofa

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/pki2fa/binder"
	"github.com/dmitrymomot/pki2fa/handler"
	"github.com/dmitrymomot/pki2fa/pkg/audit"
	"github.com/dmitrymomot/pki2fa/pkg/logger"
	"github.com/dmitrymomot/pki2fa/pkg/qrcode"
	"github.com/dmitrymomot/pki2fa/pkg/ratelimiter"
	"github.com/dmitrymomot/pki2fa/pkg/requestid"
	"github.com/dmitrymomot/pki2fa/pkg/seed"
)

// DecryptSeedRequest is the optional body of POST /decrypt-seed.
type DecryptSeedRequest struct {
	EncryptedSeed string `json:"encrypted_seed"`
}

// VerifyRequest accepts the code under either field name.
type VerifyRequest struct {
	Code string `json:"code"`
	TOTP string `json:"totp"`
}

// VerifyAliasRequest is the body of POST /verify.
type VerifyAliasRequest struct {
	TOTP string `json:"totp"`
}

// EnrollRequest selects the QR image size of GET /enroll.png.
type EnrollRequest struct {
	Size int `query:"size"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

// CodeResponse mirrors the code and remaining seconds under both naming schemes.
type CodeResponse struct {
	Code      string `json:"code"`
	TOTP      string `json:"totp"`
	ValidFor  int    `json:"valid_for"`
	ExpiresIn int    `json:"expires_in"`
}

type VerifyResponse struct {
	Valid    bool `json:"valid"`
	Verified bool `json:"verified"`
}

type VerifyAliasResponse struct {
	Verified bool `json:"verified"`
}

func newCodeResponse(c Code) CodeResponse {
	return CodeResponse{
		Code:      c.Code,
		TOTP:      c.Code,
		ValidFor:  c.Remaining,
		ExpiresIn: c.Remaining,
	}
}

// mapError turns service errors into client-facing responses.
// Detail strings are fixed so that key paths or cryptographic causes never leak.
func mapError(err error) (handler.HTTPError, bool) {
	switch {
	case errors.Is(err, ErrEncryptedSeedMissing):
		return handler.NewHTTPError(http.StatusBadRequest, "Missing encrypted seed (provide in body or store in encrypted_seed.txt)"), true
	case errors.Is(err, ErrSeedDecryption):
		return handler.NewHTTPError(http.StatusInternalServerError, "Decryption failed"), true
	case errors.Is(err, seed.ErrEncodingInvalid):
		return handler.NewHTTPError(http.StatusBadRequest, "Encrypted seed is not valid Base64"), true
	case errors.Is(err, ErrCodeMissing):
		return handler.NewHTTPError(http.StatusBadRequest, "Missing code"), true
	case errors.Is(err, audit.ErrEventValidation):
		return handler.NewHTTPError(http.StatusBadRequest, "Invalid code"), true
	case errors.Is(err, seed.ErrSeedNotFound):
		return handler.NewHTTPError(http.StatusInternalServerError, "Seed not decrypted yet"), true
	case errors.Is(err, seed.ErrSeedMalformed):
		return handler.NewHTTPError(http.StatusInternalServerError, "Stored seed is invalid"), true
	case errors.Is(err, ErrEnrollment), errors.Is(err, qrcode.ErrGenerateFailed):
		return handler.NewHTTPError(http.StatusInternalServerError, "Enrollment unavailable"), true
	}
	return handler.HTTPError{}, false
}

func newErrorHandler(l *slog.Logger) handler.ErrorHandler[handler.Context] {
	return handler.NewErrorHandler[handler.Context](
		handler.WithErrorLogger(l),
		handler.WithErrorMapper(mapError),
	)
}

// Handle returns the HTTP API.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware, middleware.Recoverer, s.logRequests)

	r.Get("/health", handler.Wrap(s.health))
	r.Get("/ready", handler.Wrap(s.ready))
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Post("/decrypt-seed", handler.Wrap(s.decryptSeed,
		handler.WithBinder[handler.Context, DecryptSeedRequest](binder.BindJSON()),
		handler.WithErrorHandler[handler.Context, DecryptSeedRequest](s.errorHandler),
	))

	generate := handler.Wrap(s.generate,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	)
	r.Get("/generate-2fa", generate)
	r.Get("/generate-totp", generate)

	r.Post("/run-totp", handler.Wrap(s.runTOTP,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))

	r.Get("/enroll.png", handler.Wrap(s.enrollPNG,
		handler.WithBinder[handler.Context, EnrollRequest](binder.BindQuery()),
		handler.WithErrorHandler[handler.Context, EnrollRequest](s.errorHandler),
	))

	r.Group(func(r chi.Router) {
		r.Use(ratelimiter.Middleware(s.limiter, ratelimiter.ClientIP, http.HandlerFunc(s.rateLimited)))

		r.Post("/verify-2fa", handler.Wrap(s.verify,
			handler.WithBinder[handler.Context, VerifyRequest](binder.BindJSON()),
			handler.WithErrorHandler[handler.Context, VerifyRequest](s.errorHandler),
		))
		r.Post("/verify", handler.Wrap(s.verifyAlias,
			handler.WithBinder[handler.Context, VerifyAliasRequest](binder.BindJSON()),
			handler.WithErrorHandler[handler.Context, VerifyAliasRequest](s.errorHandler),
		))
	})

	return r
}

func (s *Service) health(ctx handler.Context, _ struct{}) handler.Response {
	return handler.JSON(StatusResponse{Status: "ok"})
}

func (s *Service) ready(ctx handler.Context, _ struct{}) handler.Response {
	if err := s.Ready(ctx); err != nil {
		return handler.JSON(StatusResponse{Status: "seed not decrypted"}, handler.WithJSONStatus(http.StatusServiceUnavailable))
	}
	return handler.JSON(StatusResponse{Status: "ready"})
}

func (s *Service) decryptSeed(ctx handler.Context, req DecryptSeedRequest) handler.Response {
	if err := s.DecryptSeed(ctx, req.EncryptedSeed); err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(StatusResponse{Status: "ok"})
}

func (s *Service) generate(ctx handler.Context, _ struct{}) handler.Response {
	code, err := s.CurrentCode(ctx)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(newCodeResponse(code))
}

func (s *Service) runTOTP(ctx handler.Context, _ struct{}) handler.Response {
	code, _, err := s.RunTOTP(ctx)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(newCodeResponse(code))
}

func (s *Service) verify(ctx handler.Context, req VerifyRequest) handler.Response {
	code := req.Code
	if code == "" {
		code = req.TOTP
	}
	ok, err := s.Verify(ctx, code)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.JSON(VerifyResponse{Valid: ok, Verified: ok})
}

func (s *Service) verifyAlias(ctx handler.Context, req VerifyAliasRequest) handler.Response {
	ok, err := s.Verify(ctx, req.TOTP)
	if err != nil {
		if errors.Is(err, ErrCodeMissing) {
			return handler.Fail(handler.NewHTTPError(http.StatusBadRequest, "Missing totp"))
		}
		return handler.Fail(err)
	}
	return handler.JSON(VerifyAliasResponse{Verified: ok})
}

func (s *Service) enrollPNG(ctx handler.Context, req EnrollRequest) handler.Response {
	png, err := s.EnrollmentPNG(ctx, req.Size)
	if err != nil {
		return handler.Fail(err)
	}
	return handler.Blob("image/png", png)
}

func (s *Service) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.rateLimited.Inc()
	s.logger.WarnContext(r.Context(), "verification rate limited",
		logger.Path(r.URL.Path),
		slog.String("client_ip", ratelimiter.ClientIP(r)),
	)
	_ = handler.JSONError(handler.ErrTooManyRequests).Render(w, r)
}

func (s *Service) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.DebugContext(r.Context(), "request",
			slog.String("method", r.Method),
			logger.Path(r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			logger.Duration(time.Since(start)),
		)
	})
}
