package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/pki2fa/binder"
	"github.com/dmitrymomot/pki2fa/pkg/logger"
)

// ErrorMapper translates a domain error into an HTTPError.
// It returns false when the error is not recognised.
type ErrorMapper func(err error) (HTTPError, bool)

// ErrorHandlerOption configures the error handler built by NewErrorHandler.
type ErrorHandlerOption func(*errorHandlerConfig)

type errorHandlerConfig struct {
	logger  *slog.Logger
	mappers []ErrorMapper
}

// WithErrorLogger sets the logger used to record failed requests.
func WithErrorLogger(l *slog.Logger) ErrorHandlerOption {
	return func(c *errorHandlerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithErrorMapper adds a mapper consulted before the built-in rules.
// Mappers run in the order they were added; the first match wins.
func WithErrorMapper(m ErrorMapper) ErrorHandlerOption {
	return func(c *errorHandlerConfig) {
		if m != nil {
			c.mappers = append(c.mappers, m)
		}
	}
}

// NewErrorHandler returns an ErrorHandler that renders {"detail": "..."}
// responses and logs the underlying error. Client errors are logged at warn
// level, server errors at error level.
func NewErrorHandler[C Context](opts ...ErrorHandlerOption) ErrorHandler[C] {
	cfg := &errorHandlerConfig{logger: logger.Discard()}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(ctx C, err error) {
		httpErr := classify(err, cfg.mappers)

		level := slog.LevelError
		if httpErr.Code < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		r := ctx.Request()
		cfg.logger.Log(ctx, level, "request failed",
			slog.Int("status", httpErr.Code),
			slog.String("method", r.Method),
			logger.Path(r.URL.Path),
			logger.Error(err),
		)

		if renderErr := JSONError(httpErr).Render(ctx.ResponseWriter(), r); renderErr != nil {
			cfg.logger.ErrorContext(ctx, "failed to render error response", logger.Error(renderErr))
		}
	}
}

func classify(err error, mappers []ErrorMapper) HTTPError {
	for _, m := range mappers {
		if httpErr, ok := m(err); ok {
			return httpErr
		}
	}

	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, binder.ErrInvalidJSON),
		errors.Is(err, binder.ErrMissingContentType),
		errors.Is(err, binder.ErrInvalidQuery):
		return NewHTTPError(http.StatusBadRequest, "Invalid request")
	case errors.Is(err, binder.ErrUnsupportedMediaType):
		return NewHTTPError(http.StatusUnsupportedMediaType, "")
	default:
		return ErrInternalServer
	}
}

// defaultErrorHandler renders errors without logging.
func defaultErrorHandler[C Context](ctx C, err error) {
	_ = JSONError(classify(err, nil)).Render(ctx.ResponseWriter(), ctx.Request())
}
