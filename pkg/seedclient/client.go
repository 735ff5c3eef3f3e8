package seedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxAttempts = 2
	DefaultBackoff     = 2 * time.Second

	maxResponseSize = 64 * 1024
)

// Request is the enrollment payload sent to the counterparty.
type Request struct {
	StudentID    string `json:"student_id"`
	RepoURL      string `json:"github_repo_url"`
	PublicKeyPEM string `json:"public_key"`
}

type response struct {
	EncryptedSeed string `json:"encrypted_seed"`
}

// Client requests an encrypted seed from the counterparty endpoint.
type Client struct {
	endpoint    string
	client      *http.Client
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.client = c
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithMaxAttempts sets the total number of attempts, including the first one.
func WithMaxAttempts(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.maxAttempts = n
		}
	}
}

// WithBackoff sets the constant delay between attempts.
func WithBackoff(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.backoff = d
		}
	}
}

// WithLogger sets the logger used to report failed attempts.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// New creates a Client for endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}

	c := &Client{
		endpoint:    endpoint,
		client:      &http.Client{},
		timeout:     DefaultTimeout,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Request posts req and returns the Base64 encrypted seed from the response.
// Transport errors and 5xx responses are retried with a constant backoff;
// other non-2xx responses fail immediately.
func (c *Client) Request(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.PublicKeyPEM) == "" {
		return "", fmt.Errorf("%w: public key is required", ErrInvalidRequest)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	backoff := retry.WithMaxRetries(uint64(c.maxAttempts-1), retry.NewConstant(c.backoff))

	var (
		seed    string
		attempt int
	)
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		s, err := c.attempt(ctx, payload)
		if err != nil {
			c.logger.ErrorContext(ctx, "seed request attempt failed",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			return err
		}
		seed = s
		return nil
	})
	if err != nil {
		return "", err
	}
	return seed, nil
}

func (c *Client) attempt(ctx context.Context, payload []byte) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", retry.RetryableError(fmt.Errorf("%w: %w", ErrRequestFailed, err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", retry.RetryableError(fmt.Errorf("%w: %w", ErrRequestFailed, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, sanitize(body))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout {
			return "", retry.RetryableError(fmt.Errorf("%w: %w", ErrRequestFailed, statusErr))
		}
		return "", fmt.Errorf("%w: %w", ErrPermanentFailure, statusErr)
	}

	var data response
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	seed := strings.TrimSpace(data.EncryptedSeed)
	if seed == "" {
		return "", ErrEmptySeed
	}
	return seed, nil
}

// sanitize keeps response bodies short and single-line for error messages.
func sanitize(body []byte) string {
	s := strings.ReplaceAll(string(body), "\n", " ")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
