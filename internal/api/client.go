package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jefrnc/stratlab/internal/models"
)

const (
	defaultTimeout = 2 * time.Minute
	unknownError   = "不明なエラー"

	// A 401 here rejects the identity-provider credential, not the stored session.
	endpointLogin = "auth_google"
)

// TokenSource supplies the bearer token and is told when the backend rejects it.
type TokenSource interface {
	Token() string
	Invalidate()
}

// Client is the strategy backend API client.
type Client struct {
	baseURL    string
	userAgent  string
	tokens     TokenSource
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request transport timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records request counts and latency.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a new API client. tokens may be nil for anonymous use.
func NewClient(baseURL, userAgent string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		tokens:    tokens,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// enveloped is implemented by every response type through models.Envelope.
type enveloped interface {
	Status() models.Envelope
}

// checkEnvelope turns an application-level failure into an *APIError.
func checkEnvelope(status int, r enveloped) error {
	env := r.Status()
	if env.Success {
		return nil
	}
	return newAPIError(status, env.Message())
}

// do performs one request. It returns the HTTP status on success so callers
// can attach it to application-level errors. Requests are never retried.
func (c *Client) do(ctx context.Context, endpoint, method, path string, body, result interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	requestID := uuid.New().String()
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	log := c.logger.With(
		zap.String("endpoint", endpoint),
		zap.String("method", method),
		zap.String("request_id", requestID),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(endpoint, outcomeTransport, time.Since(start))
		log.Warn("request failed", zap.Error(err))
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.observe(endpoint, outcomeTransport, time.Since(start))
		return resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}
	elapsed := time.Since(start)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.metrics.observe(endpoint, outcomeUnauthorized, elapsed)
		if c.tokens != nil && endpoint != endpointLogin {
			log.Warn("token rejected, clearing session")
			c.tokens.Invalidate()
		}
		return resp.StatusCode, newAPIError(resp.StatusCode, detailFrom(data))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.metrics.observe(endpoint, outcomeHTTPError, elapsed)
		log.Warn("unexpected status", zap.Int("status", resp.StatusCode))
		apiErr := newAPIError(resp.StatusCode, detailFrom(data))
		apiErr.body = data
		return resp.StatusCode, apiErr
	}

	if err := json.Unmarshal(data, result); err != nil {
		c.metrics.observe(endpoint, outcomeDecode, elapsed)
		return resp.StatusCode, fmt.Errorf("parsing response: %w", err)
	}

	c.metrics.observe(endpoint, outcomeOK, elapsed)
	log.Debug("request complete", zap.Int("status", resp.StatusCode), zap.Duration("elapsed", elapsed))
	return resp.StatusCode, nil
}

// call runs do and then checks the success flag of the decoded envelope.
func (c *Client) call(ctx context.Context, endpoint, method, path string, body interface{}, result enveloped) error {
	status, err := c.do(ctx, endpoint, method, path, body, result)
	if err != nil {
		return err
	}
	return checkEnvelope(status, result)
}

// detailFrom extracts the server's explanation from an error body.
// FastAPI-style backends put it in "detail"; others use "error".
func detailFrom(body []byte) string {
	var env models.Envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message() != "" {
		return env.Message()
	}
	// "detail" can also be a validation error list.
	var generic struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &generic); err == nil && len(generic.Detail) > 0 {
		return string(generic.Detail)
	}
	return ""
}

// IsUnauthorized reports whether err came from a rejected token.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
