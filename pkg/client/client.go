package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/timeclock/pkg/log"
	"github.com/cuemby/timeclock/pkg/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// DefaultTimeout bounds every request unless the caller's context is shorter
const DefaultTimeout = 10 * time.Second

var (
	// ErrUnauthorized is returned for 401 responses and when no token is available
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned for 404 responses
	ErrNotFound = errors.New("not found")

	// ErrInvalidResponse is returned when a response body fails validation
	ErrInvalidResponse = errors.New("invalid response")
)

// APIError is a non-2xx answer from the attendance service
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("attendance API returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("attendance API returned %d: %s", e.Status, e.Message)
}

// Unwrap maps well-known statuses onto sentinel errors
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// TokenSource supplies the bearer token attached to every request
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource that always returns the same token
type StaticToken string

// Token returns the token
func (s StaticToken) Token() string { return string(s) }

// Client talks to the attendance REST service
type Client struct {
	baseURL        *url.URL
	http           *http.Client
	tokens         TokenSource
	timeout        time.Duration
	validate       *validator.Validate
	onUnauthorized func()
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource sets where bearer tokens come from
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUnauthorizedHandler registers a callback run on every 401 response
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// NewClient creates a client for the service rooted at baseURL (e.g. https://host/api)
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:  u,
		http:     &http.Client{},
		tokens:   StaticToken(""),
		timeout:  DefaultTimeout,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetUnauthorizedHandler replaces the 401 callback after construction
func (c *Client) SetUnauthorizedHandler(fn func()) {
	c.onUnauthorized = fn
}

// request describes one call against the API
type request struct {
	endpoint    string // metrics label
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	anonymous   bool // no bearer token required
}

func (c *Client) jsonRequest(endpoint, method, path string, payload interface{}) (*request, error) {
	req := &request{endpoint: endpoint, method: method, path: path}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		req.body = bytes.NewReader(data)
		req.contentType = "application/json"
	}
	return req, nil
}

// do executes the request and decodes a 2xx JSON body into out (when non-nil)
func (c *Client) do(ctx context.Context, r *request, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// r.path carries escaped segments; keep them escaped exactly once
	u := *c.baseURL
	u.RawPath = c.baseURL.EscapedPath() + r.path
	path, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return fmt.Errorf("invalid request path %q: %w", r.path, err)
	}
	u.Path = path
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), r.body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else if !r.anonymous {
		return fmt.Errorf("%s %s: %w: not logged in", r.method, r.path, ErrUnauthorized)
	}

	logger := log.WithRequestID(requestID)
	timer := metrics.NewTimer()
	resp, err := c.http.Do(req)
	timer.ObserveDurationVec(metrics.APIRequestDuration, r.endpoint)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(r.endpoint, "error").Inc()
		metrics.UpdateComponent(metrics.ComponentAPI, false, err.Error())
		return fmt.Errorf("%s %s failed: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	metrics.APIRequestsTotal.WithLabelValues(r.endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	metrics.UpdateComponent(metrics.ComponentAPI, resp.StatusCode < 500, resp.Status)

	logger.Debug().
		Str("method", r.method).
		Str("path", r.path).
		Int("status", resp.StatusCode).
		Dur("duration", timer.Duration()).
		Msg("API request")

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(body)}
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrInvalidResponse, r.method, r.path, err)
	}
	return nil
}

// errorMessage extracts the service's msg/message field from an error body
func errorMessage(body []byte) string {
	var payload struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Msg != "":
			return payload.Msg
		case payload.Message != "":
			return payload.Message
		case payload.Error != "":
			return payload.Error
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

// check validates a decoded payload against its struct tags
func (c *Client) check(v interface{}) error {
	if err := c.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
