package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// StatsPath is appended to the configured base URL.
	StatsPath = "/api/stats"

	failedFetchMessage  = "Failed to fetch stats"
	unknownErrorMessage = "Unknown error"

	maxBodyBytes   = 10 << 20
	defaultTimeout = 10 * time.Second
)

// ErrNoData is returned when the service succeeds but has nothing to report.
var ErrNoData = errors.New("statistics service returned no data")

// TransportError covers everything that kept a well-formed envelope from
// arriving: unreachable hosts, timeouts and bodies that fail the schema.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// ServiceError is a failure reported by a reachable service, either through a
// non-2xx status or an envelope with success=false.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }

// Fetcher retrieves one statistics snapshot from a service base URL.
// It returns ErrNoData for an empty result, a *TransportError or a
// *ServiceError on failure.
type Fetcher interface {
	FetchStatistics(ctx context.Context, baseURL string) (*Snapshot, error)
}

// Client is the HTTP Fetcher for the reading-time statistics service.
type Client struct {
	http      *http.Client
	userAgent string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

// WithTimeout bounds each fetch, including reading the body.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every fetch.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient returns a Client with a 10 second timeout.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: "readdash",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatsURL returns the statistics endpoint for a base URL.
func StatsURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + StatsPath
}

// FetchStatistics issues GET <baseURL>/api/stats and unwraps the envelope.
func (c *Client) FetchStatistics(ctx context.Context, baseURL string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, StatsURL(baseURL), nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := failedFetchMessage
		if readErr == nil {
			if env, err := decodeEnvelope(body); err == nil && !env.success && env.errMsg != "" {
				msg = env.errMsg
			}
		}
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: msg}
	}
	if readErr != nil {
		return nil, &TransportError{Err: fmt.Errorf("read stats response: %w", readErr)}
	}
	return parseEnvelope(resp.StatusCode, body)
}

// parseEnvelope applies the envelope rules to a 2xx body.
func parseEnvelope(status int, body []byte) (*Snapshot, error) {
	env, err := decodeEnvelope(body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if !env.success {
		msg := env.errMsg
		if msg == "" {
			msg = unknownErrorMessage
		}
		return nil, &ServiceError{StatusCode: status, Message: msg}
	}
	if env.data == nil {
		return nil, ErrNoData
	}
	snap, err := decodeSnapshot(env.data)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return snap, nil
}
