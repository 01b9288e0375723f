// Package provider is the shared HTTP transport for third-party APIs: auth
// headers, JSON encoding, error envelopes, metrics and a circuit breaker per
// provider.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/pscheid92/coachpulse/internal/adapter/metrics"
	"github.com/pscheid92/coachpulse/internal/platform/correlation"
	"github.com/pscheid92/coachpulse/internal/platform/retry"
	"github.com/pscheid92/coachpulse/internal/platform/version"
	"github.com/tidwall/gjson"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseBody = 32 << 20 // 32 MiB, large enough for synthesized audio
	maxErrorMessage = 512
)

// ErrCircuitOpen is returned without contacting the provider while its breaker is open.
var ErrCircuitOpen = circuitbreaker.ErrOpen

type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	headers    http.Header
	cb         circuitbreaker.CircuitBreaker[any]
	metrics    *metrics.ProviderMetrics
}

type Option func(*Client)

// WithBearer sets the Authorization header on every request.
func WithBearer(token string) Option {
	return func(c *Client) { c.headers.Set("Authorization", "Bearer "+token) }
}

// WithHeader adds a static header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying client (tests inject httptest clients).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithMetrics(m *metrics.ProviderMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client for one provider. name labels metrics, logs and errors.
func New(name, baseURL string, opts ...Option) *Client {
	c := &Client{
		name:       name,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		headers:    make(http.Header),
	}
	c.headers.Set("User-Agent", version.UserAgent())
	for _, opt := range opts {
		opt(c)
	}

	c.cb = circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(0.6, 5, 30*time.Second).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"provider", c.name,
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			if c.metrics != nil {
				c.metrics.BreakerState.WithLabelValues(c.name).Set(stateToFloat(e.NewState))
			}
		}).
		Build()

	return c
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

// Name returns the provider label.
func (c *Client) Name() string { return c.name }

// URL joins path onto the base URL.
func (c *Client) URL(path string) string {
	return c.baseURL + path
}

// NewRequest builds a request against the base URL. path may carry a query string.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", c.name, err)
	}
	return req, nil
}

// Do sends req and returns the response body of a 2xx response. Non-2xx
// responses become *retry.StatusError carrying the provider's message.
func (c *Client) Do(op string, req *http.Request) ([]byte, http.Header, error) {
	if !c.cb.TryAcquirePermit() {
		c.observe(op, "circuit_open", 0)
		return nil, nil, &retry.PermanentError{Err: fmt.Errorf("%s %s: %w", c.name, op, ErrCircuitOpen)}
	}

	for key, values := range c.headers {
		if req.Header.Get(key) == "" {
			req.Header[key] = values
		}
	}
	if id, ok := correlation.ID(req.Context()); ok {
		req.Header.Set(correlation.Header, id)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.cb.RecordError(err)
		}
		c.observe(op, "network_error", time.Since(start))
		return nil, nil, fmt.Errorf("%s %s: request failed: %w", c.name, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		c.cb.RecordError(err)
		c.observe(op, "network_error", time.Since(start))
		return nil, nil, fmt.Errorf("%s %s: failed to read response: %w", c.name, op, err)
	}

	if resp.StatusCode >= 500 {
		c.cb.RecordError(fmt.Errorf("status %d", resp.StatusCode))
	} else {
		c.cb.RecordSuccess()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe(op, "status_"+statusClass(resp.StatusCode), time.Since(start))
		return nil, resp.Header, &retry.StatusError{
			Service:    c.name,
			StatusCode: resp.StatusCode,
			Message:    ErrorMessage(body),
		}
	}

	c.observe(op, "success", time.Since(start))
	return body, resp.Header, nil
}

// JSON marshals in (when non-nil), sends it and unmarshals the response into
// out (when non-nil).
func (c *Client) JSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s %s: failed to marshal request: %w", c.name, op, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := c.NewRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	respBody, _, err := c.Do(op, req)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", c.name, op, err)
	}
	return nil
}

// Raw is like JSON but returns the undecoded response body, for callers that
// pick fields with gjson.
func (c *Client) Raw(ctx context.Context, op, method, path string, in any) ([]byte, error) {
	var raw json.RawMessage
	if err := c.JSON(ctx, op, method, path, in, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) observe(op, outcome string, d time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.Calls.WithLabelValues(c.name, op, outcome).Inc()
	if d > 0 {
		c.metrics.Duration.WithLabelValues(c.name, op).Observe(d.Seconds())
	}
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

// ErrorMessage extracts a human-readable message from the error envelopes
// used by the providers we talk to, falling back to the raw body.
func ErrorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		for _, path := range []string{"error.message", "error_description", "msg", "message", "error"} {
			if v := parsed.Get(path); v.Exists() && v.Type == gjson.String && v.String() != "" {
				return truncate(v.String())
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty response"
	}
	return truncate(msg)
}

func truncate(s string) string {
	if len(s) <= maxErrorMessage {
		return s
	}
	return s[:maxErrorMessage] + "..."
}
