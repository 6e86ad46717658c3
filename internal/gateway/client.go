package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"goose/internal/store"
	"goose/pkg/logging"
)

const (
	authService   = "/api.v1.AuthService/"
	apiKeyService = "/api.v1.APIKeyService/"
)

// Client calls the goose backend over one shared transport.
type Client struct {
	baseURL    string
	store      store.Store
	httpClient *http.Client
}

type options struct {
	httpClient *http.Client
	tracing    bool
}

// Option configures a Client.
type Option func(*options)

// WithHTTPClient sets the HTTP client whose transport carries the calls.
// The client's Transport is wrapped, not replaced.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) {
		o.httpClient = httpClient
	}
}

// WithTracing instruments outbound calls with OpenTelemetry spans.
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracing = enabled
	}
}

// New creates a Client for the backend at baseURL, reading the session
// token from st on every call.
func New(baseURL string, st store.Store, opts ...Option) *Client {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var hc http.Client
	if o.httpClient != nil {
		hc = *o.httpClient
	}

	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if o.tracing {
		base = otelhttp.NewTransport(base)
	}
	hc.Transport = &bearerTransport{store: st, base: base}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		store:      st,
		httpClient: &hc,
	}
}

// SetToken stores the session token used by subsequent calls.
func (c *Client) SetToken(token string) {
	c.store.Set(store.TokenKey, token)
}

// ClearToken removes the session token; subsequent calls are unauthenticated.
func (c *Client) ClearToken() {
	c.store.Remove(store.TokenKey)
}

// BaseURL returns the backend endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// call performs one Connect unary JSON call.
func (c *Client) call(ctx context.Context, procedure string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", procedure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+procedure, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", procedure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Connect-Protocol-Version", "1")

	logging.Debug("Gateway", "Calling %s", procedure)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		gwErr := newError(procedure, resp.StatusCode, data)
		logging.Debug("Gateway", "%s failed with %s (HTTP %d)", procedure, gwErr.Code, resp.StatusCode)
		return gwErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", procedure, err)
	}
	return nil
}
