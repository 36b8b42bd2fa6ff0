package scim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/scim-tools/scim-console/internal/allowlist"
	"github.com/scim-tools/scim-console/internal/reqlog"
)

// Client talks to a SCIM 2.0 server. All resource methods funnel through
// Do, which owns URL construction, proxy rewriting, allowlist
// enforcement, timeouts, body parsing, logging, and error translation.
type Client struct {
	mu         sync.RWMutex
	cfg        Config
	httpClient *http.Client
	targets    allowlist.Source
	log        *reqlog.Logger
	settings   SettingsStore
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The per-request
// timeout is still enforced through the context, so the client's own
// Timeout should normally stay zero.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithAllowedTargets installs the outbound host policy. Without one, all
// hosts are permitted.
func WithAllowedTargets(src allowlist.Source) Option {
	return func(c *Client) { c.targets = src }
}

// WithLogger records every request attempt in the given log.
func WithLogger(l *reqlog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithSettings persists configuration updates through the store.
func WithSettings(s SettingsStore) Option {
	return func(c *Client) { c.settings = s }
}

// New creates a client. The config is validated but may be empty; an
// endpoint can be supplied later via UpdateConfig.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns a copy of the current configuration.
func (c *Client) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cfg := c.cfg
	cfg.CustomHeaders = copyHeaders(c.cfg.CustomHeaders)
	return cfg
}

// UpdateConfig validates, persists, and swaps in a new configuration.
// When proxying through an absolute URL, the proxy host is checked
// against the allowlist here, at save time.
func (c *Client) UpdateConfig(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.UseProxy {
		if u, err := url.Parse(cfg.proxyURL()); err == nil && u.IsAbs() {
			if err := c.checkHost(ctx, u.Hostname(), "proxyUrl"); err != nil {
				return err
			}
		}
	}
	if c.settings != nil {
		if err := c.settings.SaveClientConfig(cfg); err != nil {
			return fmt.Errorf("failed to persist client config: %w", err)
		}
	}
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	return nil
}

// checkHost consults the freshly loaded allowlist for the given host.
func (c *Client) checkHost(ctx context.Context, host, field string) error {
	if c.targets == nil {
		return nil
	}
	patterns := c.targets.Load(ctx)
	if !allowlist.Match(host, patterns) {
		return newValidationError(field, "host %q is not an allowed target", host)
	}
	return nil
}

// Do performs one SCIM round trip and returns the decoded response body:
// a map or slice for JSON, a string for text, nil for empty bodies.
// Exactly one log entry is recorded per attempt, and every failure is a
// *ValidationError or *RequestError; raw transport errors never escape.
func (c *Client) Do(ctx context.Context, method, path string, params map[string]string, body any) (any, error) {
	c.mu.RLock()
	cfg := c.cfg
	c.mu.RUnlock()

	if cfg.Endpoint == "" {
		return nil, newValidationError("endpoint", "no SCIM endpoint configured")
	}
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil || !endpoint.IsAbs() || endpoint.Host == "" {
		return nil, newValidationError("endpoint", "%q is not an absolute URL", cfg.Endpoint)
	}

	target := strings.TrimRight(cfg.Endpoint, "/") + path
	if len(params) > 0 {
		query := url.Values{}
		for k, v := range params {
			if v == "" {
				continue
			}
			query.Set(k, v)
		}
		if encoded := query.Encode(); encoded != "" {
			target += "?" + encoded
		}
	}

	// The proxy receives the absolute target URL as a path suffix. The
	// allowlist is enforced against the configured endpoint's hostname,
	// not the proxied URL; the proxy host itself is validated when the
	// configuration is saved.
	requestURL := target
	if cfg.UseProxy {
		requestURL = strings.TrimRight(cfg.proxyURL(), "/") + "/" + target
	}

	if err := c.checkHost(ctx, endpoint.Hostname(), "endpoint"); err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil && method != http.MethodGet {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, newValidationError("body", "request body is not serializable: %v", err)
		}
	}

	req, err := http.NewRequest(method, requestURL, bytes.NewReader(payload))
	if err != nil {
		return nil, newValidationError("url", "cannot build request for %q: %v", requestURL, err)
	}
	req.Header.Set("Accept", ContentTypeSCIM)
	req.Header.Set("Content-Type", ContentTypeSCIM)
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
	for k, v := range cfg.CustomHeaders {
		req.Header.Set(k, v)
	}

	timeout := cfg.Timeout()
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req = req.WithContext(reqCtx)

	entry := reqlog.Entry{
		Method:         method,
		URL:            requestURL,
		RequestSize:    int64(len(payload)),
		RequestHeaders: flattenHeaders(req.Header),
		RequestBody:    body,
		Request: &reqlog.RequestSpec{
			Method: method,
			Path:   path,
			Query:  params,
			Body:   body,
		},
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	entry.DurationMs = time.Since(start).Milliseconds()

	if err != nil {
		reqErr := c.translateTransportError(err, reqCtx, timeout)
		entry.Error = reqErr.Message
		c.record(entry)
		return nil, reqErr
	}
	defer resp.Body.Close()

	entry.Status = resp.StatusCode
	entry.StatusText = http.StatusText(resp.StatusCode)
	entry.ResponseHeaders = flattenHeaders(resp.Header)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		reqErr := &RequestError{
			Kind:    KindTransport,
			Status:  0,
			Message: "failed to read response body: " + err.Error(),
			cause:   err,
		}
		entry.Error = reqErr.Message
		c.record(entry)
		return nil, reqErr
	}
	entry.ResponseSize = int64(len(raw))

	parsed, parseErr := parseBody(resp, raw)
	entry.ResponseBody = parsed

	if parseErr != nil {
		reqErr := &RequestError{
			Kind:    KindBadResponse,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("response declared %s but could not be decoded: %v", resp.Header.Get("Content-Type"), parseErr),
			cause:   parseErr,
		}
		entry.Error = reqErr.Message
		c.record(entry)
		return nil, reqErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errPayload := parsed
		if _, ok := parsed.(map[string]any); !ok {
			errPayload = map[string]any{"detail": http.StatusText(resp.StatusCode)}
		}
		reqErr := ProcessErrorResponse(errPayload, resp.StatusCode)
		entry.SCIMError = reqErr.SCIM
		c.record(entry)
		return nil, reqErr
	}

	c.record(entry)
	return parsed, nil
}

// translateTransportError maps transport failures onto the client's
// error taxonomy. Timeouts carry the configured timeout in Details.
func (c *Client) translateTransportError(err error, ctx context.Context, timeout time.Duration) *RequestError {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &RequestError{
			Kind:    KindTimeout,
			Status:  0,
			Message: fmt.Sprintf("request timed out after %dms", timeout.Milliseconds()),
			Details: map[string]any{"timeout": timeout.Milliseconds()},
			cause:   err,
		}
	case errors.Is(err, context.Canceled):
		return &RequestError{
			Kind:    KindCanceled,
			Status:  0,
			Message: "request canceled",
			cause:   err,
		}
	default:
		return &RequestError{
			Kind:    KindTransport,
			Status:  0,
			Message: err.Error(),
			cause:   err,
		}
	}
}

// parseBody picks the decoding strategy from the status, Content-Length,
// and Content-Type. Empty bodies (204, length 0) are nil. JSON content
// types are decoded; a decode failure returns the raw text alongside the
// error so the caller can still log the body.
func parseBody(resp *http.Response, raw []byte) (any, error) {
	if resp.StatusCode == http.StatusNoContent || resp.Header.Get("Content-Length") == "0" || len(raw) == 0 {
		return nil, nil
	}

	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(ct, "application/json") || strings.Contains(ct, "application/scim+json") {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return string(raw), err
		}
		return v, nil
	}
	return string(raw), nil
}

// record writes the entry through the logger, when one is attached.
func (c *Client) record(entry reqlog.Entry) {
	if c.log != nil {
		c.log.Log(entry)
	}
}

// flattenHeaders collapses multi-valued headers for logging.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, values := range h {
		out[k] = strings.Join(values, ", ")
	}
	return out
}

func copyHeaders(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
