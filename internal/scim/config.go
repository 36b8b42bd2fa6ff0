package scim

import (
	"net/url"
	"time"
)

// Defaults for optional Config fields.
const (
	DefaultProxyPath = "/proxy"
	DefaultTimeoutMs = 30000
)

// Config is the client's connection configuration. It is an explicit
// value passed in at construction; updates go through Client.UpdateConfig
// so they are validated and persisted in one place.
type Config struct {
	// Endpoint is the SCIM server base URL, e.g. https://idp.example.com/scim/v2.
	Endpoint string `json:"endpoint"`
	// APIKey is sent as a bearer token when non-empty.
	APIKey string `json:"apiKey,omitempty"`
	// UseProxy routes requests through ProxyURL with the absolute target
	// URL appended as a path suffix (CORS circumvention).
	UseProxy bool   `json:"useProxy"`
	ProxyURL string `json:"proxyUrl,omitempty"`
	// TimeoutMs bounds each round trip. Zero means DefaultTimeoutMs.
	TimeoutMs int `json:"timeoutMs,omitempty"`
	// CustomHeaders are added to every request.
	CustomHeaders map[string]string `json:"customHeaders,omitempty"`
}

// Timeout returns the effective per-request timeout.
func (c Config) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return DefaultTimeoutMs * time.Millisecond
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// proxyURL returns the effective proxy URL.
func (c Config) proxyURL() string {
	if c.ProxyURL == "" {
		return DefaultProxyPath
	}
	return c.ProxyURL
}

// Validate checks the config. A non-empty endpoint must parse as an
// absolute http(s) URL.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return nil
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return newValidationError("endpoint", "%q is not an absolute URL", c.Endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return newValidationError("endpoint", "unsupported scheme %q", u.Scheme)
	}
	return nil
}

// SettingsStore persists the client configuration. Implementations sit
// behind this interface so the client never reads ambient state.
type SettingsStore interface {
	SaveClientConfig(cfg Config) error
}
