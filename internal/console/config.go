package console

import "time"

// Config holds the console server configuration. Values come from
// environment variables or the config file; see cmd/serve.go.
type Config struct {
	// CORSOrigins are the allowed browser origins for the console UI.
	CORSOrigins []string

	// AdminToken gates the console API. Empty disables authentication.
	AdminToken string

	// SessionSecret signs session tokens. A random secret is generated
	// when empty, which invalidates sessions across restarts.
	SessionSecret string

	// SessionTTL bounds session token lifetime.
	SessionTTL time.Duration

	// Version is reported by the health endpoint.
	Version string
}

// sessionTTL returns the effective session lifetime.
func (c Config) sessionTTL() time.Duration {
	if c.SessionTTL <= 0 {
		return 12 * time.Hour
	}
	return c.SessionTTL
}
