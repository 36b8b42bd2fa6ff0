package allowlist

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// Source provides the current set of allowed target patterns.
type Source interface {
	Load(ctx context.Context) []string
}

// targetsDocument is the wire shape of allowed_targets.json.
type targetsDocument struct {
	AllowedTargets []string `json:"allowed_targets"`
}

// Loader reads the allowed-targets document from an HTTP URL or a local
// file on every call. Any failure yields an empty list, so nothing is
// allowed until the document is reachable again.
type Loader struct {
	location string
	client   *http.Client
}

// NewLoader creates a loader for the given location. Locations starting
// with http:// or https:// are fetched with caching disabled; anything
// else is treated as a filesystem path.
func NewLoader(location string) *Loader {
	return &Loader{
		location: location,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Load returns the current patterns, or an empty list on any failure.
func (l *Loader) Load(ctx context.Context) []string {
	if l == nil || l.location == "" {
		return nil
	}

	var data []byte
	if strings.HasPrefix(l.location, "http://") || strings.HasPrefix(l.location, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.location, nil)
		if err != nil {
			return nil
		}
		req.Header.Set("Cache-Control", "no-cache")

		resp, err := l.client.Do(req)
		if err != nil {
			slog.Warn("Failed to fetch allowed targets", "location", l.location, "error", err)
			return nil
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			slog.Warn("Allowed targets fetch returned non-OK status", "location", l.location, "status", resp.StatusCode)
			return nil
		}

		data, err = io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			slog.Warn("Failed to read allowed targets response", "location", l.location, "error", err)
			return nil
		}
	} else {
		var err error
		data, err = os.ReadFile(l.location)
		if err != nil {
			slog.Warn("Failed to read allowed targets file", "location", l.location, "error", err)
			return nil
		}
	}

	var doc targetsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("Malformed allowed targets document", "location", l.location, "error", err)
		return nil
	}
	return doc.AllowedTargets
}

// Static is a fixed pattern list, mainly for tests and embedded setups.
type Static []string

// Load returns the static patterns unchanged.
func (s Static) Load(ctx context.Context) []string { return s }
