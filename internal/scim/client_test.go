package scim

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scim-tools/scim-console/internal/allowlist"
	"github.com/scim-tools/scim-console/internal/reqlog"
)

func newTestClient(t *testing.T, cfg Config, opts ...Option) *Client {
	t.Helper()
	c, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestDoDeleteNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/Users/abc" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	logs := reqlog.New(10, nil)
	c := newTestClient(t, Config{Endpoint: srv.URL}, WithLogger(logs))

	resp, err := c.Do(context.Background(), http.MethodDelete, "/Users/abc", nil, nil)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp != nil {
		t.Errorf("Expected nil body for 204, got %v", resp)
	}

	entries := logs.Entries()
	if len(entries) != 1 {
		t.Fatalf("Expected exactly one log entry, got %d", len(entries))
	}
	e := entries[0]
	if !e.Success || e.Status != 204 || e.Method != http.MethodDelete {
		t.Errorf("Unexpected log entry: success=%v status=%d method=%s", e.Success, e.Status, e.Method)
	}
}

func TestDoBuildsQueryAndParsesList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("filter") != `userName eq "alice"` || q.Get("count") != "10" {
			t.Errorf("Unexpected query: %s", r.URL.RawQuery)
		}
		if q.Has("attributes") {
			t.Errorf("Empty params must be omitted, got %s", r.URL.RawQuery)
		}
		if r.Header.Get("Accept") != ContentTypeSCIM {
			t.Errorf("Accept = %q, want %q", r.Header.Get("Accept"), ContentTypeSCIM)
		}
		w.Header().Set("Content-Type", ContentTypeSCIM)
		w.Write([]byte(`{"schemas":["` + SchemaURNListResponse + `"],"totalResults":1,"Resources":[{"id":"u1","userName":"alice"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, Config{Endpoint: srv.URL})

	body, err := c.Do(context.Background(), http.MethodGet, "/Users", map[string]string{
		"filter":     `userName eq "alice"`,
		"count":      "10",
		"attributes": "",
	}, nil)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	resources, err := ProcessList(body, TypeUsers)
	if err != nil {
		t.Fatalf("ProcessList: %v", err)
	}
	if len(resources) != 1 || resources[0].ID() != "u1" {
		t.Errorf("Unexpected resources: %+v", resources)
	}
}

func TestDoHTTPErrorCarriesSCIMContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", ContentTypeSCIM)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"schemas":["` + SchemaURNError + `"],"detail":"Resource abc not found","status":"404"}`))
	}))
	defer srv.Close()

	logs := reqlog.New(10, nil)
	c := newTestClient(t, Config{Endpoint: srv.URL}, WithLogger(logs))

	_, err := c.Do(context.Background(), http.MethodGet, "/Users/abc", nil, nil)

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Expected *RequestError, got %v", err)
	}
	if reqErr.Kind != KindHTTP || reqErr.Status != 404 {
		t.Errorf("Kind=%q Status=%d, want http/404", reqErr.Kind, reqErr.Status)
	}
	if reqErr.Message != "Resource abc not found" {
		t.Errorf("Message = %q, want the detail text", reqErr.Message)
	}
	if reqErr.SCIM == nil || reqErr.SCIM.Code != CodeNoTarget {
		t.Errorf("SCIM = %+v, want noTarget", reqErr.SCIM)
	}

	entries := logs.Entries()
	if len(entries) != 1 {
		t.Fatalf("Expected exactly one log entry, got %d", len(entries))
	}
	if entries[0].Success || entries[0].SCIMError == nil {
		t.Errorf("Expected failed entry with SCIM error attached: %+v", entries[0])
	}
}

func TestDoTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(250 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logs := reqlog.New(10, nil)
	c := newTestClient(t, Config{Endpoint: srv.URL, TimeoutMs: 50}, WithLogger(logs))

	_, err := c.Do(context.Background(), http.MethodGet, "/Users", nil, nil)

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Expected *RequestError, got %v", err)
	}
	if reqErr.Kind != KindTimeout {
		t.Errorf("Kind = %q, want timeout", reqErr.Kind)
	}
	if reqErr.Status != 0 {
		t.Errorf("Status = %d, want 0 for a client-side failure", reqErr.Status)
	}
	if reqErr.Details["timeout"] != int64(50) {
		t.Errorf("Details = %+v, want timeout: 50", reqErr.Details)
	}

	entries := logs.Entries()
	if len(entries) != 1 || entries[0].Success || entries[0].Error == "" {
		t.Fatalf("Expected one failed log entry with an error message, got %+v", entries)
	}
}

func TestDoRejectsDisallowedHost(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	logs := reqlog.New(10, nil)
	c := newTestClient(t, Config{Endpoint: srv.URL},
		WithAllowedTargets(allowlist.Static{"scim.example.com"}),
		WithLogger(logs),
	)

	_, err := c.Do(context.Background(), http.MethodGet, "/Users", nil, nil)

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected *ValidationError, got %v", err)
	}
	if hits != 0 {
		t.Errorf("Request reached the server %d times; the allowlist must block before any network call", hits)
	}
	if len(logs.Entries()) != 0 {
		t.Errorf("Validation failures must not be logged as requests, got %d entries", len(logs.Entries()))
	}
}

func TestDoProxyRewrite(t *testing.T) {
	var gotPath string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer proxy.Close()

	c := newTestClient(t, Config{
		Endpoint: "https://idp.example.com/scim/v2",
		UseProxy: true,
		ProxyURL: proxy.URL,
	}, WithAllowedTargets(allowlist.Static{"idp.example.com"}))

	if _, err := c.Do(context.Background(), http.MethodGet, "/Users", nil, nil); err != nil {
		t.Fatalf("Do: %v", err)
	}

	want := "/https://idp.example.com/scim/v2/Users"
	if gotPath != want {
		t.Errorf("Proxy received path %q, want %q", gotPath, want)
	}
}

func TestDoSendsAuthAndCustomHeadersRedacted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("X-Tenant") != "acme" {
			t.Errorf("X-Tenant = %q", r.Header.Get("X-Tenant"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	logs := reqlog.New(10, nil)
	c := newTestClient(t, Config{
		Endpoint:      srv.URL,
		APIKey:        "secret-key",
		CustomHeaders: map[string]string{"X-Tenant": "acme"},
	}, WithLogger(logs))

	if _, err := c.Do(context.Background(), http.MethodGet, "/Users", nil, nil); err != nil {
		t.Fatalf("Do: %v", err)
	}

	entries := logs.Entries()
	if len(entries) != 1 {
		t.Fatalf("Expected one log entry, got %d", len(entries))
	}
	if entries[0].RequestHeaders["Authorization"] != "[REDACTED]" {
		t.Errorf("Authorization logged as %q, want it redacted", entries[0].RequestHeaders["Authorization"])
	}
	if entries[0].RequestHeaders["X-Tenant"] != "acme" {
		t.Errorf("X-Tenant logged as %q, want it untouched", entries[0].RequestHeaders["X-Tenant"])
	}
}

func TestDoUndecodableJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "u1"`))
	}))
	defer srv.Close()

	logs := reqlog.New(10, nil)
	c := newTestClient(t, Config{Endpoint: srv.URL}, WithLogger(logs))

	_, err := c.Do(context.Background(), http.MethodGet, "/Users/u1", nil, nil)

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Expected *RequestError, got %v", err)
	}
	if reqErr.Kind != KindBadResponse || reqErr.Status != 200 {
		t.Errorf("Kind=%q Status=%d, want bad_response/200", reqErr.Kind, reqErr.Status)
	}

	entries := logs.Entries()
	if len(entries) != 1 {
		t.Fatalf("Expected one log entry, got %d", len(entries))
	}
	if entries[0].Success {
		t.Error("A 2xx response that fails to decode must be logged as a failure")
	}
	if entries[0].ResponseBody != `{"id": "u1"` {
		t.Errorf("Expected raw text preserved in the entry, got %v", entries[0].ResponseBody)
	}
}

func TestDoRequiresEndpoint(t *testing.T) {
	c := newTestClient(t, Config{})

	_, err := c.Do(context.Background(), http.MethodGet, "/Users", nil, nil)

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected *ValidationError, got %v", err)
	}
	if vErr.Field != "endpoint" {
		t.Errorf("Field = %q, want endpoint", vErr.Field)
	}
}

type fakeSettings struct {
	saved *Config
}

func (f *fakeSettings) SaveClientConfig(cfg Config) error {
	f.saved = &cfg
	return nil
}

func TestUpdateConfig(t *testing.T) {
	settings := &fakeSettings{}
	c := newTestClient(t, Config{},
		WithAllowedTargets(allowlist.Static{"idp.example.com"}),
		WithSettings(settings),
	)

	cfg := Config{Endpoint: "https://idp.example.com/scim/v2", UseProxy: true, ProxyURL: "/proxy"}
	if err := c.UpdateConfig(context.Background(), cfg); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if settings.saved == nil || settings.saved.Endpoint != cfg.Endpoint {
		t.Errorf("Expected config persisted through the settings store, got %+v", settings.saved)
	}
	if got := c.Config(); got.Endpoint != cfg.Endpoint {
		t.Errorf("Config() = %+v, want the updated config", got)
	}
}

func TestUpdateConfigValidatesProxyHost(t *testing.T) {
	c := newTestClient(t, Config{}, WithAllowedTargets(allowlist.Static{"idp.example.com"}))

	cfg := Config{
		Endpoint: "https://idp.example.com/scim/v2",
		UseProxy: true,
		ProxyURL: "https://relay.elsewhere.net/fwd",
	}
	err := c.UpdateConfig(context.Background(), cfg)

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Expected *ValidationError for a disallowed proxy host, got %v", err)
	}
	if vErr.Field != "proxyUrl" {
		t.Errorf("Field = %q, want proxyUrl", vErr.Field)
	}
}

func TestUpdateConfigRejectsBadEndpoint(t *testing.T) {
	c := newTestClient(t, Config{})

	for _, endpoint := range []string{"not a url", "ftp://idp.example.com", "/relative"} {
		if err := c.UpdateConfig(context.Background(), Config{Endpoint: endpoint}); err == nil {
			t.Errorf("Expected validation error for endpoint %q", endpoint)
		}
	}
}
