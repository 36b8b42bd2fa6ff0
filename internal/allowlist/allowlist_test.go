package allowlist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		hostname string
		patterns []string
		want     bool
	}{
		{"exact match", "api.example.com", []string{"api.example.com"}, true},
		{"exact mismatch", "api.example.com", []string{"other.example.com"}, false},
		{"case insensitive", "API.Example.COM", []string{"api.example.com"}, true},
		{"wildcard subdomain", "api.example.com", []string{"*.example.com"}, true},
		{"wildcard bare domain", "example.com", []string{"*.example.com"}, true},
		{"wildcard rejects other domain", "evil.com", []string{"*.example.com"}, false},
		{"wildcard rejects suffix trick", "notexample.com", []string{"*.example.com"}, false},
		{"cidr inside", "10.0.5.7", []string{"10.0.0.0/8"}, true},
		{"cidr outside", "11.0.5.7", []string{"10.0.0.0/8"}, false},
		{"cidr /32 exact", "192.168.1.1", []string{"192.168.1.1/32"}, true},
		{"cidr /32 off by one", "192.168.1.2", []string{"192.168.1.1/32"}, false},
		{"cidr /0 matches everything", "203.0.113.9", []string{"0.0.0.0/0"}, true},
		{"cidr against hostname", "api.example.com", []string{"10.0.0.0/8"}, false},
		{"malformed cidr", "10.0.0.1", []string{"10.0.0.0/abc"}, false},
		{"cidr bits out of range", "10.0.0.1", []string{"10.0.0.0/33"}, false},
		{"first of many wins", "api.example.com", []string{"nope.com", "*.example.com", "10.0.0.0/8"}, true},
		{"empty hostname", "", []string{"*.example.com"}, false},
		{"empty patterns", "api.example.com", nil, false},
		{"empty pattern entries skipped", "api.example.com", []string{"", "api.example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.hostname, tt.patterns); got != tt.want {
				t.Errorf("Match(%q, %v) = %v, want %v", tt.hostname, tt.patterns, got, tt.want)
			}
		})
	}
}

func TestLoaderHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"allowed_targets": ["*.example.com", "10.0.0.0/8"]}`))
	}))
	defer srv.Close()

	loader := NewLoader(srv.URL)
	patterns := loader.Load(context.Background())
	if len(patterns) != 2 {
		t.Fatalf("Expected 2 patterns, got %d", len(patterns))
	}
	if patterns[0] != "*.example.com" {
		t.Errorf("Expected first pattern *.example.com, got %q", patterns[0])
	}
}

func TestLoaderFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if patterns := NewLoader(srv.URL).Load(context.Background()); len(patterns) != 0 {
		t.Errorf("Expected empty patterns on server error, got %v", patterns)
	}

	if patterns := NewLoader("/nonexistent/allowed_targets.json").Load(context.Background()); len(patterns) != 0 {
		t.Errorf("Expected empty patterns for missing file, got %v", patterns)
	}
}

func TestLoaderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowed_targets.json")
	if err := os.WriteFile(path, []byte(`{"allowed_targets": ["scim.internal"]}`), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	patterns := NewLoader(path).Load(context.Background())
	if len(patterns) != 1 || patterns[0] != "scim.internal" {
		t.Errorf("Expected [scim.internal], got %v", patterns)
	}
}
