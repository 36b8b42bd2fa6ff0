package reqlog

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestLogRedactsSensitiveHeaders(t *testing.T) {
	l := New(10, nil)

	entry := l.Log(Entry{
		Method: "GET",
		URL:    "https://scim.example.com/Users",
		Status: 200,
		RequestHeaders: map[string]string{
			"Authorization": "Bearer super-secret",
			"Cookie":        "session=abc",
			"X-API-Key":     "key123",
			"X-Auth-Token":  "tok456",
			"Accept":        "application/scim+json",
		},
	})

	got := l.Entries()
	if len(got) != 1 || got[0].ID != entry.ID {
		t.Fatalf("Expected the logged entry to be retrievable, got %d entries", len(got))
	}

	headers := got[0].RequestHeaders
	for _, h := range []string{"Authorization", "Cookie", "X-API-Key", "X-Auth-Token"} {
		if headers[h] != "[REDACTED]" {
			t.Errorf("Expected header %s to be redacted, got %q", h, headers[h])
		}
	}
	if headers["Accept"] != "application/scim+json" {
		t.Errorf("Expected non-sensitive header to pass through, got %q", headers["Accept"])
	}
}

func TestLogComputesSuccess(t *testing.T) {
	l := New(10, nil)

	tests := []struct {
		status  int
		errMsg  string
		success bool
	}{
		{200, "", true},
		{204, "", true},
		{299, "", true},
		{300, "", false},
		{404, "", false},
		{0, "connection refused", false},
		{200, "undecodable body", false},
	}

	for _, tt := range tests {
		e := l.Log(Entry{Status: tt.status, Error: tt.errMsg})
		if e.Success != tt.success {
			t.Errorf("status %d error %q: success = %v, want %v", tt.status, tt.errMsg, e.Success, tt.success)
		}
	}
}

func TestCapacityEvictsOldestFirst(t *testing.T) {
	l := New(3, nil)

	for i := 0; i < 5; i++ {
		l.Log(Entry{Method: "GET", URL: fmt.Sprintf("https://scim.example.com/Users/%d", i), Status: 200})
	}

	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("Expected buffer capped at 3, got %d", len(entries))
	}
	// Newest first: 4, 3, 2.
	for i, want := range []string{"/Users/4", "/Users/3", "/Users/2"} {
		if entries[i].URL != "https://scim.example.com"+want {
			t.Errorf("entry %d: got %s, want suffix %s", i, entries[i].URL, want)
		}
	}
}

func TestListenerNotificationAndPanicIsolation(t *testing.T) {
	l := New(10, nil)

	var first, second []*Entry
	l.Subscribe(func(e *Entry) {
		first = append(first, e)
		panic("listener blew up")
	})
	unsub := l.Subscribe(func(e *Entry) { second = append(second, e) })

	l.Log(Entry{Status: 200})
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("Expected both listeners notified despite panic, got %d/%d", len(first), len(second))
	}

	unsub()
	l.Log(Entry{Status: 200})
	if len(second) != 1 {
		t.Errorf("Expected unsubscribed listener to stop receiving, got %d", len(second))
	}
}

func TestFiltered(t *testing.T) {
	l := New(10, nil)
	l.Log(Entry{Method: "GET", URL: "https://a.example.com/Users", Status: 200})
	l.Log(Entry{Method: "POST", URL: "https://a.example.com/Groups", Status: 409})
	l.Log(Entry{Method: "GET", URL: "https://b.example.com/Users", Status: 0, Error: "timeout"})

	boolPtr := func(b bool) *bool { return &b }

	tests := []struct {
		name    string
		filters FilterOptions
		want    int
	}{
		{"no filters", FilterOptions{}, 3},
		{"by method", FilterOptions{Method: "GET"}, 2},
		{"method case insensitive", FilterOptions{Method: "get"}, 2},
		{"by status", FilterOptions{Status: 409}, 1},
		{"by success", FilterOptions{Success: boolPtr(true)}, 1},
		{"by failure", FilterOptions{Success: boolPtr(false)}, 2},
		{"by url substring", FilterOptions{URL: "a.example.com"}, 2},
		{"by has error", FilterOptions{HasError: boolPtr(true)}, 1},
		{"anded", FilterOptions{Method: "GET", URL: "a.example.com"}, 1},
		{"anded no match", FilterOptions{Method: "POST", URL: "b.example.com"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(l.Filtered(tt.filters)); got != tt.want {
				t.Errorf("Filtered(%+v) returned %d entries, want %d", tt.filters, got, tt.want)
			}
		})
	}
}

func TestStats(t *testing.T) {
	l := New(10, nil)

	if s := l.Stats(); s.Total != 0 || s.SuccessRate != 0 || s.AvgDurationMs != 0 {
		t.Errorf("Expected zero stats for empty log, got %+v", s)
	}

	l.Log(Entry{Status: 200, DurationMs: 10})
	l.Log(Entry{Status: 200, DurationMs: 30})
	l.Log(Entry{Status: 500, DurationMs: 20})
	l.Log(Entry{Status: 0, Error: "timeout"})

	s := l.Stats()
	if s.Total != 4 || s.Successes != 2 || s.Errors != 2 {
		t.Errorf("Unexpected counts: %+v", s)
	}
	if s.SuccessRate != 50 || s.ErrorRate != 50 {
		t.Errorf("Unexpected rates: %+v", s)
	}
	if s.AvgDurationMs != 20 || s.MinDurationMs != 10 || s.MaxDurationMs != 30 {
		t.Errorf("Unexpected durations: %+v", s)
	}

	// Idempotent without intervening Log calls.
	if again := l.Stats(); !reflect.DeepEqual(s, again) {
		t.Errorf("Stats changed between calls: %+v vs %+v", s, again)
	}
}

// failStore fails saves a configurable number of times.
type failStore struct {
	saves       int
	clears      int
	failSaves   int
	lastEntries []*Entry
}

func (f *failStore) SaveEntries(entries []*Entry) error {
	f.saves++
	if f.saves <= f.failSaves {
		return errors.New("disk full")
	}
	f.lastEntries = entries
	return nil
}

func (f *failStore) LoadEntries() ([]*Entry, error) { return nil, nil }

func (f *failStore) ClearEntries() error {
	f.clears++
	return nil
}

func TestPersistClearAndRetry(t *testing.T) {
	// First save fails, the retry after clearing succeeds.
	fs := &failStore{failSaves: 1}
	l := New(10, fs)

	l.Log(Entry{Status: 200})
	if fs.clears != 1 {
		t.Errorf("Expected one clear-and-retry, got %d clears", fs.clears)
	}
	if fs.saves != 2 || len(fs.lastEntries) != 1 {
		t.Errorf("Expected retried save to persist 1 entry, saves=%d persisted=%d", fs.saves, len(fs.lastEntries))
	}
}

func TestPersistCooldownAfterRepeatedFailure(t *testing.T) {
	// Both the save and its retry fail: persistence enters cooldown and
	// later logs skip the store, while in-memory logging continues.
	fs := &failStore{failSaves: 100}
	l := New(10, fs)

	l.Log(Entry{Status: 200})
	savesAfterFailure := fs.saves

	l.Log(Entry{Status: 200})
	if fs.saves != savesAfterFailure {
		t.Errorf("Expected no store writes during cooldown, saves went %d -> %d", savesAfterFailure, fs.saves)
	}
	if len(l.Entries()) != 2 {
		t.Errorf("Expected in-memory logging to continue, got %d entries", len(l.Entries()))
	}
}
