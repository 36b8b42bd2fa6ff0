// Package reqlog records SCIM request/response exchanges in a bounded,
// newest-first buffer with listener notification, filtering, aggregate
// statistics, and best-effort persistence.
package reqlog

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity bounds the buffer. Kept deliberately small so the
// persisted footprint stays negligible.
const DefaultCapacity = 10

// persistCooldown is how long persistence stays disabled after a write
// failure that survived the clear-and-retry.
const persistCooldown = 60 * time.Second

// redactedValue replaces sensitive header values in log entries.
const redactedValue = "[REDACTED]"

// sensitiveHeaders are redacted case-insensitively before an entry is
// stored or handed to listeners.
var sensitiveHeaders = map[string]bool{
	"authorization": true,
	"cookie":        true,
	"x-api-key":     true,
	"x-auth-token":  true,
}

// RequestSpec retains enough of the original request to resubmit it.
type RequestSpec struct {
	Method string            `json:"method"`
	Path   string            `json:"path"`
	Query  map[string]string `json:"query,omitempty"`
	Body   any               `json:"body,omitempty"`
}

// Entry is one completed or failed request attempt. Entries are
// immutable once logged.
type Entry struct {
	ID              string            `json:"id"`
	Timestamp       time.Time         `json:"timestamp"`
	Method          string            `json:"method"`
	URL             string            `json:"url"`
	Status          int               `json:"status"`
	StatusText      string            `json:"statusText,omitempty"`
	DurationMs      int64             `json:"durationMs"`
	RequestSize     int64             `json:"requestSize"`
	ResponseSize    int64             `json:"responseSize"`
	RequestHeaders  map[string]string `json:"requestHeaders,omitempty"`
	ResponseHeaders map[string]string `json:"responseHeaders,omitempty"`
	RequestBody     any               `json:"requestBody,omitempty"`
	ResponseBody    any               `json:"responseBody,omitempty"`
	Error           string            `json:"error,omitempty"`
	SCIMError       any               `json:"scimError,omitempty"`
	Success         bool              `json:"success"`
	Request         *RequestSpec      `json:"request,omitempty"`
}

// Listener receives each new entry synchronously. A panicking listener
// is isolated; it never aborts logging or the other listeners.
type Listener func(*Entry)

// Store persists the whole buffer. Implementations live elsewhere; the
// logger only needs these three operations.
type Store interface {
	SaveEntries([]*Entry) error
	LoadEntries() ([]*Entry, error)
	ClearEntries() error
}

// Logger is the in-memory request log. All methods are safe for
// concurrent use.
type Logger struct {
	mu            sync.RWMutex
	entries       []*Entry // newest first
	capacity      int
	store         Store
	disabledUntil time.Time

	listenerMu sync.Mutex
	listeners  map[int]Listener
	nextID     int
}

// New creates a logger with the given capacity (DefaultCapacity when
// zero or negative). A nil store disables persistence. Previously
// persisted entries are loaded into the buffer.
func New(capacity int, store Store) *Logger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l := &Logger{
		capacity:  capacity,
		store:     store,
		listeners: make(map[int]Listener),
	}
	if store != nil {
		if entries, err := store.LoadEntries(); err != nil {
			slog.Warn("Failed to load persisted request logs", "error", err)
		} else {
			if len(entries) > capacity {
				entries = entries[:capacity]
			}
			l.entries = entries
		}
	}
	return l
}

// Log finalizes and records an entry: assigns id and timestamp, redacts
// sensitive headers, computes success from the status and error fields,
// prepends it, truncates to capacity, persists, and notifies listeners.
func (l *Logger) Log(e Entry) *Entry {
	e.ID = uuid.New().String()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	e.RequestHeaders = redactHeaders(e.RequestHeaders)
	e.ResponseHeaders = redactHeaders(e.ResponseHeaders)
	e.Success = e.Status >= 200 && e.Status < 300 && e.Error == ""

	entry := &e

	l.mu.Lock()
	l.entries = append([]*Entry{entry}, l.entries...)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
	snapshot := make([]*Entry, len(l.entries))
	copy(snapshot, l.entries)
	l.persistLocked(snapshot)
	l.mu.Unlock()

	l.notify(entry)
	return entry
}

// persistLocked writes the buffer through the store, clearing and
// retrying once on failure, then backing off for persistCooldown.
// Callers must hold l.mu.
func (l *Logger) persistLocked(entries []*Entry) {
	if l.store == nil || time.Now().Before(l.disabledUntil) {
		return
	}
	if err := l.store.SaveEntries(entries); err == nil {
		return
	}
	if err := l.store.ClearEntries(); err == nil {
		if err := l.store.SaveEntries(entries); err == nil {
			return
		}
	}
	l.disabledUntil = time.Now().Add(persistCooldown)
	slog.Warn("Request log persistence disabled after write failure", "cooldown", persistCooldown)
}

func (l *Logger) notify(entry *Entry) {
	l.listenerMu.Lock()
	listeners := make([]Listener, 0, len(l.listeners))
	for _, fn := range l.listeners {
		listeners = append(listeners, fn)
	}
	l.listenerMu.Unlock()

	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Request log listener panicked", "panic", r)
				}
			}()
			fn(entry)
		}()
	}
}

// Subscribe registers a listener and returns its unsubscribe function.
func (l *Logger) Subscribe(fn Listener) func() {
	l.listenerMu.Lock()
	defer l.listenerMu.Unlock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	return func() {
		l.listenerMu.Lock()
		defer l.listenerMu.Unlock()
		delete(l.listeners, id)
	}
}

// Entries returns a snapshot of the buffer, newest first.
func (l *Logger) Entries() []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Get returns the entry with the given id.
func (l *Logger) Get(id string) (*Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// Clear empties the buffer and the store.
func (l *Logger) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	if l.store != nil {
		return l.store.ClearEntries()
	}
	return nil
}

// redactHeaders replaces sensitive header values with a marker, matching
// names case-insensitively while preserving the original casing.
func redactHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if sensitiveHeaders[strings.ToLower(k)] {
			out[k] = redactedValue
		} else {
			out[k] = v
		}
	}
	return out
}
