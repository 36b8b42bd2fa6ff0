package reqlog

import "strings"

// FilterOptions selects entries. All provided criteria are ANDed; zero
// values mean "no constraint".
type FilterOptions struct {
	Method   string // exact, case-insensitive
	Status   int    // exact
	Success  *bool
	URL      string // substring
	HasError *bool
}

// Filtered returns the entries matching the options, newest first.
func (l *Logger) Filtered(f FilterOptions) []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if f.Method != "" && !strings.EqualFold(e.Method, f.Method) {
			continue
		}
		if f.Status != 0 && e.Status != f.Status {
			continue
		}
		if f.Success != nil && e.Success != *f.Success {
			continue
		}
		if f.URL != "" && !strings.Contains(e.URL, f.URL) {
			continue
		}
		if f.HasError != nil && (e.Error != "") != *f.HasError {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Stats aggregates the current buffer.
type Stats struct {
	Total         int     `json:"total"`
	Successes     int     `json:"successes"`
	Errors        int     `json:"errors"`
	SuccessRate   float64 `json:"successRate"` // percentage
	ErrorRate     float64 `json:"errorRate"`   // percentage
	AvgDurationMs float64 `json:"avgDurationMs"`
	MinDurationMs int64   `json:"minDurationMs"`
	MaxDurationMs int64   `json:"maxDurationMs"`
}

// Stats computes aggregate performance figures over the buffer.
// Durations are aggregated over entries that recorded one; an empty
// buffer yields all zeros. Calling Stats repeatedly without intervening
// Log calls returns identical results.
func (l *Logger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var s Stats
	s.Total = len(l.entries)
	if s.Total == 0 {
		return s
	}

	var timed int
	var sum int64
	for _, e := range l.entries {
		if e.Success {
			s.Successes++
		} else {
			s.Errors++
		}
		if e.DurationMs <= 0 {
			continue
		}
		if timed == 0 || e.DurationMs < s.MinDurationMs {
			s.MinDurationMs = e.DurationMs
		}
		if e.DurationMs > s.MaxDurationMs {
			s.MaxDurationMs = e.DurationMs
		}
		sum += e.DurationMs
		timed++
	}

	s.SuccessRate = float64(s.Successes) / float64(s.Total) * 100
	s.ErrorRate = float64(s.Errors) / float64(s.Total) * 100
	if timed > 0 {
		s.AvgDurationMs = float64(sum) / float64(timed)
	}
	return s
}
