// Package staleness tracks how old the external observations that populated
// a calculator's inputs are, and flags values older than a freshness
// threshold.
//
// Records live for the lifetime of one mounted calculator instance. Nothing
// expires a record; staleness is re-evaluated against the clock on every
// read.
package staleness

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultThreshold flags values older than 24 hours.
const DefaultThreshold = 24 * time.Hour

// Record associates a populated field with the timestamp of the observation
// that filled it.
type Record struct {
	FieldID    string
	Code       string
	Label      string
	ObservedAt time.Time
}

// Info is the evaluated freshness of one observation.
type Info struct {
	Stale      bool
	ObservedAt time.Time
	Age        time.Duration
	AgeDays    int
}

// Tracker holds the staleness records for one calculator instance.
type Tracker struct {
	mu        sync.Mutex
	threshold time.Duration
	records   map[string]Record
	now       func() time.Time
}

// NewTracker creates a tracker. A non-positive threshold falls back to
// DefaultThreshold.
func NewTracker(threshold time.Duration) *Tracker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Tracker{
		threshold: threshold,
		records:   make(map[string]Record),
		now:       time.Now,
	}
}

// SetClock overrides the clock. Tests only.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Check evaluates an observation timestamp against the threshold.
func (t *Tracker) Check(observedAt time.Time) Info {
	t.mu.Lock()
	now := t.now()
	threshold := t.threshold
	t.mu.Unlock()

	age := now.Sub(observedAt)
	return Info{
		Stale:      age > threshold,
		ObservedAt: observedAt,
		Age:        age,
		AgeDays:    int(age.Hours() / 24),
	}
}

// Track registers a record for a field and returns its current freshness.
// Re-tracking a field replaces its record.
func (t *Tracker) Track(fieldID string, observedAt time.Time, code, label string) Info {
	t.mu.Lock()
	t.records[fieldID] = Record{
		FieldID:    fieldID,
		Code:       code,
		Label:      label,
		ObservedAt: observedAt,
	}
	t.mu.Unlock()
	return t.Check(observedAt)
}

// Clear drops the record for a field, if any.
func (t *Tracker) Clear(fieldID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, fieldID)
}

// ClearAll drops every record.
func (t *Tracker) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = make(map[string]Record)
}

// StaleItems returns the records whose observations are currently older than
// the threshold, ordered by field id. The evaluation happens at call time;
// a record that was fresh on the last render pass can be stale on the next.
func (t *Tracker) StaleItems() []Record {
	t.mu.Lock()
	now := t.now()
	threshold := t.threshold
	records := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		records = append(records, r)
	}
	t.mu.Unlock()

	var stale []Record
	for _, r := range records {
		if now.Sub(r.ObservedAt) > threshold {
			stale = append(stale, r)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].FieldID < stale[j].FieldID })
	return stale
}

// Lookup returns the record for a field.
func (t *Tracker) Lookup(fieldID string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.records[fieldID]
	return r, ok
}

// FormatAge renders an age for display, e.g. "14 days old" or "6 hours old".
func FormatAge(age time.Duration) string {
	days := int(age.Hours() / 24)
	switch {
	case days >= 365:
		years := days / 365
		if years == 1 {
			return "1 year old"
		}
		return fmt.Sprintf("%d years old", years)
	case days >= 30:
		months := days / 30
		if months == 1 {
			return "1 month old"
		}
		return fmt.Sprintf("%d months old", months)
	case days >= 1:
		if days == 1 {
			return "1 day old"
		}
		return fmt.Sprintf("%d days old", days)
	default:
		hours := int(age.Hours())
		if hours <= 1 {
			return "1 hour old"
		}
		return fmt.Sprintf("%d hours old", hours)
	}
}
