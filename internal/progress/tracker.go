package progress

import (
	"fmt"
	"sync"
)

// Entry is the progress of one task key
type Entry struct {
	Numerator   int  `json:"numerator"`
	Denominator int  `json:"denominator"`
	Finished    bool `json:"finished"`
}

// Rate returns the completion fraction in [0, 1]
func (e Entry) Rate() float64 {
	if e.Finished {
		return 1
	}
	if e.Denominator <= 0 || e.Numerator <= 0 {
		return 0
	}
	if e.Numerator >= e.Denominator {
		return 1
	}
	return float64(e.Numerator) / float64(e.Denominator)
}

// Tracker is a pollable map from task key (analyzer id) to completion fraction.
// Writers are the run's worker, readers are observers on other goroutines.
// ⭐ SSOT: 분석 진행률은 이 구조체에서만 관리
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]Entry)}
}

// Reset clears all entries at the start of a run
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = make(map[string]Entry)
}

// SetProgress records numerator/denominator for key.
// Finished entries are terminal and ignore further updates.
func (t *Tracker) SetProgress(key string, numerator, denominator int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[key]; ok && e.Finished {
		return
	}
	t.entries[key] = Entry{Numerator: numerator, Denominator: denominator}
}

// FinishProgress marks key as 100% and terminal
func (t *Tracker) FinishProgress(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[key]
	if e.Denominator <= 0 {
		e.Denominator = 1
	}
	e.Numerator = e.Denominator
	e.Finished = true
	t.entries[key] = e
}

// HasProgress reports whether key has been started
func (t *Tracker) HasProgress(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.entries[key]
	return ok
}

// ProgressRate returns the fraction for key; 0 when key was never started.
// Use HasProgress to tell "not started" from 0%.
func (t *Tracker) ProgressRate(key string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.entries[key].Rate()
}

// IsFinished reports whether key was marked finished
func (t *Tracker) IsFinished(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.entries[key].Finished
}

// Snapshot returns a copy of all entries
func (t *Tracker) Snapshot() map[string]Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]Entry, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}

// Percent renders the progress of key as "12.34%", or "" when key was never started
func (t *Tracker) Percent(key string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[key]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%.2f%%", e.Rate()*100)
}
