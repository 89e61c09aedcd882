// Package traffic keeps sliding windows of request outcomes. Health reporting reads
// the error rate (degraded) and rate-limit denials (overloaded) from here.
package traffic

import (
	"sync"
	"time"
)

// retention bounds memory; no health window is longer than this.
const retention = 10 * time.Minute

// Outcome is the result of one dashboard request.
type Outcome int

const (
	Success Outcome = iota
	Failure
	Denied
)

var defaultTracker = NewTracker()

// Record records an outcome on the process-wide tracker.
func Record(o Outcome) { defaultTracker.Record(o) }

// RequestCount returns all outcomes (success, failure, denied) within the window.
func RequestCount(window time.Duration) int { return defaultTracker.Snapshot(window).Total() }

// DenialCount returns rate-limit denials within the window.
func DenialCount(window time.Duration) int { return defaultTracker.Snapshot(window).Denied }

// ErrorRate returns (failures, successes+failures) within the window. Denials are excluded.
func ErrorRate(window time.Duration) (errors, total int) {
	s := defaultTracker.Snapshot(window)
	return s.Failures, s.Successes + s.Failures
}

// Reset clears the process-wide tracker. For tests only.
func Reset() { defaultTracker.Reset() }

// Counts is a point-in-time view of one window.
type Counts struct {
	Successes int
	Failures  int
	Denied    int
}

// Total returns the number of outcomes of any kind.
func (c Counts) Total() int { return c.Successes + c.Failures + c.Denied }

// Tracker maintains timestamps per outcome.
type Tracker struct {
	mu    sync.Mutex
	times [3][]time.Time
	now   func() time.Time
}

// NewTracker returns an empty Tracker using the wall clock.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// Record appends an outcome at the current time.
func (t *Tracker) Record(o Outcome) {
	if o < Success || o > Denied {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.times[o] = append(t.times[o], now)
	t.pruneLocked(now)
}

// Snapshot counts outcomes within the window ending now.
func (t *Tracker) Snapshot(window time.Duration) Counts {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	return Counts{
		Successes: countSince(t.times[Success], cutoff),
		Failures:  countSince(t.times[Failure], cutoff),
		Denied:    countSince(t.times[Denied], cutoff),
	}
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.times = [3][]time.Time{}
}

// countSince relies on timestamps being appended in order.
func countSince(times []time.Time, cutoff time.Time) int {
	i := 0
	for ; i < len(times) && times[i].Before(cutoff); i++ {
	}
	return len(times) - i
}

func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	for o := range t.times {
		times := t.times[o]
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			t.times[o] = append(times[:0], times[i:]...)
		}
	}
}
