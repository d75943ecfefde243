// Package telemetry tracks the progress of a running valuation. It consumes
// unit-of-work completion notifications and produces percentage, throughput
// and ETA snapshots against a total-cost denominator known before the run
// starts.
package telemetry

import (
	"sync"
	"time"
)

// DefaultWindowFraction sizes the sliding timestamp window relative to the
// total cost. DefaultFallbackRate is the rate assumed before the window holds
// enough samples to measure one. Both are smoothing heuristics, not
// correctness invariants, and can be overridden per tracker.
const (
	DefaultWindowFraction = 0.5
	DefaultFallbackRate   = 0.001
)

// Clock supplies the current time. Injected for deterministic tests.
type Clock func() time.Time

// Option configures a Tracker at construction.
type Option func(*Tracker)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithWindowFraction sets the window capacity as a fraction of total cost.
// Values outside (0, 1] fall back to the default.
func WithWindowFraction(f float64) Option {
	return func(t *Tracker) {
		if f > 0 && f <= 1 {
			t.windowFraction = f
		}
	}
}

// WithFallbackRate sets the rate assumed while fewer than two samples are in
// the window. Non-positive values fall back to the default.
func WithFallbackRate(r float64) Option {
	return func(t *Tracker) {
		if r > 0 {
			t.fallbackRate = r
		}
	}
}

// Snapshot is a point-in-time view of valuation progress. ETA is a
// best-effort estimate; it may briefly overshoot while the window is warming
// up and must never be treated as a guarantee.
type Snapshot struct {
	Completed int
	TotalCost int
	Percent   float64
	Rate      float64
	ETA       time.Duration
}

// Done reports whether every unit of work has completed.
func (s Snapshot) Done() bool { return s.Completed >= s.TotalCost }

// Tracker accumulates unit-of-work completion timestamps in a fixed-capacity
// FIFO window and derives a recent-weighted throughput estimate from it.
// OnUnitCompleted is safe for concurrent use by multiple producer goroutines;
// the append, evict and count increment happen atomically under one lock so
// window length and completed count cannot diverge.
type Tracker struct {
	mu sync.Mutex

	clock          Clock
	totalCost      int
	windowFraction float64
	fallbackRate   float64

	// window is a ring of completion timestamps. head indexes the oldest
	// retained sample; size is the number of live samples.
	window []time.Time
	head   int
	size   int

	completed int
}

// New creates a Tracker for a run of totalCost units. The window capacity is
// max(1, windowFraction*totalCost), computed once here.
func New(totalCost int, opts ...Option) *Tracker {
	t := &Tracker{
		clock:          time.Now,
		totalCost:      totalCost,
		windowFraction: DefaultWindowFraction,
		fallbackRate:   DefaultFallbackRate,
	}
	for _, opt := range opts {
		opt(t)
	}
	capacity := int(t.windowFraction * float64(totalCost))
	if capacity < 1 {
		capacity = 1
	}
	t.window = make([]time.Time, capacity)
	return t
}

// OnUnitCompleted records one completed unit of work at the current time,
// evicting the oldest retained timestamp once the window is full.
func (t *Tracker) OnUnitCompleted() {
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.size == len(t.window) {
		t.head = (t.head + 1) % len(t.window)
		t.size--
	}
	t.window[(t.head+t.size)%len(t.window)] = now
	t.size++
	t.completed++
}

// Completed returns the monotonic count of completed units.
func (t *Tracker) Completed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

// WindowLen returns the number of timestamps currently retained.
func (t *Tracker) WindowLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}

// WindowCap returns the fixed window capacity.
func (t *Tracker) WindowCap() int { return len(t.window) }

// Snapshot derives the current percentage, throughput and ETA.
//
// The rate is instantaneous throughput over the retained window,
// (len-1)/(newest-oldest), so it adapts to changing load instead of averaging
// over the whole run. With fewer than two samples the fallback rate avoids a
// division by zero. A zero total cost short-circuits to 100% with undefined
// (zero) rate and ETA.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.totalCost == 0 {
		return Snapshot{Completed: t.completed, Percent: 100}
	}

	rate := t.fallbackRate
	if t.size >= 2 {
		oldest := t.window[t.head]
		newest := t.window[(t.head+t.size-1)%len(t.window)]
		if span := newest.Sub(oldest).Seconds(); span > 0 {
			rate = float64(t.size-1) / span
		}
	}

	remaining := float64(t.totalCost-t.completed) / rate
	return Snapshot{
		Completed: t.completed,
		TotalCost: t.totalCost,
		Percent:   100 * float64(t.completed) / float64(t.totalCost),
		Rate:      rate,
		ETA:       time.Duration(remaining * float64(time.Second)),
	}
}
