// Package loadavg implements the per-worker load metric from spec §4.2: the
// fraction of wall time a worker spent in the PROCESSING state, computed
// over granularity-aligned windows and published for cross-thread reads —
// the one piece of worker state spec §5's shared-resource policy allows a
// router to read from another thread.
package loadavg

import (
	"math"
	"sync/atomic"
	"time"
)

// DefaultGranularity is LOAD_GRANULARITY from spec §4.2's epoll-loop
// timeout computation: one second.
const DefaultGranularity = time.Second

// Tracker accumulates busy/idle time for one worker. AddBusy/Tick/Timeout
// are called only from the owning worker's thread; Load is safe from any
// thread. The single atomic word carries the published fraction as
// float64 bits, release-stored on write and acquire-loaded on read, per
// spec §5's publication rule — this mirrors the atomic int64 load/store
// pairing catrate's categoryData uses to publish its "next allowed event"
// and "last seen" timestamps across goroutines without a lock.
type Tracker struct {
	granularity time.Duration
	windowStart time.Time
	busy        time.Duration
	published   atomic.Uint64
}

// New returns a Tracker with the given window granularity, its window
// anchored at now.
func New(granularity time.Duration, now time.Time) *Tracker {
	if granularity <= 0 {
		granularity = DefaultGranularity
	}
	return &Tracker{granularity: granularity, windowStart: now}
}

// AddBusy records that the worker spent d of wall time in PROCESSING since
// the last call, and rolls the window over (publishing its fraction) for
// every granularity boundary that now has elapsed.
func (t *Tracker) AddBusy(now time.Time, d time.Duration) {
	t.busy += d
	t.rollTo(now)
}

// Tick rolls the window over without adding busy time, for callers that
// poll with zero events (an idle tick still advances the window).
func (t *Tracker) Tick(now time.Time) {
	t.rollTo(now)
}

func (t *Tracker) rollTo(now time.Time) {
	for {
		elapsed := now.Sub(t.windowStart)
		if elapsed < t.granularity {
			return
		}
		if t.busy > elapsed {
			t.busy = elapsed
		}
		frac := float64(t.busy) / float64(t.granularity)
		t.publish(frac)
		t.windowStart = t.windowStart.Add(t.granularity)
		t.busy -= t.granularity
		if t.busy < 0 {
			t.busy = 0
		}
	}
}

// Timeout returns the epoll wait timeout for the current tick, per spec
// §4.2's "timeout = max(0, LOAD_GRANULARITY − (now − window_start))".
func (t *Tracker) Timeout(now time.Time) time.Duration {
	remaining := t.granularity - now.Sub(t.windowStart)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (t *Tracker) publish(frac float64) {
	t.published.Store(math.Float64bits(frac))
}

// Load returns the most recently published load fraction, safe to call
// from any goroutine.
func (t *Tracker) Load() float64 {
	return math.Float64frombits(t.published.Load())
}
