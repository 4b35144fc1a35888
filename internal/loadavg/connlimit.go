package loadavg

import (
	"net/netip"
	"time"

	"github.com/joeycumines/go-catrate"
)

// ConnLimiter throttles accepted connections per source address, guarding a
// worker's accept path against a connection storm from one peer without
// touching the per-statement routing path at all. It is a thin adapter over
// the teacher's multi-window sliding-window limiter.
type ConnLimiter struct {
	limiter *catrate.Limiter
}

// NewConnLimiter builds a ConnLimiter from a set of window→max-connections
// rates (e.g. {1s: 20, 1m: 200}), in the same monotonic-rate shape
// catrate.NewLimiter requires.
func NewConnLimiter(rates map[time.Duration]int) *ConnLimiter {
	if len(rates) == 0 {
		return &ConnLimiter{}
	}
	return &ConnLimiter{limiter: catrate.NewLimiter(rates)}
}

// Allow registers one accepted connection from addr's IP and reports
// whether it's within the configured rates; if not, the returned time is
// when the next connection from that address would be allowed.
func (l *ConnLimiter) Allow(addr netip.Addr) (time.Time, bool) {
	if l.limiter == nil {
		return time.Time{}, true
	}
	return l.limiter.Allow(addr)
}
