package ollama

import (
	"sync/atomic"
	"time"
)

// breaker trips after threshold consecutive failures and stays open for
// reset. The first call after reset elapses is let through (half-open).
type breaker struct {
	threshold int32
	reset     time.Duration

	failures  atomic.Int32
	openUntil atomic.Int64 // unix nano
}

func newBreaker(threshold int, reset time.Duration) *breaker {
	return &breaker{threshold: int32(threshold), reset: reset}
}

func (b *breaker) open(now time.Time) bool {
	if b.threshold <= 0 || b.failures.Load() < b.threshold {
		return false
	}
	if now.UnixNano() < b.openUntil.Load() {
		return true
	}
	b.failures.Store(0)
	return false
}

func (b *breaker) fail(now time.Time) {
	if b.failures.Add(1) >= b.threshold && b.threshold > 0 {
		b.openUntil.Store(now.Add(b.reset).UnixNano())
	}
}

func (b *breaker) succeed() {
	b.failures.Store(0)
}
