// Package ratelimit provides a lock-free token bucket limiter.
package ratelimit

import (
	"sync/atomic"
	"time"
)

// Limiter is a token bucket driven entirely by atomic operations. The
// rate is fixed at construction; only the token count and refill clock
// mutate afterwards.
type Limiter struct {
	tokens       int64
	lastRefillNs int64
	maxTokens    int64
	intervalNs   int64
}

// NewLimiter allows ratePerInterval requests per interval.
func NewLimiter(ratePerInterval int, interval time.Duration) *Limiter {
	tokens := int64(ratePerInterval)
	return &Limiter{
		tokens:       tokens,
		maxTokens:    tokens,
		intervalNs:   int64(interval),
		lastRefillNs: time.Now().UnixNano(),
	}
}

// Allow reports whether a request may proceed, refilling the bucket for
// any whole intervals that elapsed since the last refill.
func (l *Limiter) Allow() bool {
	now := time.Now().UnixNano()
	lastRefill := atomic.LoadInt64(&l.lastRefillNs)

	if elapsed := now - lastRefill; elapsed >= l.intervalNs {
		tokensToAdd := (elapsed / l.intervalNs) * l.maxTokens

		// Whoever wins the clock swap performs the refill.
		if atomic.CompareAndSwapInt64(&l.lastRefillNs, lastRefill, now) {
			for {
				current := atomic.LoadInt64(&l.tokens)
				newTokens := current + tokensToAdd
				if newTokens > l.maxTokens {
					newTokens = l.maxTokens
				}
				if atomic.CompareAndSwapInt64(&l.tokens, current, newTokens) {
					break
				}
			}
		}
	}

	for {
		current := atomic.LoadInt64(&l.tokens)
		if current <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt64(&l.tokens, current, current-1) {
			return true
		}
	}
}
