// Package ratelimit gates hot-path log lines with a leaky bucket so a
// flapping pilot or a noisy safety entry can't flood the log sink.
package ratelimit

import "github.com/pazzk-labs/evse-core/x/timex"

// LeakyBucket allows up to Capacity tokens to accumulate, leaking
// LeakPerSec tokens every second. Allow reports whether a token was
// available and, if so, consumes it.
type LeakyBucket struct {
	capacity   float64
	leakPerSec float64

	tokens  float64
	lastMs  int64
	started bool
}

// New builds a bucket with the given capacity and leak rate (tokens/sec).
func New(capacity int, leakPerSec float64) *LeakyBucket {
	return &LeakyBucket{capacity: float64(capacity), leakPerSec: leakPerSec}
}

// NewLogGate is the specific bucket used for rate-limited logging:
// capacity 10, leak 2 tokens/s.
func NewLogGate() *LeakyBucket { return New(10, 2) }

// Allow reports whether a call site may log right now.
func (b *LeakyBucket) Allow() bool { return b.AllowAt(timex.NowMs()) }

// AllowAt is Allow with an explicit timestamp, for deterministic tests.
func (b *LeakyBucket) AllowAt(nowMs int64) bool {
	if !b.started {
		b.tokens = b.capacity
		b.lastMs = nowMs
		b.started = true
	} else if nowMs > b.lastMs {
		elapsedSec := float64(nowMs-b.lastMs) / 1000.0
		b.tokens += elapsedSec * b.leakPerSec
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.lastMs = nowMs
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
