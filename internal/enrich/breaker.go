package enrich

import (
	"sync"
	"time"
)

// Breaker default tuning. Operationally adjustable through configuration;
// these are only starting points.
const (
	DefaultFailureThreshold = 3
	DefaultFailureWindow    = 5 * time.Minute
	DefaultCooldown         = 10 * time.Minute
)

// Breaker stops external enrichment calls after repeated failures inside a
// sliding window, resuming once a cooldown elapses. It is plain mutable
// state owned by one Processor; there are no package-level instances.
type Breaker struct {
	threshold int
	window    time.Duration
	cooldown  time.Duration
	now       func() time.Time

	mu        sync.Mutex
	failures  []time.Time
	openUntil time.Time
}

// NewBreaker builds a breaker with the given tuning. Zero values fall back
// to the defaults.
func NewBreaker(threshold int, window, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if window <= 0 {
		window = DefaultFailureWindow
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Breaker{
		threshold: threshold,
		window:    window,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Open reports whether calls should currently be skipped.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().Before(b.openUntil)
}

// RetryAt returns when the breaker will close again, and whether it is
// currently open. Surfaced in status payloads for operators.
func (b *Breaker) RetryAt() (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.now().Before(b.openUntil) {
		return b.openUntil, true
	}
	return time.Time{}, false
}

// Failure records one failed external call. Crossing the threshold within
// the sliding window opens the breaker for the cooldown period.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()

	kept := b.failures[:0]
	for _, t := range b.failures {
		if now.Sub(t) <= b.window {
			kept = append(kept, t)
		}
	}
	b.failures = append(kept, now)

	if len(b.failures) >= b.threshold {
		b.openUntil = now.Add(b.cooldown)
		b.failures = b.failures[:0]
	}
}

// Trip opens the breaker immediately, used when the provider signals a
// quota exhaustion that makes further calls pointless.
func (b *Breaker) Trip() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openUntil = b.now().Add(b.cooldown)
	b.failures = b.failures[:0]
}

// Success clears accumulated failures.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = b.failures[:0]
}
