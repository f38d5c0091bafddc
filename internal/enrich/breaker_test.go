package enrich

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker(t *testing.T) {
	t.Run("closed until threshold reached", func(t *testing.T) {
		b := NewBreaker(3, 5*time.Minute, 10*time.Minute)
		b.Failure()
		b.Failure()
		assert.False(t, b.Open())
		b.Failure()
		assert.True(t, b.Open())
	})

	t.Run("failures outside window are dropped", func(t *testing.T) {
		current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		b := NewBreaker(3, 5*time.Minute, 10*time.Minute)
		b.now = func() time.Time { return current }

		b.Failure()
		b.Failure()
		current = current.Add(6 * time.Minute)
		b.Failure()
		assert.False(t, b.Open(), "stale failures should not count toward the threshold")
	})

	t.Run("closes after cooldown", func(t *testing.T) {
		current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		b := NewBreaker(1, 5*time.Minute, 10*time.Minute)
		b.now = func() time.Time { return current }

		b.Failure()
		assert.True(t, b.Open())

		retryAt, open := b.RetryAt()
		assert.True(t, open)
		assert.Equal(t, current.Add(10*time.Minute), retryAt)

		current = current.Add(10*time.Minute + time.Second)
		assert.False(t, b.Open())
		_, open = b.RetryAt()
		assert.False(t, open)
	})

	t.Run("trip opens immediately", func(t *testing.T) {
		b := NewBreaker(3, 5*time.Minute, 10*time.Minute)
		b.Trip()
		assert.True(t, b.Open())
	})

	t.Run("success resets failure count", func(t *testing.T) {
		b := NewBreaker(3, 5*time.Minute, 10*time.Minute)
		b.Failure()
		b.Failure()
		b.Success()
		b.Failure()
		b.Failure()
		assert.False(t, b.Open())
	})

	t.Run("zero values use defaults", func(t *testing.T) {
		b := NewBreaker(0, 0, 0)
		assert.Equal(t, DefaultFailureThreshold, b.threshold)
		assert.Equal(t, DefaultFailureWindow, b.window)
		assert.Equal(t, DefaultCooldown, b.cooldown)
	})
}
