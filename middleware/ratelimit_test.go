package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBurstThenReject(t *testing.T) {
	l := NewMessageRateLimiter(context.Background(), 1, 3) // ~1/min refill, burst of 3

	for i := 0; i < 3; i++ {
		assert.True(t, l.allow("user-1"), "request %d should pass within burst", i)
	}
	assert.False(t, l.allow("user-1"), "request beyond burst should be rejected")
}

func TestRateLimiterIsolatesUsers(t *testing.T) {
	l := NewMessageRateLimiter(context.Background(), 1, 1)

	assert.True(t, l.allow("user-1"))
	assert.False(t, l.allow("user-1"))

	// A different user has their own bucket.
	assert.True(t, l.allow("user-2"))
}

func TestRateLimiterCleanupDropsIdleBuckets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewMessageRateLimiter(ctx, 1, 1)

	l.allow("user-1")
	l.allow("user-2")

	// A cutoff in the future makes every bucket idle.
	l.cleanup(time.Now().Add(time.Minute))

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.limiters)
}
