// duomatch/middleware/ratelimit.go
package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// userLimiter holds one user's token bucket and last access time.
type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// MessageRateLimiter limits message sends per user. Buckets idle for longer
// than the cleanup window are dropped.
type MessageRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*userLimiter
	rate     rate.Limit
	burst    int
}

func NewMessageRateLimiter(ctx context.Context, perMinute, burst int) *MessageRateLimiter {
	l := &MessageRateLimiter{
		limiters: make(map[string]*userLimiter),
		rate:     rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
	}
	go l.cleanupLoop(ctx)
	return l
}

// Handler rejects sends that exceed the caller's bucket.
func (l *MessageRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		if userID == "" {
			return c.Next() // secured routes guarantee a user id; don't double-guard
		}
		if !l.allow(userID) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error": fiber.Map{
					"code":    "RATE_LIMITED",
					"message": "too many messages, slow down",
				},
			})
		}
		return c.Next()
	}
}

func (l *MessageRateLimiter) allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.limiters[userID]
	if !ok {
		entry = &userLimiter{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[userID] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter.Allow()
}

func (l *MessageRateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cleanup(time.Now().Add(-15 * time.Minute))
		}
	}
}

// cleanup drops buckets idle since before cutoff.
func (l *MessageRateLimiter) cleanup(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for userID, entry := range l.limiters {
		if entry.lastAccess.Before(cutoff) {
			delete(l.limiters, userID)
		}
	}
}
