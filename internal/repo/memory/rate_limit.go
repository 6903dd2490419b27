package memory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per key: limit tokens, refilled evenly
// over per.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyLimiter
	now      func() time.Time
}

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{limiters: make(map[string]*keyLimiter), now: time.Now}
}

func (l *RateLimiter) Allow(_ context.Context, key string, limit int, per time.Duration) (bool, error) {
	if limit <= 0 || per <= 0 {
		return true, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	kl, ok := l.limiters[key]
	if !ok {
		kl = &keyLimiter{limiter: rate.NewLimiter(rate.Every(per/time.Duration(limit)), limit)}
		l.limiters[key] = kl
	}
	kl.lastSeen = now
	return kl.limiter.AllowN(now, 1), nil
}

// CleanupExpired drops limiters idle for at least per. Their buckets are
// full again by then, so dropping them forgets nothing.
func (l *RateLimiter) CleanupExpired(per time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for k, kl := range l.limiters {
		if now.Sub(kl.lastSeen) >= per {
			delete(l.limiters, k)
			removed++
		}
	}
	return removed
}
