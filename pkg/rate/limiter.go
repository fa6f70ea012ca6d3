package rate

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/code-payments/bounty-board/pkg/cache"
)

// Limiter limits operations based on a provided key.
type Limiter interface {
	Allow(key string) (bool, error)
}

type localRateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters cache.Cache
}

// NewLocalRateLimiter returns an in memory limiter that allows limit
// operations per second, per key, with bursts of up to burst operations.
// At most maxKeys keys are tracked, with the least recently seen keys being
// forgotten first.
func NewLocalRateLimiter(limit rate.Limit, burst, maxKeys int) Limiter {
	return &localRateLimiter{
		limit:    limit,
		burst:    burst,
		limiters: cache.NewCache(maxKeys),
	}
}

// Allow implements Limiter.Allow
func (l *localRateLimiter) Allow(key string) (bool, error) {
	l.mu.Lock()
	var limiter *rate.Limiter
	cached, ok := l.limiters.Retrieve(key)
	if ok {
		limiter = cached.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(l.limit, l.burst)
		if err := l.limiters.Insert(key, limiter, 1); err != nil {
			l.mu.Unlock()
			return false, err
		}
	}
	l.mu.Unlock()

	return limiter.Allow(), nil
}

// NoLimiter never limits operations
type NoLimiter struct {
}

// Allow implements Limiter.Allow
func (n *NoLimiter) Allow(key string) (bool, error) {
	return true, nil
}
