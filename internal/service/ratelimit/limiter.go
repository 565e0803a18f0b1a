package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key, created on first use.
type Limiter struct {
	mu  sync.Mutex
	m   map[string]*rate.Limiter
	now func() time.Time
}

func New() *Limiter { return &Limiter{m: make(map[string]*rate.Limiter), now: time.Now} }

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	return l.get(key, capacity, refillPerSec).AllowN(l.now(), 1)
}

// Wait blocks until a token for key is available or ctx is done.
// It fails early when ctx expires before a token could be granted.
func (l *Limiter) Wait(ctx context.Context, key string, capacity, refillPerSec float64) error {
	return l.get(key, capacity, refillPerSec).Wait(ctx)
}

// get returns the bucket for key, applying capacity and rate if they changed.
func (l *Limiter) get(key string, capacity, refillPerSec float64) *rate.Limiter {
	burst := int(math.Max(1, math.Floor(capacity)))
	limit := rate.Limit(math.Max(0, refillPerSec))

	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.m[key]
	if !ok {
		b = rate.NewLimiter(limit, burst)
		l.m[key] = b
		return b
	}
	if b.Limit() != limit {
		b.SetLimitAt(l.now(), limit)
	}
	if b.Burst() != burst {
		b.SetBurstAt(l.now(), burst)
	}
	return b
}
