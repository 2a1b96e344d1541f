package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const throttleEntryTTL = 15 * time.Minute

// LoginThrottle bounds authentication attempts per subject (email|ip) with a
// token bucket, so repeated failures hit a wall before any credential work
// happens. Stale buckets are swept inline; no background goroutine.
type LoginThrottle struct {
	mu        sync.Mutex
	buckets   map[string]*throttleBucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

type throttleBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewLoginThrottle allows perMinute sustained attempts with the given burst.
func NewLoginThrottle(perMinute, burst int) *LoginThrottle {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 5
	}
	return &LoginThrottle{
		buckets: make(map[string]*throttleBucket),
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether another attempt for subject may proceed.
func (t *LoginThrottle) Allow(subject string) bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if now.Sub(t.lastSweep) > time.Minute {
		for k, b := range t.buckets {
			if now.Sub(b.seen) > throttleEntryTTL {
				delete(t.buckets, k)
			}
		}
		t.lastSweep = now
	}

	b, ok := t.buckets[subject]
	if !ok {
		b = &throttleBucket{lim: rate.NewLimiter(t.limit, t.burst)}
		t.buckets[subject] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}
