package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL is how long a caller may stay silent before its bucket is dropped.
// Buckets refill completely within one minute, so a dropped bucket and a
// fresh one admit the same requests.
const idleTTL = time.Minute

// RateLimiter enforces a per-caller request rate.
// Uses token bucket algorithm via golang.org/x/time/rate.
type RateLimiter struct {
	mu        sync.Mutex
	callers   map[string]*callerBucket
	perCaller rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

type callerBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing perCallerRPM requests per minute
// to each caller, with a burst of the same size. It returns nil when
// perCallerRPM is not positive, which disables limiting.
func NewRateLimiter(perCallerRPM int) *RateLimiter {
	if perCallerRPM <= 0 {
		return nil
	}
	return &RateLimiter{
		callers:   make(map[string]*callerBucket),
		perCaller: rate.Limit(float64(perCallerRPM) / 60.0),
		burst:     perCallerRPM,
		now:       time.Now,
	}
}

// Allow checks whether a request from the given caller is allowed. Callers
// idle for longer than a minute are forgotten, at most one sweep per minute.
func (rl *RateLimiter) Allow(caller string) bool {
	if rl == nil {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= idleTTL {
		for k, b := range rl.callers {
			if now.Sub(b.lastSeen) >= idleTTL {
				delete(rl.callers, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.callers[caller]
	if !ok {
		b = &callerBucket{limiter: rate.NewLimiter(rl.perCaller, rl.burst)}
		rl.callers[caller] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// tracked reports how many caller buckets are held.
func (rl *RateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.callers)
}
