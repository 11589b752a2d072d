package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleExpiry = 15 * time.Minute

// LoginLimiter rate-limits login attempts per email with a token bucket per
// key. Idle buckets are swept on access, so the map cannot grow without
// bound under a credential-stuffing run.
type LoginLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLoginLimiter(limit rate.Limit, burst int) *LoginLimiter {
	return &LoginLimiter{
		limit:     limit,
		burst:     burst,
		entries:   make(map[string]*limiterEntry),
		lastSweep: time.Now(),
	}
}

// Allow reports whether one more attempt for the key is within the limit
func (l *LoginLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > limiterIdleExpiry {
		l.sweep(now)
	}

	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now

	return entry.limiter.Allow()
}

func (l *LoginLimiter) sweep(now time.Time) {
	for key, entry := range l.entries {
		if now.Sub(entry.lastSeen) > limiterIdleExpiry {
			delete(l.entries, key)
		}
	}
	l.lastSweep = now
}
