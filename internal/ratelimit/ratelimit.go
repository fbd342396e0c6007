package ratelimit

import (
	"sync"
	"time"
)

// cleanupInterval controls how often the limiter scans for and removes
// users whose every recorded attempt has already expired.
const cleanupInterval = 5 * time.Minute

// Config holds limiter settings.
type Config struct {
	// Quota is the maximum number of admitted messages per window.
	Quota int

	// Window is the trailing interval the quota applies to.
	Window time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Quota:  10,
		Window: time.Minute,
	}
}

// Limiter admits or denies messages per user over a sliding window.
type Limiter struct {
	quota  int
	window time.Duration

	mu          sync.Mutex
	attempts    map[string][]time.Time
	lastCleanup time.Time
	denied      uint64
}

// NewLimiter creates a limiter with the given config.
func NewLimiter(cfg Config) *Limiter {
	return &Limiter{
		quota:       cfg.Quota,
		window:      cfg.Window,
		attempts:    make(map[string][]time.Time),
		lastCleanup: time.Now(),
	}
}

// Allow reports whether the user may send another message now. An admitted
// attempt is recorded; a denied one leaves the window unchanged apart from
// pruning.
func (l *Limiter) Allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	// Periodically drop users with no live attempts left.
	if now.Sub(l.lastCleanup) > cleanupInterval {
		for k, times := range l.attempts {
			allExpired := true
			for _, t := range times {
				if t.After(cutoff) {
					allExpired = false
					break
				}
			}
			if allExpired {
				delete(l.attempts, k)
			}
		}
		l.lastCleanup = now
	}

	// Prune this user's expired attempts.
	existing := l.attempts[userID]
	pruned := make([]time.Time, 0, len(existing))
	for _, t := range existing {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}

	if len(pruned) >= l.quota {
		l.attempts[userID] = pruned
		l.denied++
		return false
	}

	l.attempts[userID] = append(pruned, now)
	return true
}

// Reset clears all recorded attempts.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = make(map[string][]time.Time)
	l.denied = 0
}

// LimiterStats is a point-in-time snapshot of limiter state.
type LimiterStats struct {
	TrackedUsers int
	Denied       uint64
}

// Stats returns current limiter statistics.
func (l *Limiter) Stats() LimiterStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LimiterStats{
		TrackedUsers: len(l.attempts),
		Denied:       l.denied,
	}
}
