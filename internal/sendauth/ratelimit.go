package sendauth

import (
	"fmt"
	"sync"
	"time"
)

// Limits configures the sliding-window quotas enforced before issuing a code.
type Limits struct {
	RecipientHourly int
	RecipientDaily  int
	IPHourly        int
}

// DefaultLimits mirrors the documented defaults: 3/hour and 10/day per
// recipient, 10/hour per source IP.
func DefaultLimits() Limits {
	return Limits{
		RecipientHourly: 3,
		RecipientDaily:  10,
		IPHourly:        10,
	}
}

// Limiter implements in-process sliding-window rate limiting keyed by
// (scope, key). Every check consumes the window regardless of what later
// gates decide, so retry storms are penalised even when the caller is
// probing other failure paths.
//
// State lives in this process only. Running multiple instances requires
// moving the counters to a shared store; the algorithm (prune, append,
// count under one critical section) must stay the same.
type Limiter struct {
	limits Limits

	mu      sync.Mutex
	buckets map[string][]time.Time
	clock   func() time.Time
}

// NewLimiter builds a limiter, substituting defaults for unset limits.
func NewLimiter(limits Limits) *Limiter {
	defaults := DefaultLimits()
	if limits.RecipientHourly <= 0 {
		limits.RecipientHourly = defaults.RecipientHourly
	}
	if limits.RecipientDaily <= 0 {
		limits.RecipientDaily = defaults.RecipientDaily
	}
	if limits.IPHourly <= 0 {
		limits.IPHourly = defaults.IPHourly
	}

	return &Limiter{
		limits:  limits,
		buckets: make(map[string][]time.Time),
		clock:   time.Now,
	}
}

// AllowRecipient records one attempt for the recipient and reports whether
// it fits inside both the hourly and the daily window. The reason names the
// exceeded window and its limit.
func (l *Limiter) AllowRecipient(email string) (bool, string) {
	hourly := l.hit("recipient:h:"+email, time.Hour)
	daily := l.hit("recipient:d:"+email, 24*time.Hour)

	if hourly > l.limits.RecipientHourly {
		return false, fmt.Sprintf("hourly recipient limit exceeded (%d/hour)", l.limits.RecipientHourly)
	}
	if daily > l.limits.RecipientDaily {
		return false, fmt.Sprintf("daily recipient limit exceeded (%d/day)", l.limits.RecipientDaily)
	}
	return true, ""
}

// AllowIP records one attempt for the source IP and reports whether it fits
// inside the hourly window.
func (l *Limiter) AllowIP(ip string) (bool, string) {
	hourly := l.hit("ip:h:"+ip, time.Hour)

	if hourly > l.limits.IPHourly {
		return false, fmt.Sprintf("hourly IP limit exceeded (%d/hour)", l.limits.IPHourly)
	}
	return true, ""
}

// hit prunes entries older than the window, appends the current attempt and
// returns the resulting count. The whole sequence runs under one lock so a
// window-boundary race cannot let two concurrent callers both slip under the
// limit.
func (l *Limiter) hit(key string, window time.Duration) int {
	now := l.clock()
	cutoff := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket := l.buckets[key]
	kept := bucket[:0]
	for _, ts := range bucket {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	l.buckets[key] = kept

	return len(kept)
}
