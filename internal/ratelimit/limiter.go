package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter manages per-session rate limits. Keys are durable session
// ids, so reconnecting clients keep their budget.
type Limiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewLimiter creates a limiter allowing requestsPerHour sustained
// messages per session with the given burst.
func NewLimiter(requestsPerHour int, burst int) *Limiter {
	r := rate.Limit(float64(requestsPerHour) / 3600.0)

	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

// GetLimiter returns the rate limiter for a session, creating it on
// first use.
func (l *Limiter) GetLimiter(sessionID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.limiters[sessionID]
	if !exists {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[sessionID] = limiter
	}

	return limiter
}

// Allow reports whether the session may send another message now.
func (l *Limiter) Allow(sessionID string) bool {
	return l.GetLimiter(sessionID).Allow()
}

// Tokens returns the remaining budget for a session.
func (l *Limiter) Tokens(sessionID string) float64 {
	return l.GetLimiter(sessionID).Tokens()
}

// Forget drops the limiter state for an evicted session.
func (l *Limiter) Forget(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, sessionID)
}
