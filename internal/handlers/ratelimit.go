package handlers

import (
	"sync"

	"golang.org/x/time/rate"
)

// UserLimiter keeps one token bucket per user.
type UserLimiter struct {
	mu    sync.Mutex
	users map[string]*rate.Limiter
	limit rate.Limit
	burst int
}

func NewUserLimiter(perSecond float64, burst int) *UserLimiter {
	if burst < 1 {
		burst = 1
	}
	return &UserLimiter{
		users: make(map[string]*rate.Limiter),
		limit: rate.Limit(perSecond),
		burst: burst,
	}
}

func (l *UserLimiter) Allow(userID string) bool {
	if l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	lim, ok := l.users[userID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.users[userID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
