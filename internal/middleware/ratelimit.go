package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTimeout is how long a client's limiter is kept after its last request.
const idleTimeout = 10 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter gives every client address its own token bucket.
//
// Each client may make Burst requests at once, refilled at
// RequestsPerMinute. It guards the credential endpoints (POST /login and
// POST /signup) against password guessing; the rest of the app is not
// limited.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	every   rate.Limit
	burst   int
	logger  *slog.Logger
	now     func() time.Time
}

// NewRateLimiter creates a limiter. Non-positive arguments fall back to 20
// requests per minute with a burst of 5.
func NewRateLimiter(requestsPerMinute, burst int, logger *slog.Logger) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 20
	}
	if burst <= 0 {
		burst = 5
	}
	return &RateLimiter{
		clients: make(map[string]*client),
		every:   rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:   burst,
		logger:  logger,
		now:     time.Now,
	}
}

// Allow reports whether the client identified by key may make a request now.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.every, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Cleanup forgets clients that have been idle for longer than idleTimeout
// and returns how many were removed.
func (l *RateLimiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idleTimeout)
	removed := 0
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Run calls Cleanup every interval until ctx is cancelled.
func (l *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Cleanup(); n > 0 {
				l.logger.Debug("rate limiter cleanup", slog.Int("removed", n))
			}
		}
	}
}

// Middleware rejects requests over the limit with 429 Too Many Requests.
//
// Clients are keyed by r.RemoteAddr without the port. Behind a proxy,
// chi's RealIP middleware must run first so RemoteAddr is the real client.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !l.Allow(key) {
			l.logger.Warn("rate limit exceeded",
				slog.String("client", key),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "rate_limited",
				"message": "Too many attempts, please try again later",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
