package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/veridianhq/hr-api/internal/http/response"
	"github.com/veridianhq/hr-api/internal/observability"
)

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Limiter counts attempts per key inside a fixed window. Attempts are
// counted before the guarded handler runs, so failed calls consume quota
// exactly like successful ones.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// FailureMode decides what happens when a distributed limiter backend is
// unreachable.
type FailureMode string

const (
	FailOpen   FailureMode = "fail_open"
	FailClosed FailureMode = "fail_closed"
)

// RateLimiter applies a Limiter to inbound requests keyed by client address.
type RateLimiter struct {
	limiter Limiter
	limit   int
	window  time.Duration
	scope   string
	mode    FailureMode
	keyFunc func(r *http.Request) string
}

func NewRateLimiter(limit int, window time.Duration, scope string) *RateLimiter {
	return NewDistributedRateLimiter(NewLocalFixedWindowLimiter(), limit, window, scope, FailClosed)
}

func NewDistributedRateLimiter(limiter Limiter, limit int, window time.Duration, scope string, mode FailureMode) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if scope == "" {
		scope = "api"
	}
	return &RateLimiter{
		limiter: limiter,
		limit:   limit,
		window:  window,
		scope:   scope,
		mode:    mode,
		keyFunc: clientIPKey,
	}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.scope + ":" + rl.keyFunc(r)
			decision, err := rl.limiter.Allow(r.Context(), key, rl.limit, rl.window)
			if err != nil {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "backend_error")
				if rl.mode == FailOpen {
					slog.Warn("rate limiter backend unavailable, allowing request", "scope", rl.scope, "error", err.Error())
					next.ServeHTTP(w, r)
					return
				}
				w.Header().Set("Retry-After", retryAfterSeconds(rl.window))
				response.Error(w, r, http.StatusTooManyRequests, response.CodeRateLimited, "too many requests", nil)
				return
			}
			writeRateLimitHeaders(w.Header(), rl.limit, decision)
			if !decision.Allowed {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "deny")
				w.Header().Set("Retry-After", retryAfterSeconds(decision.RetryAfter))
				response.Error(w, r, http.StatusTooManyRequests, response.CodeRateLimited, "too many requests", nil)
				return
			}
			observability.RecordRateLimitDecision(r.Context(), rl.scope, "allow")
			next.ServeHTTP(w, r)
		})
	}
}

type localWindow struct {
	count   int
	resetAt time.Time
}

type localFixedWindowLimiter struct {
	mu      sync.Mutex
	windows map[string]*localWindow
}

// NewLocalFixedWindowLimiter is the in-process default, used when no redis
// backend is configured and in tests.
func NewLocalFixedWindowLimiter() Limiter {
	return &localFixedWindowLimiter{windows: make(map[string]*localWindow)}
}

func (l *localFixedWindowLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &localWindow{resetAt: now.Add(window)}
		l.windows[key] = w
	}
	if w.count >= limit {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: time.Until(w.resetAt),
			ResetAt:    w.resetAt,
		}, nil
	}
	w.count++
	return Decision{
		Allowed:   true,
		Remaining: limit - w.count,
		ResetAt:   w.resetAt,
	}, nil
}

func clientIPKey(r *http.Request) string {
	// chi's RealIP middleware rewrites RemoteAddr from X-Forwarded-For.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return fmt.Sprintf("%d", seconds)
}

func writeRateLimitHeaders(h http.Header, limit int, d Decision) {
	h.Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
	h.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", max(d.Remaining, 0)))
	resetAt := d.ResetAt
	if resetAt.IsZero() {
		resetAt = time.Now().Add(time.Second)
	}
	h.Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt.Unix()))
}
