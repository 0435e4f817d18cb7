package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToLimitThenRejects(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, "login")
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over the limit, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected a Retry-After header")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("expected remaining 0, got %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

// Attempts are counted before the handler runs, so failing requests burn
// quota exactly like successful ones.
func TestRateLimiterCountsFailedAttempts(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute, "login")
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.2:999"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("request %d: expected 403 from handler, got %d", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.2:999"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("failed attempts must count toward the limit, got %d", rec.Code)
	}
}

func TestRateLimiterKeysByClientAddress(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, "login")
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRequest(http.MethodPost, "/login", nil)
	first.RemoteAddr = "10.0.0.1:1"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("first client should pass, got %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/login", nil)
	second.RemoteAddr = "10.0.0.2:1"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusOK {
		t.Fatalf("a different client must not share the bucket, got %d", rec.Code)
	}
}

func TestLocalLimiterWindowResets(t *testing.T) {
	limiter := NewLocalFixedWindowLimiter()
	ctx := context.Background()

	d, err := limiter.Allow(ctx, "k", 1, 10*time.Millisecond)
	if err != nil || !d.Allowed {
		t.Fatalf("first attempt should pass: %+v %v", d, err)
	}
	d, _ = limiter.Allow(ctx, "k", 1, 10*time.Millisecond)
	if d.Allowed {
		t.Fatal("second attempt inside the window should be denied")
	}
	time.Sleep(15 * time.Millisecond)
	d, _ = limiter.Allow(ctx, "k", 1, 10*time.Millisecond)
	if !d.Allowed {
		t.Fatal("a new window should admit the attempt")
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (Decision, error) {
	return Decision{}, errors.New("backend down")
}

func TestRateLimiterFailureModes(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	closed := NewDistributedRateLimiter(failingLimiter{}, 10, time.Minute, "login", FailClosed).Middleware()(next)
	rec := httptest.NewRecorder()
	closed.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("fail-closed should reject on backend error, got %d", rec.Code)
	}

	open := NewDistributedRateLimiter(failingLimiter{}, 10, time.Minute, "login", FailOpen).Middleware()(next)
	rec = httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("fail-open should allow on backend error, got %d", rec.Code)
	}
}
