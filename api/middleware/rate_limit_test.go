package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/wheelworks/shopfloor-backend/pkg/auth"
)

type memoryRateLimitStore struct {
	counts map[string]int64
}

func newMemoryRateLimitStore() *memoryRateLimitStore {
	return &memoryRateLimitStore{counts: map[string]int64{}}
}

func (s *memoryRateLimitStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.counts[key]++
	return s.counts[key], nil
}

func limitedRequest(actor pkgAuth.Actor, ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/bulk", nil)
	req.RemoteAddr = ip + ":4455"
	return req.WithContext(WithActor(req.Context(), actor))
}

func TestRateLimitBlocksActorPastLimit(t *testing.T) {
	store := newMemoryRateLimitStore()
	policy := NewRateLimitPolicy("bulk", time.Minute, 0, 2)
	handler := RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	actor := pkgAuth.Actor{UserID: uuid.New()}
	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, limitedRequest(actor, "10.0.0.1"))
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d expected 200 got %d", i+1, resp.Code)
		}
	}

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, limitedRequest(actor, "10.0.0.1"))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
	if apiErr := decodeAPIError(t, resp); apiErr.Code != "RATE_LIMIT_EXCEEDED" {
		t.Fatalf("unexpected error code %s", apiErr.Code)
	}
}

func TestRateLimitCountsActorsSeparately(t *testing.T) {
	store := newMemoryRateLimitStore()
	policy := NewRateLimitPolicy("bulk", time.Minute, 0, 1)
	handler := RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, limitedRequest(pkgAuth.Actor{UserID: uuid.New()}, "10.0.0.1"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, limitedRequest(pkgAuth.Actor{UserID: uuid.New()}, "10.0.0.1"))

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("expected separate actors to pass, got %d and %d", first.Code, second.Code)
	}
}

func TestRateLimitBlocksIPAcrossActors(t *testing.T) {
	store := newMemoryRateLimitStore()
	policy := NewRateLimitPolicy("bulk", time.Minute, 1, 0)
	handler := RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, limitedRequest(pkgAuth.Actor{UserID: uuid.New()}, "10.0.0.9"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, limitedRequest(pkgAuth.Actor{UserID: uuid.New()}, "10.0.0.9"))

	if first.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", first.Code)
	}
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected shared IP to be blocked, got %d", second.Code)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:9000"
	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected forwarded address, got %q", got)
	}

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "203.0.113.8")
	if got := clientIP(req); got != "203.0.113.8" {
		t.Fatalf("expected real-ip address, got %q", got)
	}

	req.Header.Del("X-Real-IP")
	if got := clientIP(req); got != "192.0.2.1" {
		t.Fatalf("expected remote addr host, got %q", got)
	}
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	invocations := 0
	handler := RateLimit(RateLimitPolicy{}, newMemoryRateLimitStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		invocations++
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), limitedRequest(pkgAuth.Actor{UserID: uuid.New()}, "10.0.0.1"))
	if invocations != 1 {
		t.Fatalf("expected passthrough, handler ran %d times", invocations)
	}
}
