package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/salesql/salesql/internal/auth"
)

func TestRateLimitRejectsBurstOverflow(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"SALESQL_RATE_LIMIT_ENABLED": "true",
		"SALESQL_RATE_LIMIT_RPS":     "0.001",
		"SALESQL_RATE_LIMIT_BURST":   "2",
	})
	h := NewHandler(cfg, newTestDependencies(t, &fakeQueryRunner{}))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/examples", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rr.Code)
		}
		if rr.Header().Get("X-RateLimit-Limit") != "2" {
			t.Fatalf("limit header = %q", rr.Header().Get("X-RateLimit-Limit"))
		}
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/examples", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if body := decodeBody(t, rr); body["error_code"] != "RATE_LIMITED" || body["retryable"] != true {
		t.Fatalf("body = %#v", body)
	}

	health := httptest.NewRecorder()
	h.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if health.Code != http.StatusOK {
		t.Fatalf("health status = %d", health.Code)
	}
}

func TestRateLimitKeysBySubject(t *testing.T) {
	limiter := newRateLimiter(0.001, 1, nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := limiter.Middleware(next)

	send := func(subject string) int {
		req := httptest.NewRequest(http.MethodGet, "/v1/examples", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{Subject: subject, Roles: []string{auth.RoleQueryReader}}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("alice"); code != http.StatusNoContent {
		t.Fatalf("alice first = %d", code)
	}
	if code := send("bob"); code != http.StatusNoContent {
		t.Fatalf("bob first = %d", code)
	}
	if code := send("alice"); code != http.StatusTooManyRequests {
		t.Fatalf("alice second = %d", code)
	}
}

func TestRateLimitSweepsIdleClients(t *testing.T) {
	limiter := newRateLimiter(1, 1, nil)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	limiter.lastSweep = now

	limiter.limiterFor("ip:10.0.0.1")
	limiter.limiterFor("ip:10.0.0.2")
	if limiter.size() != 2 {
		t.Fatalf("size = %d", limiter.size())
	}

	now = now.Add(limiterIdleTTL + limiterSweepInterval)
	limiter.limiterFor("ip:10.0.0.3")
	if limiter.size() != 1 {
		t.Fatalf("size after sweep = %d", limiter.size())
	}
}

func TestClientKeyFallsBackToRemoteAddress(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	if key := clientKey(req); key != "ip:192.0.2.7" {
		t.Fatalf("key = %q", key)
	}

	anonymous := req.WithContext(auth.WithIdentity(req.Context(), auth.Anonymous()))
	if key := clientKey(anonymous); key != "ip:192.0.2.7" {
		t.Fatalf("anonymous key = %q", key)
	}
}
