package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiterAllow(t *testing.T) {
	l := NewLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		if !l.Allow("key") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	if l.Allow("key") {
		t.Error("6th request should be denied")
	}
}

func TestLimiterKeysIndependent(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	if !l.Allow("a") {
		t.Fatal("first request for a should be allowed")
	}
	if !l.Allow("b") {
		t.Error("a's budget should not affect b")
	}
	if l.Allow("a") {
		t.Error("second request for a should be denied")
	}
}

func TestLimiterWindowReset(t *testing.T) {
	l := NewLimiter(3, 10*time.Millisecond)

	for i := 0; i < 3; i++ {
		l.Allow("key")
	}
	if l.Allow("key") {
		t.Error("should be blocked within window")
	}

	time.Sleep(15 * time.Millisecond)

	if !l.Allow("key") {
		t.Error("should be allowed after window expires")
	}
}

func TestLimiterSweep(t *testing.T) {
	l := NewLimiter(5, 10*time.Millisecond)

	l.Allow("expired")
	time.Sleep(15 * time.Millisecond)

	l.buckets["active"] = &bucket{count: 1, resetAt: time.Now().Add(time.Minute)}

	l.Sweep()

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.buckets["expired"]; ok {
		t.Error("expired bucket should have been swept")
	}
	if _, ok := l.buckets["active"]; !ok {
		t.Error("active bucket should still exist")
	}
}

func TestLimitMiddleware(t *testing.T) {
	l := NewLimiter(2, time.Minute)
	keyFunc := func(r *http.Request) string { return "test" }

	handler := l.Limit(keyFunc, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// First 2 requests should pass
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}

	// 3rd request should be rate limited
	req := httptest.NewRequest("POST", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("3rd request: status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
}

func TestRealIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"remote addr only", "10.0.0.1:1234", "", "10.0.0.1"},
		{"forwarded single", "10.0.0.1:1234", "203.0.113.9", "203.0.113.9"},
		{"forwarded chain", "10.0.0.1:1234", "203.0.113.9, 10.0.0.2", "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := RealIP(req); got != tt.want {
				t.Errorf("RealIP = %q, want %q", got, tt.want)
			}
		})
	}
}
