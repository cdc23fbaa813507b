package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := newRateLimiter(5, time.Second)

	for i := 0; i < 5; i++ {
		if !rl.allow("10.0.0.1") {
			t.Errorf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Error("request over the limit should be denied")
	}

	// Limits are per IP.
	if !rl.allow("10.0.0.2") {
		t.Error("request from a different IP should be allowed")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := newRateLimiter(2, 100*time.Millisecond)

	rl.allow("10.0.0.1")
	rl.allow("10.0.0.1")
	if rl.allow("10.0.0.1") {
		t.Error("third request inside the window should be denied")
	}

	time.Sleep(110 * time.Millisecond)

	if !rl.allow("10.0.0.1") {
		t.Error("request after the window slid should be allowed")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := newRateLimiter(3, time.Minute)

	handler := rl.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/join", nil)
		req.RemoteAddr = "10.0.0.1:40000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 3; i++ {
		if code := do(); code != http.StatusOK {
			t.Errorf("request %d: status %d, want 200", i+1, code)
		}
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Errorf("request over the limit: status %d, want 429", code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"remote addr only", "10.0.0.1:40000", "", "", "10.0.0.1"},
		{"forwarded single", "127.0.0.1:40000", "203.0.113.1", "", "203.0.113.1"},
		{"forwarded chain", "127.0.0.1:40000", "203.0.113.1, 198.51.100.1", "", "203.0.113.1"},
		{"real ip", "127.0.0.1:40000", "", "203.0.113.5", "203.0.113.5"},
		{"forwarded wins", "127.0.0.1:40000", "203.0.113.1", "203.0.113.5", "203.0.113.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
