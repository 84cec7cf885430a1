package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWithinBudget(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3, CleanupInterval: time.Hour})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d denied within budget", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Error("request over budget was allowed")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("separate client shares another client's budget")
	}
}

func TestMiddlewareLimitsOnlyMutations(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, CleanupInterval: time.Hour})
	defer rl.Stop()

	handler := rl.Middleware(func(*http.Request) string { return "9.9.9.9" })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	do := func(method string) int {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, "/", nil))
		return rec.Code
	}

	if code := do(http.MethodPost); code != http.StatusOK {
		t.Fatalf("first POST = %d, want 200", code)
	}
	if code := do(http.MethodPost); code != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d, want 429", code)
	}
	// Reads never consume budget.
	for i := 0; i < 5; i++ {
		if code := do(http.MethodGet); code != http.StatusOK {
			t.Fatalf("GET %d = %d, want 200", i, code)
		}
	}
}

func TestCleanupRemovesStaleClients(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 10, CleanupInterval: time.Hour})
	defer rl.Stop()

	rl.Allow("1.2.3.4")
	rl.mu.Lock()
	rl.clients["1.2.3.4"].lastRequest = time.Now().Add(-11 * time.Minute)
	rl.mu.Unlock()

	rl.cleanupStaleEntries()

	rl.mu.Lock()
	_, exists := rl.clients["1.2.3.4"]
	rl.mu.Unlock()
	if exists {
		t.Error("stale client survived cleanup")
	}
}
