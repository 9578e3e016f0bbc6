package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestMemoryCounter_Increment(t *testing.T) {
	c := NewMemoryCounter()
	defer c.Stop()

	ctx := context.Background()
	for want := int64(1); want <= 3; want++ {
		count, remaining, err := c.Increment(ctx, "1.2.3.4", time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != want {
			t.Errorf("expected count %d, got %d", want, count)
		}
		if remaining <= 0 || remaining > time.Minute {
			t.Errorf("remaining %v outside window", remaining)
		}
	}

	// Separate keys count independently.
	count, _, err := c.Increment(ctx, "5.6.7.8", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected independent count 1, got %d", count)
	}
}

func TestMemoryCounter_WindowReset(t *testing.T) {
	c := NewMemoryCounter()
	defer c.Stop()

	current := time.Now()
	c.now = func() time.Time { return current }

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, _, err := c.Increment(ctx, "1.2.3.4", 15*time.Minute); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Advance past the window; the next attempt starts a fresh count.
	current = current.Add(16 * time.Minute)
	count, _, err := c.Increment(ctx, "1.2.3.4", 15*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected fresh count 1 after window elapses, got %d", count)
	}
}

func TestMemoryCounter_Concurrent(t *testing.T) {
	c := NewMemoryCounter()
	defer c.Stop()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = c.Increment(ctx, "shared", time.Minute)
		}()
	}
	wg.Wait()

	count, _, err := c.Increment(ctx, "shared", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 51 {
		t.Errorf("expected count 51, got %d", count)
	}
}

// failingCounter always errors, simulating a dead backend.
type failingCounter struct{}

func (failingCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("backend down")
}

func TestMiddleware_LimitsAfterMaxAttempts(t *testing.T) {
	c := NewMemoryCounter()
	defer c.Stop()

	handler := Middleware(c, 5, 15*time.Minute, nil, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 1; i <= 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on sixth attempt, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	// A different client is unaffected.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for a different client, got %d", rec.Code)
	}
}

func TestMiddleware_BackendFailureAllows(t *testing.T) {
	handler := Middleware(failingCounter{}, 5, 15*time.Minute, nil, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected request to pass when the backend fails, got %d", rec.Code)
	}
}

// recordingHits counts limiter rejections.
type recordingHits struct {
	hits int
}

func (r *recordingHits) RecordRateLimitHit() {
	r.hits++
}

func TestMiddleware_RecordsRejections(t *testing.T) {
	c := NewMemoryCounter()
	defer c.Stop()

	recorder := &recordingHits{}
	handler := Middleware(c, 2, 15*time.Minute, recorder, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}

	// Two allowed, two rejected.
	if recorder.hits != 2 {
		t.Errorf("expected 2 recorded rejections, got %d", recorder.hits)
	}
}
