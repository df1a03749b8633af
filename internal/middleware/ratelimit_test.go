package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// TestRateLimiter_GeneralAllowsWithinBurst はバースト内のリクエストが
// 通過することを検証する。
func TestRateLimiter_GeneralAllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(1),
		GeneralBurst:    5,
		BorrowRate:      rate.Limit(1),
		BorrowBurst:     1,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
		req.RemoteAddr = "192.0.2.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i, rec.Code, http.StatusOK)
		}
	}
}

// TestRateLimiter_GeneralBlocksOverBurst はバースト超過時の429を検証する。
func TestRateLimiter_GeneralBlocksOverBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001),
		GeneralBurst:    2,
		BorrowRate:      rate.Limit(1),
		BorrowBurst:     1,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	var lastCode int
	var lastRetryAfter string
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
		req.RemoteAddr = "192.0.2.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		lastCode = rec.Code
		lastRetryAfter = rec.Header().Get("Retry-After")
	}

	if lastCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", lastCode, http.StatusTooManyRequests)
	}
	if lastRetryAfter == "" {
		t.Error("expected Retry-After header on 429 response")
	}
}

// TestRateLimiter_SeparatePerClient はクライアントIPごとに独立した
// リミッターが使われることを検証する。
func TestRateLimiter_SeparatePerClient(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001),
		GeneralBurst:    1,
		BorrowRate:      rate.Limit(1),
		BorrowBurst:     1,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for _, addr := range []string{"192.0.2.1:1", "192.0.2.2:1", "192.0.2.3:1"} {
		req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("client %s: status = %d, want %d", addr, rec.Code, http.StatusOK)
		}
	}

	if rl.GeneralLimiterCount() != 3 {
		t.Errorf("limiter count = %d, want 3", rl.GeneralLimiterCount())
	}
}

// TestRateLimiter_BorrowIndependent は貸出用リミッターがAPI全般の
// リミッターとは独立に数えられることを検証する。
func TestRateLimiter_BorrowIndependent(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001),
		GeneralBurst:    1,
		BorrowRate:      rate.Limit(0.001),
		BorrowBurst:     1,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	general := rl.GeneralMiddleware()(okHandler())
	borrowLimited := rl.BorrowMiddleware()(okHandler())

	// 一般リミッターのバーストを使い切る
	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	req.RemoteAddr = "192.0.2.1:1"
	general.ServeHTTP(httptest.NewRecorder(), req)

	// 貸出リミッターはまだ通過できる
	req = httptest.NewRequest(http.MethodPost, "/api/borrow", nil)
	req.RemoteAddr = "192.0.2.1:1"
	rec := httptest.NewRecorder()
	borrowLimited.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("borrow request status = %d, want %d", rec.Code, http.StatusOK)
	}
}

// TestNewRateLimiterConfig はreq/minからreq/secへの変換を検証する。
func TestNewRateLimiterConfig(t *testing.T) {
	cfg := NewRateLimiterConfig(120, 30)

	if cfg.GeneralRate != rate.Limit(2.0) {
		t.Errorf("general rate = %v, want 2 req/sec", cfg.GeneralRate)
	}
	if cfg.GeneralBurst != 120 {
		t.Errorf("general burst = %d, want 120", cfg.GeneralBurst)
	}
	if cfg.BorrowRate != rate.Limit(0.5) {
		t.Errorf("borrow rate = %v, want 0.5 req/sec", cfg.BorrowRate)
	}
}
