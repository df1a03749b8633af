package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/libraryportal/internal/middleware"
)

// mockPinger はDB疎通確認のモック。
type mockPinger struct {
	err error
}

func (m *mockPinger) PingContext(ctx context.Context) error {
	return m.err
}

func newTestRouter(pinger DBPinger) http.Handler {
	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(10000, 10000))
	return NewRouter(&RouterDeps{
		CORSAllowedOrigin: "http://localhost:8089",
		RateLimiter:       rl,
		DB:                pinger,
	})
}

// TestRouter_Root はAPIバナーの200レスポンスを検証する。
func TestRouter_Root(t *testing.T) {
	router := newTestRouter(&mockPinger{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	body := decodeEnvelope(t, rec)
	if body["success"] != true {
		t.Error("expected success = true")
	}
}

// TestRouter_Health_OK はDB疎通可能時のヘルスチェックを検証する。
func TestRouter_Health_OK(t *testing.T) {
	router := newTestRouter(&mockPinger{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

// TestRouter_Health_DBDown はDB疎通不能時の503を検証する。
func TestRouter_Health_DBDown(t *testing.T) {
	router := newTestRouter(&mockPinger{err: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

// TestRouter_NotFound は未定義ルートの404エンベロープを検証する。
func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(&mockPinger{})

	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	body := decodeEnvelope(t, rec)
	if body["success"] != false {
		t.Error("expected success = false")
	}
	if body["error"] == nil {
		t.Error("expected error object in 404 response")
	}
}

// TestRouter_CORSPreflight はOPTIONSプリフライトへの204を検証する。
func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(&mockPinger{})

	req := httptest.NewRequest(http.MethodOptions, "/api/books", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "http://localhost:8089" {
		t.Errorf("allowed origin = %q", origin)
	}
}
