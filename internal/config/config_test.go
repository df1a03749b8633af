package config

import "testing"

// TestLoad_RequiredMissing はDATABASE_URL未設定時のエラーを検証する。
func TestLoad_RequiredMissing(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail when DATABASE_URL is not set")
	}
}

// TestLoad_Defaults はオプション項目のデフォルト値を検証する。
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/library?sslmode=disable")
	t.Setenv("BORROW_PERIOD_DAYS", "")
	t.Setenv("FINE_RATE_PER_DAY", "")
	t.Setenv("DEFAULT_MAX_BOOKS", "")
	t.Setenv("RATE_LIMIT_GENERAL", "")
	t.Setenv("RATE_LIMIT_BORROW", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("CORS_ALLOWED_ORIGIN", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.BorrowPeriodDays != 14 {
		t.Errorf("BorrowPeriodDays = %d, want 14", cfg.BorrowPeriodDays)
	}
	if cfg.FineRatePerDay != 1 {
		t.Errorf("FineRatePerDay = %d, want 1", cfg.FineRatePerDay)
	}
	if cfg.DefaultMaxBooks != 3 {
		t.Errorf("DefaultMaxBooks = %d, want 3", cfg.DefaultMaxBooks)
	}
	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want 120", cfg.RateLimitGeneral)
	}
	if cfg.RateLimitBorrow != 30 {
		t.Errorf("RateLimitBorrow = %d, want 30", cfg.RateLimitBorrow)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}
	if cfg.CORSAllowedOrigin != "http://localhost:8089" {
		t.Errorf("CORSAllowedOrigin = %q", cfg.CORSAllowedOrigin)
	}
}

// TestLoad_Overrides は環境変数による上書きを検証する。
func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/library?sslmode=disable")
	t.Setenv("BORROW_PERIOD_DAYS", "7")
	t.Setenv("FINE_RATE_PER_DAY", "5")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.BorrowPeriodDays != 7 {
		t.Errorf("BorrowPeriodDays = %d, want 7", cfg.BorrowPeriodDays)
	}
	if cfg.FineRatePerDay != 5 {
		t.Errorf("FineRatePerDay = %d, want 5", cfg.FineRatePerDay)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "9090")
	}
}

// TestLoad_InvalidIntFallsBack は数値に解釈できない値のフォールバックを検証する。
func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/library?sslmode=disable")
	t.Setenv("BORROW_PERIOD_DAYS", "two weeks")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.BorrowPeriodDays != 14 {
		t.Errorf("BorrowPeriodDays = %d, want fallback 14", cfg.BorrowPeriodDays)
	}
}
