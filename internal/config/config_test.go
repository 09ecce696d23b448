package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DBPath != "promostock.sqlite3" {
		t.Errorf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.ExpiryWindowDays != 30 {
		t.Errorf("expected default expiry window 30, got %d", cfg.ExpiryWindowDays)
	}
	if cfg.LowStockThreshold != 10 {
		t.Errorf("expected default low stock threshold 10, got %d", cfg.LowStockThreshold)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PROMOSTOCK_DB", "/tmp/test.sqlite3")
	t.Setenv("PROMOSTOCK_ADDR", ":9000")
	t.Setenv("PROMOSTOCK_EXPIRY_WINDOW_DAYS", "14")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DBPath != "/tmp/test.sqlite3" {
		t.Errorf("expected overridden db path, got %q", cfg.DBPath)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("expected overridden addr, got %q", cfg.Addr)
	}
	if cfg.ExpiryWindowDays != 14 {
		t.Errorf("expected expiry window 14, got %d", cfg.ExpiryWindowDays)
	}
}

func TestLoadInvalidInt(t *testing.T) {
	t.Setenv("PROMOSTOCK_EXPIRY_WINDOW_DAYS", "soon")

	if _, err := Load(""); err == nil {
		t.Error("expected error for non-numeric expiry window")
	}
}
