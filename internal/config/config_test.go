package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("STORE", "")

	cfg := Load()

	if cfg.Env != "dev" {
		t.Fatalf("expected env dev, got %q", cfg.Env)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.Store != "postgres" {
		t.Fatalf("expected postgres store, got %q", cfg.Store)
	}
	if cfg.AdminRole != "ADMIN" {
		t.Fatalf("expected admin role ADMIN, got %q", cfg.AdminRole)
	}
}

func TestLoad_OverridesAndFallbacks(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("STORE", "Memory")
	t.Setenv("CACHE_TTL_SECONDS", "30")
	t.Setenv("CORS_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")

	cfg := Load()

	if cfg.Port != 8080 {
		t.Fatalf("invalid PORT should fall back to 8080, got %d", cfg.Port)
	}
	if cfg.Store != "memory" {
		t.Fatalf("expected memory store, got %q", cfg.Store)
	}
	if cfg.CacheTTL() != 30*time.Second {
		t.Fatalf("expected 30s cache ttl, got %v", cfg.CacheTTL())
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.CORSOrigins)
	}
	if cfg.DBURL != "postgres://u:p@db:5432/x" {
		t.Fatalf("DATABASE_URL should win, got %q", cfg.DBURL)
	}
}
