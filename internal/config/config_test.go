package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadFallsBackOnInvalidNumbers(t *testing.T) {
	t.Setenv("CACHE_TTL_SECONDS", "0")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "soon")
	t.Setenv("COOKIE_SECURE", "maybe")

	cfg := Load()
	if cfg.CacheTTLSeconds != 60 {
		t.Fatalf("expected default cache ttl 60, got %d", cfg.CacheTTLSeconds)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected default token ttl 480, got %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.CookieSecure {
		t.Fatalf("expected cookie secure default false")
	}
}

func TestLoadReadsDriverSettings(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://ledger@localhost/ledger")
	t.Setenv("COMMISSION_MODE", "DECIMAL")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("PORT", "9090")

	cfg := Load()
	if cfg.DBDriver != "postgres" || cfg.CommissionMode != "decimal" {
		t.Fatalf("expected lowercased driver and mode, got %q %q", cfg.DBDriver, cfg.CommissionMode)
	}
	if !cfg.CookieSecure {
		t.Fatalf("expected cookie secure true")
	}
	if cfg.Address() != ":9090" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}
