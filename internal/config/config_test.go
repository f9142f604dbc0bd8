package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_HTTP_PORT", "APP_API_TIMEOUT_SECONDS", "APP_FALLBACK_MODE", "APP_LOG_LEVEL", "APP_AUDIT_DSN",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.HTTPPort != "8080" {
		t.Fatalf("port = %q", cfg.HTTPPort)
	}
	if cfg.APITimeout != 30*time.Second {
		t.Fatalf("timeout = %v", cfg.APITimeout)
	}
	if cfg.Fallback != FallbackDegraded {
		t.Fatalf("fallback = %q", cfg.Fallback)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
	if cfg.AuditDSN != "" {
		t.Fatalf("audit dsn = %q", cfg.AuditDSN)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_HTTP_PORT", "9000")
	t.Setenv("APP_API_TIMEOUT_SECONDS", "5")
	t.Setenv("APP_FALLBACK_MODE", "strict")
	t.Setenv("APP_INVENTORY_API_URL", "http://inventory.example.com/api")
	t.Setenv("APP_POLICY_API_URL", "https://policy.example.com/api/v2")

	cfg := Load()
	if cfg.HTTPPort != "9000" {
		t.Fatalf("port = %q", cfg.HTTPPort)
	}
	if cfg.APITimeout != 5*time.Second {
		t.Fatalf("timeout = %v", cfg.APITimeout)
	}
	if cfg.Fallback != FallbackStrict {
		t.Fatalf("fallback = %q", cfg.Fallback)
	}
	if cfg.InventoryAPIURL == "" || cfg.PolicyAPIURL == "" {
		t.Fatal("provider URLs not loaded")
	}
}

func TestLoadIgnoresBadTimeout(t *testing.T) {
	t.Setenv("APP_API_TIMEOUT_SECONDS", "not-a-number")
	if cfg := Load(); cfg.APITimeout != 30*time.Second {
		t.Fatalf("timeout = %v, want default", cfg.APITimeout)
	}
}
