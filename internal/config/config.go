package config

import (
	"os"
	"strconv"
	"time"
)

// FallbackMode controls what provider clients do when an outbound call
// fails at the transport level.
type FallbackMode string

const (
	// FallbackDegraded substitutes documented mock data so callers always
	// get a well-formed result. Development convenience, not for production.
	FallbackDegraded FallbackMode = "degraded"
	// FallbackStrict returns the transport error to the caller.
	FallbackStrict FallbackMode = "strict"
)

type Config struct {
	HTTPPort string

	InventoryAPIURL string
	InventoryAPIKey string

	PolicyAPIURL string
	PolicyAPIKey string

	// APITimeout bounds every outbound provider call.
	APITimeout time.Duration

	Fallback FallbackMode

	LogLevel string

	// AuditDSN enables the sqlite audit trail when non-empty.
	AuditDSN string
}

func Load() Config {
	port := os.Getenv("APP_HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	timeout := 30 * time.Second
	if v := os.Getenv("APP_API_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeout = time.Duration(n) * time.Second
		}
	}

	fallback := FallbackDegraded
	if FallbackMode(os.Getenv("APP_FALLBACK_MODE")) == FallbackStrict {
		fallback = FallbackStrict
	}

	logLevel := os.Getenv("APP_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return Config{
		HTTPPort: port,

		InventoryAPIURL: os.Getenv("APP_INVENTORY_API_URL"),
		InventoryAPIKey: os.Getenv("APP_INVENTORY_API_KEY"),

		PolicyAPIURL: os.Getenv("APP_POLICY_API_URL"),
		PolicyAPIKey: os.Getenv("APP_POLICY_API_KEY"),

		APITimeout: timeout,

		Fallback: fallback,

		LogLevel: logLevel,

		AuditDSN: os.Getenv("APP_AUDIT_DSN"),
	}
}
