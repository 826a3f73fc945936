// Package config loads the gateway's environment-driven configuration
// and, optionally, a declarative profile overlay seeding the allowlist
// and threshold defaults for a deployment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config holds the gateway's runtime configuration.
type Config struct {
	// SocketPath is the Unix domain socket Core connects to.
	SocketPath string
	// SigningKeyPath is where the HMAC signing key (or v2 passphrase
	// envelope) is read from/written to on first run.
	SigningKeyPath string
	// AuditDBPath is the SQLite file backing the audit chain. ":memory:"
	// is accepted for tests.
	AuditDBPath string
	// LogLevel is one of debug/info/warn/error.
	LogLevel string

	// GlobalRateLimit is the sliding-window cap across all action kinds
	// combined, per WindowMs. Zero disables the global cap.
	GlobalRateLimit int
	// RateLimitWindowMs is the sliding window width for both the global
	// and per-action-kind rate limiter checks.
	RateLimitWindowMs int64
	// AnomalyBurstThreshold is how many requests for one action kind
	// from one source within the anomaly detector's window pass; the
	// request that takes the count above it triggers requires_approval.
	AnomalyBurstThreshold int
	// AnomalyMaxPayloadBytes flags a request's payload as oversized once
	// it exceeds this many bytes. Zero disables the check.
	AnomalyMaxPayloadBytes int
	// ReplaySeconds is how long an accepted request id is remembered for
	// replay detection.
	ReplaySeconds int
	// DispatchTimeoutMs bounds stage 9's adapter call.
	DispatchTimeoutMs int

	// ProfilePath is the optional YAML overlay seeding allowlist entries
	// and threshold overrides. Empty disables it.
	ProfilePath string
}

// Load builds a Config from environment variables, falling back to
// defaults appropriate for a first run on a new machine.
func Load() *Config {
	home := os.Getenv("HELM_GATEWAY_HOME")
	if home == "" {
		if dir, err := os.UserHomeDir(); err == nil {
			home = filepath.Join(dir, ".helm-gateway")
		} else {
			home = ".helm-gateway"
		}
	}

	cfg := &Config{
		SocketPath:             envOr("HELM_GATEWAY_SOCKET", filepath.Join(home, "gateway.sock")),
		SigningKeyPath:         envOr("HELM_GATEWAY_SIGNING_KEY", filepath.Join(home, "signing.key")),
		AuditDBPath:            envOr("HELM_GATEWAY_AUDIT_DB", filepath.Join(home, "audit.db")),
		LogLevel:               envOr("HELM_GATEWAY_LOG_LEVEL", "info"),
		GlobalRateLimit:        envOrInt("HELM_GATEWAY_GLOBAL_RATE_LIMIT", 120),
		RateLimitWindowMs:      envOrInt64("HELM_GATEWAY_RATE_LIMIT_WINDOW_MS", 60_000),
		AnomalyBurstThreshold:  envOrInt("HELM_GATEWAY_ANOMALY_BURST_THRESHOLD", 20),
		AnomalyMaxPayloadBytes: envOrInt("HELM_GATEWAY_ANOMALY_MAX_PAYLOAD_BYTES", 1<<20),
		ReplaySeconds:          envOrInt("HELM_GATEWAY_REPLAY_WINDOW_SECONDS", 300),
		DispatchTimeoutMs:      envOrInt("HELM_GATEWAY_DISPATCH_TIMEOUT_MS", 30_000),
		ProfilePath:            os.Getenv("HELM_GATEWAY_PROFILE"),
	}

	if cfg.ProfilePath == "" {
		if candidate := filepath.Join(home, "profile.yaml"); fileExists(candidate) {
			cfg.ProfilePath = candidate
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envOrInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
