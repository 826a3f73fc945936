package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/quietcore/gateway/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HELM_GATEWAY_HOME", "")
	t.Setenv("HELM_GATEWAY_SOCKET", "")
	t.Setenv("HELM_GATEWAY_SIGNING_KEY", "")
	t.Setenv("HELM_GATEWAY_AUDIT_DB", "")
	t.Setenv("HELM_GATEWAY_LOG_LEVEL", "")
	t.Setenv("HELM_GATEWAY_GLOBAL_RATE_LIMIT", "")
	t.Setenv("HELM_GATEWAY_PROFILE", "")

	cfg := config.Load()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.GlobalRateLimit != 120 {
		t.Errorf("GlobalRateLimit = %d, want 120", cfg.GlobalRateLimit)
	}
	if cfg.SocketPath == "" {
		t.Error("expected a non-empty default socket path")
	}
}

func TestLoad_Overrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HELM_GATEWAY_HOME", home)
	t.Setenv("HELM_GATEWAY_SOCKET", "")
	t.Setenv("HELM_GATEWAY_LOG_LEVEL", "debug")
	t.Setenv("HELM_GATEWAY_GLOBAL_RATE_LIMIT", "5")
	t.Setenv("HELM_GATEWAY_ANOMALY_BURST_THRESHOLD", "3")

	cfg := config.Load()

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.GlobalRateLimit != 5 {
		t.Errorf("GlobalRateLimit = %d, want 5", cfg.GlobalRateLimit)
	}
	if cfg.AnomalyBurstThreshold != 3 {
		t.Errorf("AnomalyBurstThreshold = %d, want 3", cfg.AnomalyBurstThreshold)
	}
	if cfg.SocketPath != filepath.Join(home, "gateway.sock") {
		t.Errorf("SocketPath = %q, want derived from HELM_GATEWAY_HOME", cfg.SocketPath)
	}
}

func TestLoad_AnomalyMaxPayloadBytes(t *testing.T) {
	t.Setenv("HELM_GATEWAY_HOME", t.TempDir())
	t.Setenv("HELM_GATEWAY_ANOMALY_MAX_PAYLOAD_BYTES", "2048")

	cfg := config.Load()
	if cfg.AnomalyMaxPayloadBytes != 2048 {
		t.Errorf("AnomalyMaxPayloadBytes = %d, want 2048", cfg.AnomalyMaxPayloadBytes)
	}
}

func TestLoad_AnomalyMaxPayloadBytesDefault(t *testing.T) {
	t.Setenv("HELM_GATEWAY_HOME", t.TempDir())
	t.Setenv("HELM_GATEWAY_ANOMALY_MAX_PAYLOAD_BYTES", "")

	cfg := config.Load()
	if cfg.AnomalyMaxPayloadBytes != 1<<20 {
		t.Errorf("AnomalyMaxPayloadBytes = %d, want default of 1MiB", cfg.AnomalyMaxPayloadBytes)
	}
}

func TestLoad_PicksUpProfileInHomeDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HELM_GATEWAY_HOME", home)
	t.Setenv("HELM_GATEWAY_PROFILE", "")

	profilePath := filepath.Join(home, "profile.yaml")
	if err := os.WriteFile(profilePath, []byte("thresholds:\n  globalRateLimit: 7\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg := config.Load()
	if cfg.ProfilePath != profilePath {
		t.Fatalf("ProfilePath = %q, want %q", cfg.ProfilePath, profilePath)
	}
}
