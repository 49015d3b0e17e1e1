package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "IMPORT_BATCH_SIZE")
	unsetEnvWithCleanup(t, "RATE_LIMIT_REQUESTS")
	unsetEnvWithCleanup(t, "RATE_LIMIT_WINDOW")
	unsetEnvWithCleanup(t, "OVH_ENDPOINT")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ImportBatchSize != 80 {
		t.Errorf("expected default ImportBatchSize 80, got %d", cfg.ImportBatchSize)
	}
	if cfg.RateLimitRequests != 100 {
		t.Errorf("expected default RateLimitRequests 100, got %d", cfg.RateLimitRequests)
	}
	if cfg.RateLimitWindow != 15*time.Minute {
		t.Errorf("expected default RateLimitWindow 15m, got %s", cfg.RateLimitWindow)
	}
	if cfg.OVHEndpoint != "https://eu.api.ovh.com/1.0" {
		t.Errorf("unexpected default OVH endpoint %q", cfg.OVHEndpoint)
	}
	if cfg.DashboardCurrency != "EUR" {
		t.Errorf("expected default currency EUR, got %q", cfg.DashboardCurrency)
	}
}

func TestLoadConfig_UsesBillingServiceInternalAPIKeyAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "INTERNAL_API_KEY")
	setEnvWithCleanup(t, "BILLING_SERVICE_INTERNAL_API_KEY", "alias-only-key")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.InternalAPIKey != "alias-only-key" {
		t.Fatalf("expected InternalAPIKey from alias env var, got %q", cfg.InternalAPIKey)
	}
}

func TestLoadConfig_PortOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8080")
	setEnvWithCleanup(t, "PORT", "9090")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Fatalf("expected PORT to override SERVER_PORT, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_InvalidBatchSizeFallsBack(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "IMPORT_BATCH_SIZE", "-5")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ImportBatchSize != 80 {
		t.Fatalf("expected negative batch size to fall back to 80, got %d", cfg.ImportBatchSize)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
