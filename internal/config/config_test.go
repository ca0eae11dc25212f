package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kitchenhire/booking-engine/internal/caldate"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BK_BIND_ADDRESS", "BK_UNIX_SOCKET", "BK_REQUIRE_TOKEN", "BK_BEARER_TOKEN",
		"BK_REMOTE_URL", "BK_REMOTE_TOKEN", "BK_AVAILABILITY_SOURCE", "BK_AVAILABILITY_PATH",
		"BK_TARIFF_PATH", "BK_EARLIEST_BOOKABLE", "BK_ROLLOVER_CRON", "BK_ROLLOVER_MARKER",
		"BK_FALLBACK_CACHE", "BK_REQUEST_TIMEOUT", "BK_LOG_LEVEL",
	} {
		_ = os.Unsetenv(key)
	}
}

func TestLoadSuccess(t *testing.T) {
	clearEnv(t)
	t.Setenv("BK_REMOTE_URL", "https://store.example.test/api")
	t.Setenv("BK_BEARER_TOKEN", "secret")
	t.Setenv("BK_EARLIEST_BOOKABLE", "2025-11-01")
	t.Setenv("BK_REQUEST_TIMEOUT", "5s")
	t.Setenv("BK_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.RequestTimeout)
	}
	if cfg.EarliestBookable != caldate.New(2025, 11, 1) {
		t.Fatalf("unexpected earliest bookable: %v", cfg.EarliestBookable)
	}
	if cfg.AvailabilityPath != "availability.json" {
		t.Fatalf("persist path should default to file source, got %q", cfg.AvailabilityPath)
	}
}

func TestValidateErrors(t *testing.T) {
	base := Config{
		BindAddress:      "127.0.0.1:1",
		BearerToken:      "t",
		RemoteURL:        "https://x",
		RequestTimeout:   time.Second,
		EarliestBookable: caldate.New(2025, 11, 1),
		LogLevel:         "info",
	}
	cases := []func(c *Config){
		func(c *Config) { c.BindAddress = ""; c.UnixSocketPath = "" },
		func(c *Config) { c.RequireBearerToken = true; c.BearerToken = "" },
		func(c *Config) { c.RemoteURL = "" },
		func(c *Config) { c.RequestTimeout = -time.Second },
		func(c *Config) { c.EarliestBookable = caldate.Date{} },
		func(c *Config) { c.RolloverCron = "not a cron" },
		func(c *Config) { c.LogLevel = "trace" },
	}
	for i, mutate := range cases {
		c := base
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error for %+v", i, c)
		}
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should validate, got %v", err)
	}
}

func TestDefaultsWhenEnvInvalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("BK_REMOTE_URL", "https://store.example.test/api")
	t.Setenv("BK_BEARER_TOKEN", "secret")
	t.Setenv("BK_REQUEST_TIMEOUT", "oops")
	t.Setenv("BK_REQUIRE_TOKEN", "oops")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Fatalf("expected default timeout, got %v", cfg.RequestTimeout)
	}
	if !cfg.RequireBearerToken {
		t.Fatalf("expected default true for RequireBearerToken")
	}
	if cfg.RolloverCron != "5 0 * * *" {
		t.Fatalf("expected default cron, got %q", cfg.RolloverCron)
	}
}

func TestLoadRejectsBadEarliestBookable(t *testing.T) {
	clearEnv(t)
	t.Setenv("BK_REMOTE_URL", "https://store.example.test/api")
	t.Setenv("BK_BEARER_TOKEN", "secret")
	t.Setenv("BK_EARLIEST_BOOKABLE", "01/11/2025")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for bad date format")
	}
}

func TestLoadTariff(t *testing.T) {
	tariff, err := LoadTariff("")
	if err != nil {
		t.Fatalf("LoadTariff(\"\") error = %v", err)
	}
	if tariff.DailyRate != 70 {
		t.Fatalf("expected default daily rate, got %d", tariff.DailyRate)
	}

	path := filepath.Join(t.TempDir(), "tariff.yaml")
	doc := "daily_rate: 80\ndelivery_tiers:\n  - max_miles: 40\n    price: 100\nmileage:\n  EN: 0\nfallback_miles: 90\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	tariff, err = LoadTariff(path)
	if err != nil {
		t.Fatalf("LoadTariff() error = %v", err)
	}
	if tariff.DailyRate != 80 || tariff.FallbackMiles != 90 {
		t.Fatalf("unexpected tariff: %+v", tariff)
	}
	if len(tariff.Tiers) != 1 || tariff.Tiers[0].Price != 100 {
		t.Fatalf("unexpected tiers: %+v", tariff.Tiers)
	}

	if err := os.WriteFile(path, []byte(":\nnot yaml"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTariff(path); err == nil {
		t.Fatal("expected error for malformed tariff file")
	}

	tariff, err = LoadTariff(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults, got %v", err)
	}
	if tariff.DailyRate != 70 {
		t.Fatalf("expected default tariff for missing file")
	}
}
