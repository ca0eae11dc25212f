package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kitchenhire/booking-engine/internal/caldate"
)

type Config struct {
	BindAddress        string
	UnixSocketPath     string
	RequireBearerToken bool
	BearerToken        string

	RemoteURL   string
	RemoteToken string

	// AvailabilitySource is where blocked ranges are read from: a file
	// path or an http(s) URL. AvailabilityPath is where admin edits are
	// persisted; for a file source they are usually the same path.
	AvailabilitySource string
	AvailabilityPath   string

	TariffPath       string
	EarliestBookable caldate.Date

	RolloverCron   string
	RolloverMarker string
	FallbackCache  string

	RequestTimeout time.Duration
	LogLevel       string
}

func Load() (Config, error) {
	earliest, err := getenvDate("BK_EARLIEST_BOOKABLE", caldate.DateOf(time.Now()))
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		BindAddress:        getenvDefault("BK_BIND_ADDRESS", "127.0.0.1:9480"),
		UnixSocketPath:     strings.TrimSpace(os.Getenv("BK_UNIX_SOCKET")),
		RequireBearerToken: getenvBool("BK_REQUIRE_TOKEN", true),
		BearerToken:        strings.TrimSpace(os.Getenv("BK_BEARER_TOKEN")),
		RemoteURL:          strings.TrimSpace(os.Getenv("BK_REMOTE_URL")),
		RemoteToken:        strings.TrimSpace(os.Getenv("BK_REMOTE_TOKEN")),
		AvailabilitySource: getenvDefault("BK_AVAILABILITY_SOURCE", "availability.json"),
		AvailabilityPath:   strings.TrimSpace(os.Getenv("BK_AVAILABILITY_PATH")),
		TariffPath:         strings.TrimSpace(os.Getenv("BK_TARIFF_PATH")),
		EarliestBookable:   earliest,
		RolloverCron:       getenvDefault("BK_ROLLOVER_CRON", "5 0 * * *"),
		RolloverMarker:     getenvDefault("BK_ROLLOVER_MARKER", "rollover-marker"),
		FallbackCache:      strings.TrimSpace(os.Getenv("BK_FALLBACK_CACHE")),
		RequestTimeout:     getenvDuration("BK_REQUEST_TIMEOUT", 10*time.Second),
		LogLevel:           getenvDefault("BK_LOG_LEVEL", "info"),
	}
	if cfg.AvailabilityPath == "" && !strings.HasPrefix(cfg.AvailabilitySource, "http") {
		cfg.AvailabilityPath = cfg.AvailabilitySource
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.BindAddress == "" && c.UnixSocketPath == "" {
		return errors.New("either bind address or unix socket path must be configured")
	}
	if c.RequireBearerToken && c.BearerToken == "" {
		return errors.New("BK_BEARER_TOKEN is required when token auth is enabled")
	}
	if c.RemoteURL == "" {
		return errors.New("BK_REMOTE_URL is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be > 0")
	}
	if c.EarliestBookable.IsZero() {
		return errors.New("earliest bookable date is required")
	}
	if c.RolloverCron != "" {
		if _, err := cron.ParseStandard(c.RolloverCron); err != nil {
			return fmt.Errorf("invalid rollover cron spec %q: %w", c.RolloverCron, err)
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getenvDate(key string, fallback caldate.Date) (caldate.Date, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	d, err := caldate.Parse(strings.TrimSpace(value))
	if err != nil {
		return caldate.Date{}, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
