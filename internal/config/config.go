// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing or malformed, Load errors and
// the process exits. Search rules live in the JSON settings file (settings.go).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Overrun policies.
const (
	OverrunImmediate = "immediate"
	OverrunSkip      = "skip"
)

// Config holds all runtime configuration for the deal sniper.
type Config struct {
	StoreBackend string
	DatabaseURL  string
	RedisURL     string
	SettingsFile string

	MarketplaceBaseURL string
	PollSchedule       string // cron expression; overrides check_interval_minutes
	OverrunPolicy      string
	CycleCooldown      time.Duration
	EvictEveryCycles   int
	Retention          time.Duration
	NotifyDelay        time.Duration

	FetchMinDelay    time.Duration
	FetchMaxDelay    time.Duration
	FetchTimeout     time.Duration
	FetchRPS         float64
	FetchConcurrency int

	NotifyRedisChannel string
	KafkaBrokers       []string
	KafkaTopic         string

	ArchiveBucket string
	ArchivePrefix string
	AWSRegion     string

	LogLevel  string
	LogFormat string
	LogFile   string
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	c := &Config{
		StoreBackend:       envOr("STORE_BACKEND", BackendPostgres),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		SettingsFile:       envOr("SETTINGS_FILE", "config.json"),
		MarketplaceBaseURL: envOr("MARKETPLACE_BASE_URL", "https://www.ebay.com"),
		PollSchedule:       strings.TrimSpace(os.Getenv("POLL_SCHEDULE")),
		OverrunPolicy:      envOr("OVERRUN_POLICY", OverrunImmediate),
		NotifyRedisChannel: os.Getenv("NOTIFY_REDIS_CHANNEL"),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:         envOr("KAFKA_TOPIC", "sneaker-deals"),
		ArchiveBucket:      os.Getenv("ARCHIVE_S3_BUCKET"),
		ArchivePrefix:      os.Getenv("ARCHIVE_S3_PREFIX"),
		AWSRegion:          os.Getenv("AWS_REGION"),
		LogLevel:           strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(envOr("LOG_FORMAT", "text")),
		LogFile:            os.Getenv("LOG_FILE"),
	}

	var err error
	if c.CycleCooldown, err = envSeconds("CYCLE_COOLDOWN_SECONDS", 60); err != nil {
		return nil, err
	}
	if c.EvictEveryCycles, err = envPositiveInt("EVICT_EVERY_CYCLES", 10); err != nil {
		return nil, err
	}
	days, err := envPositiveInt("RETENTION_DAYS", 7)
	if err != nil {
		return nil, err
	}
	c.Retention = time.Duration(days) * 24 * time.Hour
	if c.NotifyDelay, err = envMillis("NOTIFY_DELAY_MS", 1000); err != nil {
		return nil, err
	}
	if c.FetchMinDelay, err = envMillis("FETCH_MIN_DELAY_MS", 1000); err != nil {
		return nil, err
	}
	if c.FetchMaxDelay, err = envMillis("FETCH_MAX_DELAY_MS", 3000); err != nil {
		return nil, err
	}
	if c.FetchTimeout, err = envSeconds("FETCH_TIMEOUT_SECONDS", 30); err != nil {
		return nil, err
	}
	if c.FetchConcurrency, err = envNonNegativeInt("FETCH_CONCURRENCY", 0); err != nil {
		return nil, err
	}
	if s := os.Getenv("FETCH_RPS"); s != "" {
		v, perr := strconv.ParseFloat(s, 64)
		if perr != nil || v < 0 {
			return nil, fmt.Errorf("FETCH_RPS must be a non-negative number, got %q", s)
		}
		c.FetchRPS = v
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendRedis, c.StoreBackend)
	}
	if c.NotifyRedisChannel != "" && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when NOTIFY_REDIS_CHANNEL is set")
	}
	if c.OverrunPolicy != OverrunImmediate && c.OverrunPolicy != OverrunSkip {
		return fmt.Errorf("OVERRUN_POLICY must be %q or %q, got %q", OverrunImmediate, OverrunSkip, c.OverrunPolicy)
	}
	if c.FetchMaxDelay < c.FetchMinDelay {
		return fmt.Errorf("FETCH_MAX_DELAY_MS (%s) must not be below FETCH_MIN_DELAY_MS (%s)", c.FetchMaxDelay, c.FetchMinDelay)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

func envOr(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func envInt(name string, def, floor int, what string) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < floor {
		return 0, fmt.Errorf("%s must be a %s integer, got %q", name, what, s)
	}
	return v, nil
}

func envPositiveInt(name string, def int) (int, error) {
	return envInt(name, def, 1, "positive")
}

func envNonNegativeInt(name string, def int) (int, error) {
	return envInt(name, def, 0, "non-negative")
}

func envSeconds(name string, def int) (time.Duration, error) {
	v, err := envNonNegativeInt(name, def)
	return time.Duration(v) * time.Second, err
}

func envMillis(name string, def int) (time.Duration, error) {
	v, err := envNonNegativeInt(name, def)
	return time.Duration(v) * time.Millisecond, err
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
