package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName            = "walletcore"
	defaultAppEnv             = "development"
	defaultHealthPort         = "8081"
	defaultLogLevel           = "info"
	defaultShutdownDelay      = 10 * time.Second
	defaultReaperInterval     = time.Hour
	defaultReaperRetryBackoff = time.Minute
	defaultRateLockTTL        = 10 * time.Minute
	defaultRateLockMaxTTL     = time.Hour
	defaultWalletLockTTL      = 10 * time.Second
	defaultWalletLockWait     = 5 * time.Second
	defaultConflictRetries    = 3
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName            string
	AppEnv             string
	HealthPort         string
	LogLevel           string
	DatabaseURL        string
	RedisURL           string
	ShutdownPeriod     time.Duration
	ReaperInterval     time.Duration
	ReaperRetryBackoff time.Duration
	RateLockDefaultTTL time.Duration
	RateLockMaxTTL     time.Duration
	WalletLockTTL      time.Duration
	WalletLockWait     time.Duration
	ConflictRetries    int
}

// Load reads configuration values from the environment, after seeding it
// from a .env file in the working directory when one exists. Variables
// already set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		AppName:     getEnv("APP_NAME", defaultAppName),
		AppEnv:      getEnv("APP_ENV", defaultAppEnv),
		HealthPort:  getEnv("HEALTH_PORT", defaultHealthPort),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
	}

	durations := []struct {
		dst      *time.Duration
		name     string
		fallback time.Duration
	}{
		{&cfg.ShutdownPeriod, "SHUTDOWN_TIMEOUT", defaultShutdownDelay},
		{&cfg.ReaperInterval, "REAPER_INTERVAL", defaultReaperInterval},
		{&cfg.ReaperRetryBackoff, "REAPER_RETRY_BACKOFF", defaultReaperRetryBackoff},
		{&cfg.RateLockDefaultTTL, "RATE_LOCK_DEFAULT_TTL", defaultRateLockTTL},
		{&cfg.RateLockMaxTTL, "RATE_LOCK_MAX_TTL", defaultRateLockMaxTTL},
		{&cfg.WalletLockTTL, "WALLET_LOCK_TTL", defaultWalletLockTTL},
		{&cfg.WalletLockWait, "WALLET_LOCK_WAIT", defaultWalletLockWait},
	}
	for _, d := range durations {
		v, err := getDuration(d.name, d.fallback)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	cfg.ConflictRetries = defaultConflictRetries
	if v := os.Getenv("CONFLICT_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid CONFLICT_RETRIES: %q", v)
		}
		cfg.ConflictRetries = n
	}

	if cfg.RateLockDefaultTTL > cfg.RateLockMaxTTL {
		return Config{}, fmt.Errorf("RATE_LOCK_DEFAULT_TTL (%s) exceeds RATE_LOCK_MAX_TTL (%s)", cfg.RateLockDefaultTTL, cfg.RateLockMaxTTL)
	}

	if cfg.DatabaseURL == "" && !cfg.IsDevelopment() {
		return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
	}

	return cfg, nil
}

// IsDevelopment reports whether the process may fall back to in-memory backends.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == defaultAppEnv
}

// HealthAddress returns the ops listen address in the format Fiber expects.
// HEALTH_PORT may also carry a full host:port.
func (c Config) HealthAddress() string {
	if strings.Contains(c.HealthPort, ":") {
		return c.HealthPort
	}
	return fmt.Sprintf(":%s", c.HealthPort)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getDuration reads NAME_SECONDS as whole seconds, else NAME as a Go duration.
func getDuration(name string, fallback time.Duration) (time.Duration, error) {
	secondsKey := name + "_SECONDS"
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		if seconds <= 0 {
			return 0, fmt.Errorf("invalid %s: must be positive", secondsKey)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(name); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", name, err)
		}
		if d <= 0 {
			return 0, fmt.Errorf("invalid %s: must be positive", name)
		}
		return d, nil
	}
	return fallback, nil
}
