// Package config reads server settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/subsplit/internal/money"
	"github.com/mmynk/subsplit/internal/reconcile"
)

// Config holds everything cmd/server needs to start.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string
	TokenTTL  time.Duration

	// DueAfterDays is how long after the period start a payment falls due.
	DueAfterDays int
	// MaxOverpayment bounds how far a registered amount may exceed what is owed.
	MaxOverpayment decimal.Decimal

	LogLevel  string
	LogFormat string
}

// Defaults used when a variable is unset.
const (
	DefaultPort     = 8080
	DefaultDBPath   = "./data/subsplit.db"
	DefaultTokenTTL = 24 * time.Hour
	// DevJWTSecret is only acceptable for local runs.
	DevJWTSecret = "dev-secret-change-me"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// Load reads the configuration. Unset variables take their defaults;
// malformed values are an error.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:         getEnv("DB_PATH", DefaultDBPath),
		JWTSecret:      getEnv("JWT_SECRET", DevJWTSecret),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		MaxOverpayment: reconcile.DefaultMaxOverpayment,
	}

	var err error
	if cfg.Port, err = intEnv("PORT", DefaultPort); err != nil {
		return nil, err
	}
	if cfg.DueAfterDays, err = intEnv("DUE_AFTER_DAYS", reconcile.DefaultDueAfterDays); err != nil {
		return nil, err
	}
	if cfg.DueAfterDays < 0 {
		return nil, fmt.Errorf("DUE_AFTER_DAYS must not be negative, got %d", cfg.DueAfterDays)
	}

	if v := os.Getenv("TOKEN_TTL"); v != "" {
		if cfg.TokenTTL, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("invalid TOKEN_TTL %q: %w", v, err)
		}
	} else {
		cfg.TokenTTL = DefaultTokenTTL
	}

	if v := os.Getenv("MAX_OVERPAYMENT"); v != "" {
		if cfg.MaxOverpayment, err = money.Parse(v); err != nil {
			return nil, fmt.Errorf("invalid MAX_OVERPAYMENT %q: %w", v, err)
		}
		if cfg.MaxOverpayment.IsNegative() {
			return nil, fmt.Errorf("MAX_OVERPAYMENT must not be negative, got %s", v)
		}
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: want text or json", cfg.LogFormat)
	}

	return cfg, nil
}

// ReconcilerConfig maps the settings onto the reconciler's options.
func (c *Config) ReconcilerConfig() reconcile.Config {
	return reconcile.Config{
		MaxOverpayment: c.MaxOverpayment,
		DueAfterDays:   c.DueAfterDays,
	}
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
