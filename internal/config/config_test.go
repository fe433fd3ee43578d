package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/subsplit/internal/reconcile"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "DB_PATH", "JWT_SECRET", "TOKEN_TTL", "DUE_AFTER_DAYS", "MAX_OVERPAYMENT", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, DevJWTSecret, cfg.JWTSecret)
	assert.Equal(t, DefaultTokenTTL, cfg.TokenTTL)
	assert.Equal(t, reconcile.DefaultDueAfterDays, cfg.DueAfterDays)
	assert.True(t, cfg.MaxOverpayment.Equal(reconcile.DefaultMaxOverpayment))
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PATH", "/tmp/x.db")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("DUE_AFTER_DAYS", "10")
	t.Setenv("MAX_OVERPAYMENT", "250.50")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "json", cfg.LogFormat)

	rc := cfg.ReconcilerConfig()
	assert.Equal(t, 10, rc.DueAfterDays)
	assert.Equal(t, "250.5", rc.MaxOverpayment.String())
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"PORT":            "eighty",
		"TOKEN_TTL":       "forever",
		"DUE_AFTER_DAYS":  "-1",
		"MAX_OVERPAYMENT": "lots",
		"LOG_FORMAT":      "xml",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
