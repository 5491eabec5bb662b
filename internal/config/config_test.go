package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_SOURCE", "postgres://localhost/bankrecon")
	for _, k := range []string{"SERVER_PORT", "ENVIRONMENT", "FEE_ACCOUNT_CODE", "INTEREST_ACCOUNT_CODE", "CURRENCY", "LOG_LEVEL", "REQUEST_TIMEOUT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "6150", cfg.FeeAccountCode)
	assert.Equal(t, "4800", cfg.InterestAccountCode)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_SOURCE", "postgres://localhost/bankrecon")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("CURRENCY", "eur")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REQUEST_TIMEOUT", "250ms")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestTimeout)
	assert.True(t, cfg.IsProduction())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing db source", map[string]string{"DB_SOURCE": ""}},
		{"bad currency", map[string]string{"CURRENCY": "XXQ"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"bad timeout", map[string]string{"REQUEST_TIMEOUT": "soon"}},
		{"negative timeout", map[string]string{"REQUEST_TIMEOUT": "-1s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_SOURCE", "postgres://localhost/bankrecon")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
