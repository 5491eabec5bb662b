package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
)

type Config struct {
	DBSource string
	Port     string
	Env      string

	FeeAccountCode      string
	InterestAccountCode string
	Currency            string

	LogLevel       slog.Level
	RequestTimeout time.Duration
}

// Load reads the configuration from the environment. DB_SOURCE is the only required
// variable.
func Load() (*Config, error) {
	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	currency := strings.ToUpper(getenv("CURRENCY", money.USD))
	if money.GetCurrency(currency) == nil {
		return nil, fmt.Errorf("CURRENCY: unknown currency code %q", currency)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	timeout, err := time.ParseDuration(getenv("REQUEST_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("REQUEST_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", timeout)
	}

	return &Config{
		DBSource:            dbSource,
		Port:                getenv("SERVER_PORT", "8080"),
		Env:                 getenv("ENVIRONMENT", "development"),
		FeeAccountCode:      getenv("FEE_ACCOUNT_CODE", "6150"),
		InterestAccountCode: getenv("INTEREST_ACCOUNT_CODE", "4800"),
		Currency:            currency,
		LogLevel:            level,
		RequestTimeout:      timeout,
	}, nil
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

// Logger builds the process logger: JSON in production, text otherwise.
func (c *Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
