// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "dev-only-secret-change-me"

// Config holds application configuration.
type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string

	// RatesURL is the exchange-rate provider; empty keeps the built-in table.
	RatesURL             string
	RatesRefreshInterval time.Duration
	RatesMaxRetries      int
	RatesInitialBackoff  time.Duration

	AdminEmail        string
	AdminPasswordHash string
	JWTSecret         string
	JWTTTL            time.Duration

	// RateLimit uses the ulule/limiter format, e.g. "100-M". Empty disables it.
	RateLimit     string
	StatsCacheTTL time.Duration
}

// Load reads configuration from environment variables and a .env file if present.
// Real environment variables win over .env values.
func Load() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_PATH", "./data/groupsplit.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("RATES_URL", "")
	v.SetDefault("RATES_REFRESH_INTERVAL", "1h")
	v.SetDefault("RATES_MAX_RETRIES", 3)
	v.SetDefault("RATES_INITIAL_BACKOFF", "500ms")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD_HASH", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", "12h")
	v.SetDefault("RATE_LIMIT", "300-M")
	v.SetDefault("STATS_CACHE_TTL", "30s")
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:              v.GetString("PORT"),
		DBPath:            v.GetString("DB_PATH"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFormat:         v.GetString("LOG_FORMAT"),
		RatesURL:          v.GetString("RATES_URL"),
		RatesMaxRetries:   v.GetInt("RATES_MAX_RETRIES"),
		AdminEmail:        v.GetString("ADMIN_EMAIL"),
		AdminPasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		RateLimit:         v.GetString("RATE_LIMIT"),
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"RATES_REFRESH_INTERVAL", &cfg.RatesRefreshInterval},
		{"RATES_INITIAL_BACKOFF", &cfg.RatesInitialBackoff},
		{"JWT_TTL", &cfg.JWTTTL},
		{"STATS_CACHE_TTL", &cfg.StatsCacheTTL},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(v.GetString(d.key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if cfg.RatesURL != "" && cfg.RatesRefreshInterval <= 0 {
		return nil, fmt.Errorf("RATES_REFRESH_INTERVAL must be positive, got %s", cfg.RatesRefreshInterval)
	}
	if cfg.RatesMaxRetries < 0 {
		return nil, fmt.Errorf("RATES_MAX_RETRIES must not be negative, got %d", cfg.RatesMaxRetries)
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = defaultJWTSecret
		slog.Warn("JWT_SECRET not set, using an insecure development secret")
	}
	if cfg.AdminEmail == "" || cfg.AdminPasswordHash == "" {
		slog.Warn("ADMIN_EMAIL or ADMIN_PASSWORD_HASH not set, admin login is disabled")
	}

	return cfg, nil
}
