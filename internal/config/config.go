package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Store driver names accepted in STORE_DRIVER.
const (
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port             string
	StoreDriver      string
	DatabaseURL      string
	BadgerPath       string
	WebhookURL       string
	NotifyHour       int
	NotifyMaxRetries int
	CORSOrigins      []string
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:        fallback(os.Getenv("PORT"), "3001"),
		StoreDriver: fallback(os.Getenv("STORE_DRIVER"), DriverBadger),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		BadgerPath:  fallback(os.Getenv("BADGER_PATH"), "data"),
		WebhookURL:  strings.TrimSpace(os.Getenv("DISCORD_WEBHOOK_URL")),
		CORSOrigins: parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
	}

	hour := fallback(os.Getenv("NOTIFY_HOUR"), "9")
	if parsed, err := strconv.Atoi(hour); err == nil && parsed >= 0 && parsed <= 23 {
		cfg.NotifyHour = parsed
	} else {
		return Config{}, fmt.Errorf("invalid NOTIFY_HOUR value: %q", hour)
	}

	retries := fallback(os.Getenv("NOTIFY_MAX_RETRIES"), "3")
	if parsed, err := strconv.Atoi(retries); err == nil && parsed >= 0 {
		cfg.NotifyMaxRetries = parsed
	} else {
		return Config{}, fmt.Errorf("invalid NOTIFY_MAX_RETRIES value: %q", retries)
	}

	switch cfg.StoreDriver {
	case DriverBadger, DriverMemory:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER value: %q", cfg.StoreDriver)
	}

	if cfg.WebhookURL == "" {
		return Config{}, errors.New("DISCORD_WEBHOOK_URL is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
