package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the immutable application configuration snapshot, built
// once at startup and injected into the components that need it.
type Config struct {
	// DBPath is the SQLite database file path.
	DBPath string

	// Addr is the HTTP listen address.
	Addr string

	// JWTSecret signs auth tokens. When empty, a persistent secret is
	// generated and stored in the settings table on first start.
	JWTSecret string

	// ExpiryScanSchedule is the cron expression for the expiry scan.
	ExpiryScanSchedule string

	// ExpiryWindowDays is how far ahead the scan looks for expiring items.
	ExpiryWindowDays int

	// LowStockThreshold flags items whose central availability is at or
	// below this figure.
	LowStockThreshold int
}

// Load reads environment variables (optionally from the provided .env
// file) and materializes a Config.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the
		// environment directly.
		_ = godotenv.Load()
	}

	expiryDays, err := getenvInt("PROMOSTOCK_EXPIRY_WINDOW_DAYS", 30)
	if err != nil {
		return nil, err
	}
	lowStock, err := getenvInt("PROMOSTOCK_LOW_STOCK_THRESHOLD", 10)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DBPath:             getenvWithDefault("PROMOSTOCK_DB", "promostock.sqlite3"),
		Addr:               getenvWithDefault("PROMOSTOCK_ADDR", ":8080"),
		JWTSecret:          os.Getenv("PROMOSTOCK_JWT_SECRET"),
		ExpiryScanSchedule: getenvWithDefault("PROMOSTOCK_EXPIRY_SCAN_SCHEDULE", "0 7 * * *"),
		ExpiryWindowDays:   expiryDays,
		LowStockThreshold:  lowStock,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures required fields are populated and sane.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.DBPath == "" {
		return errors.New("PROMOSTOCK_DB must not be empty")
	}
	if c.Addr == "" {
		return errors.New("PROMOSTOCK_ADDR must not be empty")
	}
	if c.ExpiryScanSchedule == "" {
		return errors.New("PROMOSTOCK_EXPIRY_SCAN_SCHEDULE must not be empty")
	}
	if c.ExpiryWindowDays < 0 {
		return errors.New("PROMOSTOCK_EXPIRY_WINDOW_DAYS must not be negative")
	}
	if c.LowStockThreshold < 0 {
		return errors.New("PROMOSTOCK_LOW_STOCK_THRESHOLD must not be negative")
	}
	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}
