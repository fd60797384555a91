/*
Package config loads runtime configuration for the billing server.

PURPOSE:
  Owns every mutable setting the calculation core deliberately refuses to
  read itself - most importantly the penalty rate percentage. The core takes
  these as explicit per-call parameters, so a config change here applies on
  the next evaluation with no code change and never retroactively.

SOURCES (later wins):
  1. Built-in defaults
  2. YAML config file (-config flag)
  3. Environment variables, optionally loaded from a .env file

ENVIRONMENT VARIABLES:
  PORT                   HTTP listen port
  DB_PATH                SQLite database path (":memory:" for in-memory)
  PENALTY_RATE_PERCENT   Late-payment surcharge percentage
  DUE_DATE_OFFSET_DAYS   Days from cycle start to the bill's due date
  LOG_LEVEL, LOG_FORMAT  Logging knobs (see internal/logger)

SEE ALSO:
  - internal/logger: Consumes the LOG_* settings
  - api/handlers.go: Threads PenaltyRate into each engine call
*/
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the server's runtime configuration. Monetary-adjacent values
// are kept as strings until Load validates them into decimals.
type Config struct {
	Port               int    `yaml:"port"`
	DBPath             string `yaml:"db_path"`
	PenaltyRatePercent string `yaml:"penalty_rate_percent"`
	DueDateOffsetDays  int    `yaml:"due_date_offset_days"`
	LogLevel           string `yaml:"log_level"`
	LogFormat          string `yaml:"log_format"`

	penaltyRate decimal.Decimal
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:               8080,
		DBPath:             "billing.db",
		PenaltyRatePercent: "5",
		DueDateOffsetDays:  10,
		LogLevel:           "info",
		LogFormat:          "console",
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment overrides (a .env file is honored when present).
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("PENALTY_RATE_PERCENT"); v != "" {
		c.PenaltyRatePercent = v
	}
	if v := os.Getenv("DUE_DATE_OFFSET_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			c.DueDateOffsetDays = days
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.DueDateOffsetDays < 0 {
		return fmt.Errorf("due_date_offset_days must not be negative")
	}

	rate, err := decimal.NewFromString(c.PenaltyRatePercent)
	if err != nil {
		return fmt.Errorf("penalty_rate_percent %q is not a number: %w", c.PenaltyRatePercent, err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("penalty_rate_percent must not be negative")
	}
	c.penaltyRate = rate
	return nil
}

// PenaltyRate returns the validated penalty rate percentage.
func (c Config) PenaltyRate() decimal.Decimal {
	return c.penaltyRate
}
