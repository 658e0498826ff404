// Package config loads server configuration from an optional TOML file,
// a .env file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the root configuration.
type Config struct {
	Port        string   `toml:"port"`
	DatabaseURL string   `toml:"database_url"`
	RedisURL    string   `toml:"redis_url"`
	SQLitePath  string   `toml:"sqlite_path"`
	CacheTTL    duration `toml:"cache_ttl"`
	LogLevel    string   `toml:"log_level"`

	Cover  CoverConfig  `toml:"cover"`
	Budget BudgetConfig `toml:"budget"`
}

// CoverConfig tunes the optimizer.
type CoverConfig struct {
	CandidateCap  int `toml:"candidate_cap"`
	MaxIterations int `toml:"max_iterations"`
	MaxPoolSize   int `toml:"max_pool_size"`
}

// BudgetConfig holds spending caps in euros. Empty or zero disables a cap.
type BudgetConfig struct {
	MaxPerSession string `toml:"max_per_session"`
	MaxPerDraw    string `toml:"max_per_draw"`
	MaxPerWeek    string `toml:"max_per_week"`
}

// duration wraps time.Duration for TOML text decoding.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:     "8080",
		CacheTTL: duration{30 * time.Second},
		LogLevel: "info",
		Cover: CoverConfig{
			CandidateCap: 1000,
			MaxPoolSize:  20,
		},
	}
}

// Load builds the configuration. path names an optional TOML file; an
// empty path or a missing file is not an error. A .env file in the working
// directory is loaded if present, and environment variables win over both.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Port, "PORT")
	setStr(&cfg.DatabaseURL, "DATABASE_URL")
	setStr(&cfg.RedisURL, "REDIS_URL")
	setStr(&cfg.SQLitePath, "SQLITE_PATH")
	setDuration(&cfg.CacheTTL, "CACHE_TTL")
	setStr(&cfg.LogLevel, "LOG_LEVEL")

	setInt(&cfg.Cover.CandidateCap, "COVER_CANDIDATE_CAP")
	setInt(&cfg.Cover.MaxIterations, "COVER_MAX_ITERATIONS")
	setInt(&cfg.Cover.MaxPoolSize, "MAX_POOL_SIZE")

	setStr(&cfg.Budget.MaxPerSession, "BUDGET_MAX_PER_SESSION")
	setStr(&cfg.Budget.MaxPerDraw, "BUDGET_MAX_PER_DRAW")
	setStr(&cfg.Budget.MaxPerWeek, "BUDGET_MAX_PER_WEEK")
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks the configuration for errors. All problems are reported
// together.
func (c *Config) Validate() error {
	var errs []string

	if c.Port == "" {
		errs = append(errs, "port must not be empty")
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if c.CacheTTL.Duration < 0 {
		errs = append(errs, "cache_ttl must not be negative")
	}
	if c.Cover.CandidateCap < 1 {
		errs = append(errs, "cover: candidate_cap must be positive")
	}
	if c.Cover.MaxIterations < 0 {
		errs = append(errs, "cover: max_iterations must not be negative")
	}
	if c.Cover.MaxPoolSize < 5 || c.Cover.MaxPoolSize > 49 {
		errs = append(errs, "cover: max_pool_size must be in [5,49]")
	}
	for name, v := range map[string]string{
		"max_per_session": c.Budget.MaxPerSession,
		"max_per_draw":    c.Budget.MaxPerDraw,
		"max_per_week":    c.Budget.MaxPerWeek,
	} {
		if _, err := parseAmount(v); err != nil {
			errs = append(errs, fmt.Sprintf("budget: %s: %v", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// BudgetCaps returns the parsed spending caps. Call Validate first.
func (c *Config) BudgetCaps() (perSession, perDraw, perWeek decimal.Decimal) {
	perSession, _ = parseAmount(c.Budget.MaxPerSession)
	perDraw, _ = parseAmount(c.Budget.MaxPerDraw)
	perWeek, _ = parseAmount(c.Budget.MaxPerWeek)
	return perSession, perDraw, perWeek
}

// BudgetEnabled reports whether any spending cap is set.
func (c *Config) BudgetEnabled() bool {
	s, d, w := c.BudgetCaps()
	return s.IsPositive() || d.IsPositive() || w.IsPositive()
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %q", s)
	}
	return v, nil
}

// Typed env-var helpers. Each only mutates the target when the variable is
// present and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
