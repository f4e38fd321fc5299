package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultEnv               = "development"
	defaultDBPath            = "./dev.db"
	defaultPort              = "8080"
	defaultLogLevel          = "info"
	defaultEstimateRateLimit = 5
	defaultEstimateRateBurst = 10
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env               string
	AdminEmail        string
	AdminPassword     string
	SessionSecret     string
	DBPath            string
	Port              string
	LogLevel          string
	PriceRulesPath    string
	EstimateRateLimit float64
	EstimateRateBurst int
}

// IsDev reports whether the application runs in a development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "", "dev", "development", "local":
		return true
	}
	return false
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Load reads environment variables, plus a local .env file when present.
func Load() Config {
	return LoadFrom(".env")
}

// LoadFrom reads configuration from the process environment and the dotenv file at path.
// Non-empty environment variables win over the file. A missing file is not an error;
// production should use real env injection.
func LoadFrom(path string) Config {
	v := viper.New()
	v.SetDefault("APP_ENV", defaultEnv)
	v.SetDefault("DB_PATH", defaultDBPath)
	v.SetDefault("PORT", defaultPort)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("ESTIMATE_RATE_LIMIT", defaultEstimateRateLimit)
	v.SetDefault("ESTIMATE_RATE_BURST", defaultEstimateRateBurst)
	v.AutomaticEnv()

	if path != "" {
		if err := readDotEnv(v, path); err != nil {
			slog.Warn("ignoring unreadable dotenv file", "path", path, "error", err)
		}
	}

	cfg := Config{
		Env:               v.GetString("APP_ENV"),
		AdminEmail:        v.GetString("ADMIN_EMAIL"),
		AdminPassword:     v.GetString("ADMIN_PASSWORD"),
		SessionSecret:     v.GetString("SESSION_SECRET"),
		DBPath:            v.GetString("DB_PATH"),
		Port:              v.GetString("PORT"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		PriceRulesPath:    v.GetString("PRICE_RULES_PATH"),
		EstimateRateLimit: v.GetFloat64("ESTIMATE_RATE_LIMIT"),
		EstimateRateBurst: v.GetInt("ESTIMATE_RATE_BURST"),
	}

	if cfg.EstimateRateLimit <= 0 {
		cfg.EstimateRateLimit = defaultEstimateRateLimit
	}
	if cfg.EstimateRateBurst <= 0 {
		cfg.EstimateRateBurst = defaultEstimateRateBurst
	}

	if cfg.AdminEmail == "" {
		slog.Warn("ADMIN_EMAIL is not set")
	}
	if cfg.AdminPassword == "" {
		slog.Warn("ADMIN_PASSWORD is not set")
	}
	if cfg.SessionSecret == "" {
		slog.Warn("SESSION_SECRET is not set; admin and quote routes are disabled")
	}

	return cfg
}

func readDotEnv(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	v.SetConfigFile(path)
	v.SetConfigType("env")
	return v.ReadInConfig()
}
