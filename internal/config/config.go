package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration for progress-hub
type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	Catalog     CatalogConfig
	Leaderboard LeaderboardConfig
	Payload     PayloadConfig
	Monitor     MonitorConfig
	Log         LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host     string
	Port     int `validate:"min=1,max=65535"`
	APIToken string
	// AllowedOrigins is the CORS origin list for the challenge UI
	AllowedOrigins []string
}

// StorageConfig selects and configures the key-value backend
type StorageConfig struct {
	Driver        string `validate:"oneof=memory redis postgres sqlite"`
	SQLitePath    string
	DSN           string
	RedisAddress  string
	RedisPassword string
	RedisDB       int `validate:"min=0"`
	KeyPrefix     string
	Table         string `validate:"required"`
}

// CatalogConfig holds challenge catalog configuration
type CatalogConfig struct {
	Path string
}

// LeaderboardConfig holds leaderboard configuration
type LeaderboardConfig struct {
	Size int `validate:"min=1,max=10000"`
}

// PayloadConfig holds payload accessor configuration
type PayloadConfig struct {
	TranslationHistoryLimit int `validate:"min=1"`
}

// MonitorConfig holds storage health monitor configuration
type MonitorConfig struct {
	Interval time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

// Load loads configuration from environment variables.
// A .env file in the working directory is applied first if present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "127.0.0.1"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			APIToken:       getEnv("API_TOKEN", ""),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Storage: StorageConfig{
			Driver:        strings.ToLower(getEnv("STORAGE_DRIVER", DriverSQLite)),
			SQLitePath:    getEnv("SQLITE_PATH", "data/progress.db"),
			DSN:           getEnv("DATABASE_DSN", ""),
			RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			KeyPrefix:     getEnv("STORAGE_KEY_PREFIX", ""),
			Table:         getEnv("STORAGE_TABLE", "kv_entries"),
		},
		Catalog: CatalogConfig{
			Path: getEnv("CATALOG_PATH", ""),
		},
		Leaderboard: LeaderboardConfig{
			Size: getEnvAsInt("LEADERBOARD_SIZE", 100),
		},
		Payload: PayloadConfig{
			TranslationHistoryLimit: getEnvAsInt("TRANSLATION_HISTORY_LIMIT", 50),
		},
		Monitor: MonitorConfig{
			Interval: getEnvAsDuration("HEALTH_INTERVAL", 30*time.Second),
		},
		Log: LogConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for the %s driver", DriverPostgres)
		}
	case DriverRedis:
		if c.Storage.RedisAddress == "" {
			return fmt.Errorf("REDIS_ADDRESS is required for the %s driver", DriverRedis)
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the %s driver", DriverSQLite)
		}
	}

	return nil
}

// SlogLevel maps the configured level to a slog.Level
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
