// Package config loads server settings from the environment.
//
// A .env file in the working directory is read first when present; variables
// already set in the environment win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server settings.
type Config struct {
	Port   int
	DBPath string

	JWTSecret   string
	TokenExpiry time.Duration

	// LockTimeout bounds how long a ledger operation waits for its lock keys.
	LockTimeout time.Duration

	// RedisAddr switches locking and websocket fan-out to Redis. Empty keeps
	// both in process.
	RedisAddr     string
	RedisPassword string
	RedisChannel  string

	NotifyWorkers int
	NotifyQueue   int

	LogLevel slog.Level
}

// Load reads the configuration. envFile may be empty to skip the .env file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Port:          getEnvInt("PORT", 8080),
		DBPath:        getEnv("DB_PATH", "./data/ledger.db"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenExpiry:   getEnvDuration("TOKEN_EXPIRY", 24*time.Hour),
		LockTimeout:   getEnvDuration("LOCK_TIMEOUT", 5*time.Second),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisChannel:  getEnv("REDIS_CHANNEL", "ledger-activity"),
		NotifyWorkers: getEnvInt("NOTIFY_WORKERS", 2),
		NotifyQueue:   getEnvInt("NOTIFY_QUEUE", 256),
		LogLevel:      ParseLevel(os.Getenv("LOG_LEVEL")),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.LockTimeout <= 0 {
		return nil, fmt.Errorf("LOCK_TIMEOUT must be positive, got %s", cfg.LockTimeout)
	}
	return cfg, nil
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
