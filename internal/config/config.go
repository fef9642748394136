package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds server configuration loaded from the environment.
type Config struct {
	Port          string
	DataDir       string
	JWTSecret     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
	CacheTTL      time.Duration
	StatsCacheTTL time.Duration
	GinMode       string
	LogLevel      slog.Level
}

// Load reads configuration from .env (if present) and the environment.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DataDir:       getEnv("DATA_DIR", "./data"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
		CacheTTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),
		StatsCacheTTL: getEnvDuration("STATS_CACHE_TTL", 10*time.Minute),
		GinMode:       getEnv("GIN_MODE", "release"),
		LogLevel:      getEnvLevel("LOG_LEVEL", slog.LevelInfo),
	}

	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET not set, API authentication is disabled")
	}

	return cfg
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
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", value)
	}
	return fallback
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	if value := os.Getenv(key); value != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(value)); err == nil {
			return level
		}
		slog.Warn("Invalid log level in environment, using default", "key", key, "value", value)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("Invalid duration in environment, using default", "key", key, "value", value)
	}
	return fallback
}
