package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "FieldPay"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
)

// Config captures application runtime configuration loaded from environment
// variables.
type Config struct {
	AppName     string
	AppEnv      string
	Port        string
	LogLevel    string
	DatabaseURL string
	// DatabaseMaxConns caps the Postgres pool size; zero keeps the
	// driver default.
	DatabaseMaxConns int
	RedisURL         string
	ShutdownPeriod   time.Duration
	IdempotencyTTL   time.Duration

	// SeedDisbursementAccount names the payment mode created automatically
	// in dev mode so expenses have a disbursement source.
	SeedDisbursementAccount string
}

// Load reads configuration values from the environment and populates a
// Config instance. DATABASE_URL and REDIS_URL are mandatory outside dev.
func Load() (Config, error) {
	cfg := Config{
		AppName:                 getEnv("APP_NAME", defaultAppName),
		AppEnv:                  strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:                    getEnv("PORT", defaultPort),
		LogLevel:                strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		DatabaseMaxConns:        getEnvAsInt("DATABASE_MAX_CONNS", 0),
		RedisURL:                os.Getenv("REDIS_URL"),
		ShutdownPeriod:          getEnvAsDuration("SHUTDOWN_TIMEOUT", defaultShutdownDelay),
		IdempotencyTTL:          getEnvAsDuration("IDEMPOTENCY_TTL", defaultIdempotencyTTL),
		SeedDisbursementAccount: getEnv("SEED_DISBURSEMENT_ACCOUNT", "Office Cash"),
	}

	if !cfg.Dev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// Dev reports whether the app runs in a development environment, where
// in-memory stores replace Postgres and Redis.
func (c Config) Dev() bool {
	switch c.AppEnv {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
