// Package config loads service settings from the environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/console-zone/rental/internal/storage"
)

// Config holds all runtime settings.
type Config struct {
	Env     string
	Addr    string
	DataDir string

	StoreMode storage.Mode
	SeedDemo  bool

	MaxCommitAttempts int
	BookingTimeout    time.Duration
	ReconcileSchedule string

	// IdentityURL is the identity service root. Empty uses the store-backed directory.
	IdentityURL     string
	IdentityToken   string
	IdentityTimeout time.Duration

	// RedisAddr enables the identity lookup cache when set.
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	IdentityCacheTTL time.Duration

	// KafkaBrokers enables event publishing when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// Warnings lists values that could not be parsed and fell back to defaults.
	Warnings []string
}

// Load reads .env (if present) and the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() Config {
	c := Config{
		Env:               getEnv("ENV", "production"),
		Addr:              getEnv("ADDR", ":8099"),
		DataDir:           getEnv("DATA_DIR", "/data"),
		StoreMode:         storage.Mode(strings.ToLower(getEnv("STORE_MODE", string(storage.ModeRemote)))),
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "@every 1m"),
		IdentityURL:       strings.TrimRight(getEnv("IDENTITY_URL", ""), "/"),
		IdentityToken:     getEnv("IDENTITY_TOKEN", ""),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:      splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "rental.bookings"),
	}

	c.SeedDemo = c.getBool("SEED_DEMO", false)
	c.MaxCommitAttempts = c.getInt("MAX_COMMIT_ATTEMPTS", 3)
	c.BookingTimeout = c.getDuration("BOOKING_TIMEOUT", 10*time.Second)
	c.IdentityTimeout = c.getDuration("IDENTITY_TIMEOUT", 5*time.Second)
	c.RedisDB = c.getInt("REDIS_DB", 0)
	c.IdentityCacheTTL = c.getDuration("IDENTITY_CACHE_TTL", 5*time.Minute)

	if c.StoreMode != storage.ModeRemote && c.StoreMode != storage.ModeMemory {
		c.Warnings = append(c.Warnings, "STORE_MODE "+string(c.StoreMode)+" is unknown, using remote")
		c.StoreMode = storage.ModeRemote
	}
	if c.MaxCommitAttempts < 1 {
		c.Warnings = append(c.Warnings, "MAX_COMMIT_ATTEMPTS must be at least 1, using 1")
		c.MaxCommitAttempts = 1
	}

	return c
}

// Development reports whether ENV selects development mode.
func (c Config) Development() bool {
	return c.Env == "development" || c.Env == "dev"
}

// DatabasePath is the SQLite file inside DataDir.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "rental.db")
}

// getEnv returns an environment variable value or a default if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) getInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.Warnings = append(c.Warnings, key+"="+raw+" is not an integer")
		return def
	}
	return v
}

func (c *Config) getBool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		c.Warnings = append(c.Warnings, key+"="+raw+" is not a boolean")
		return def
	}
	return v
}

func (c *Config) getDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		c.Warnings = append(c.Warnings, key+"="+raw+" is not a positive duration")
		return def
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
