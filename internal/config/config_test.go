package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/console-zone/rental/internal/config"
	"github.com/console-zone/rental/internal/storage"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"ENV", "ADDR", "DATA_DIR", "STORE_MODE", "SEED_DEMO", "MAX_COMMIT_ATTEMPTS",
		"BOOKING_TIMEOUT", "RECONCILE_SCHEDULE", "IDENTITY_URL", "KAFKA_BROKERS", "REDIS_ADDR",
	} {
		t.Setenv(key, "")
	}

	c := config.FromEnv()
	assert.Equal(t, ":8099", c.Addr)
	assert.Equal(t, "/data", c.DataDir)
	assert.Equal(t, storage.ModeRemote, c.StoreMode)
	assert.False(t, c.SeedDemo)
	assert.Equal(t, 3, c.MaxCommitAttempts)
	assert.Equal(t, 10*time.Second, c.BookingTimeout)
	assert.Equal(t, "@every 1m", c.ReconcileSchedule)
	assert.Equal(t, "rental.bookings", c.KafkaTopic)
	assert.Empty(t, c.KafkaBrokers)
	assert.False(t, c.Development())
	assert.Equal(t, "/data/rental.db", c.DatabasePath())
	assert.Empty(t, c.Warnings)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("STORE_MODE", "MEMORY")
	t.Setenv("SEED_DEMO", "true")
	t.Setenv("MAX_COMMIT_ATTEMPTS", "5")
	t.Setenv("BOOKING_TIMEOUT", "2s")
	t.Setenv("IDENTITY_URL", "http://identity:8080/")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	c := config.FromEnv()
	assert.True(t, c.Development())
	assert.Equal(t, storage.ModeMemory, c.StoreMode)
	assert.True(t, c.SeedDemo)
	assert.Equal(t, 5, c.MaxCommitAttempts)
	assert.Equal(t, 2*time.Second, c.BookingTimeout)
	assert.Equal(t, "http://identity:8080", c.IdentityURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.KafkaBrokers)
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("STORE_MODE", "postgres")
	t.Setenv("MAX_COMMIT_ATTEMPTS", "many")
	t.Setenv("BOOKING_TIMEOUT", "-1s")
	t.Setenv("SEED_DEMO", "perhaps")

	c := config.FromEnv()
	assert.Equal(t, storage.ModeRemote, c.StoreMode)
	assert.Equal(t, 3, c.MaxCommitAttempts)
	assert.Equal(t, 10*time.Second, c.BookingTimeout)
	assert.False(t, c.SeedDemo)
	assert.Len(t, c.Warnings, 4)
}
