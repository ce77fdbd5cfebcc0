package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsAndEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("STRIPE_TIMEOUT", "3s")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenLifespan)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3*time.Second, cfg.Stripe.Timeout)
	assert.Equal(t, "usd", cfg.Stripe.Currency)
	assert.Equal(t, "us-east-1", cfg.Storage.Region)
	assert.Equal(t, 10*time.Second, cfg.Purchase.AwaitWindow)
	assert.Equal(t, 23*time.Hour, cfg.Purchase.ReplayWindow)
	assert.Equal(t, time.Hour, cfg.Purchase.AbandonAfter)
}

func TestLoadConfig_ReadsYAML(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("app:\n  port: \"9090\"\nstorage:\n  bucket: films\n  locator_ttl: 30m\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "films", cfg.Storage.Bucket)
	assert.Equal(t, 30*time.Minute, cfg.Storage.LocatorTTL)
}
