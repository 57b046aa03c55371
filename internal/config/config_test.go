package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 12, cfg.MaxPollAttempts)
	assert.True(t, decimal.NewFromInt(50000).Equal(cfg.FreeShippingThreshold))
	assert.True(t, decimal.NewFromInt(1500).Equal(cfg.ShippingFee))
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("POLL_INTERVAL", "2s")
	t.Setenv("MAX_POLL_ATTEMPTS", "3")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SHIPPING_FEE", "999.5")
	t.Setenv("BREAKER_FAILURES", "2")

	cfg := Load()

	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 3, cfg.MaxPollAttempts)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, decimal.RequireFromString("999.5").Equal(cfg.ShippingFee))
	assert.Equal(t, uint32(2), cfg.Breaker().ConsecutiveFailures)
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("MAX_POLL_ATTEMPTS", "many")
	t.Setenv("POLL_INTERVAL", "soon")

	cfg := Load()

	assert.Equal(t, 12, cfg.MaxPollAttempts)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
}
