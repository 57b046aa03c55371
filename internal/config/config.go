package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/marketplace-client/pkg/circuitbreaker"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPPort           string
	AllowedOrigins     []string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	LogLevel           string

	APIBaseURL      string
	APITimeout      time.Duration
	APIRateLimit    float64
	APIRateBurst    int
	BreakerFailures uint32
	BreakerTimeout  time.Duration

	StoreDriver   string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers []string
	KafkaTopic   string

	PollInterval          time.Duration
	MaxPollAttempts       int
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal

	ReceiptBrand string
}

// Load reads an optional .env file, then the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		AllowedOrigins:     getList("ALLOWED_ORIGINS", "http://localhost:5173"),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB
		LogLevel:           getEnv("LOG_LEVEL", "info"),

		APIBaseURL:      getEnv("API_BASE_URL", "http://localhost:5000/api"),
		APITimeout:      getDuration("API_TIMEOUT", 10*time.Second),
		APIRateLimit:    getFloat("API_RATE_LIMIT", 20),
		APIRateBurst:    getInt("API_RATE_BURST", 10),
		BreakerFailures: uint32(getInt("BREAKER_FAILURES", 5)),
		BreakerTimeout:  getDuration("BREAKER_TIMEOUT", 30*time.Second),

		StoreDriver:   getEnv("STORE_DRIVER", "sqlite"),
		SQLitePath:    getEnv("SQLITE_PATH", "./marketplace.db"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		KafkaBrokers: getList("KAFKA_BROKERS", ""),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "checkout-events"),

		PollInterval:          getDuration("POLL_INTERVAL", 5*time.Second),
		MaxPollAttempts:       getInt("MAX_POLL_ATTEMPTS", 12),
		FreeShippingThreshold: getDecimal("FREE_SHIPPING_THRESHOLD", decimal.NewFromInt(50000)),
		ShippingFee:           getDecimal("SHIPPING_FEE", decimal.NewFromInt(1500)),

		ReceiptBrand: getEnv("RECEIPT_BRAND", "Farmart"),
	}
}

func (c *Config) Breaker() circuitbreaker.Config {
	cfg := circuitbreaker.DefaultConfig()
	cfg.ConsecutiveFailures = c.BreakerFailures
	cfg.OpenTimeout = c.BreakerTimeout
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return v
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if v, err := decimal.NewFromString(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

// getList splits a comma separated value, dropping blanks.
func getList(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
