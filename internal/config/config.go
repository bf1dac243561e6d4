package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Database
	DatabaseURL string

	// Redis, optional. Run markers fall back to the database when empty.
	RedisURL string

	// Kafka, optional. Outcome events are dropped when no brokers are set.
	KafkaBrokers []string
	KafkaTopic   string

	// API Configuration
	APIPort string
	APIHost string

	// Rug API
	RugAPIBaseURL string

	// Shopify
	ShopifyAPIVersion string
	Vendor            string

	// HTTP client
	HTTPTimeout        time.Duration
	HTTPConnectTimeout time.Duration
	HTTPMaxAttempts    int
	HTTPRetryBackoff   time.Duration

	// Sync throttling
	RequestDelay       time.Duration
	PageDelay          time.Duration
	BatchSize          int
	BackfillMetafields bool

	// Metrics
	PushgatewayURL string

	// Environment
	Env      string
	LogLevel string
	LogDir   string
}

func Load() (*Config, error) {
	// Load .env file
	godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return &Config{
		DatabaseURL:        v.GetString("DATABASE_URL"),
		RedisURL:           v.GetString("REDIS_URL"),
		KafkaBrokers:       splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:         v.GetString("KAFKA_TOPIC"),
		APIPort:            v.GetString("API_PORT"),
		APIHost:            v.GetString("API_HOST"),
		RugAPIBaseURL:      strings.TrimRight(v.GetString("RUG_API_BASE_URL"), "/"),
		ShopifyAPIVersion:  v.GetString("SHOPIFY_API_VERSION"),
		Vendor:             v.GetString("VENDOR"),
		HTTPTimeout:        v.GetDuration("HTTP_TIMEOUT"),
		HTTPConnectTimeout: v.GetDuration("HTTP_CONNECT_TIMEOUT"),
		HTTPMaxAttempts:    v.GetInt("HTTP_MAX_ATTEMPTS"),
		HTTPRetryBackoff:   v.GetDuration("HTTP_RETRY_BACKOFF"),
		RequestDelay:       v.GetDuration("REQUEST_DELAY"),
		PageDelay:          v.GetDuration("PAGE_DELAY"),
		BatchSize:          v.GetInt("BATCH_SIZE"),
		BackfillMetafields: v.GetBool("BACKFILL_METAFIELDS"),
		PushgatewayURL:     v.GetString("PUSHGATEWAY_URL"),
		Env:                v.GetString("ENV"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogDir:             v.GetString("LOG_DIR"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATABASE_URL", "sqlite://rugsync.db")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "rugsync.product-events")
	v.SetDefault("API_PORT", "8080")
	v.SetDefault("API_HOST", "0.0.0.0")
	v.SetDefault("RUG_API_BASE_URL", "https://rugs.example.com")
	v.SetDefault("SHOPIFY_API_VERSION", "2024-01")
	v.SetDefault("VENDOR", "Rug Catalog")
	v.SetDefault("HTTP_TIMEOUT", 60*time.Second)
	v.SetDefault("HTTP_CONNECT_TIMEOUT", 10*time.Second)
	v.SetDefault("HTTP_MAX_ATTEMPTS", 3)
	v.SetDefault("HTTP_RETRY_BACKOFF", 2*time.Second)
	v.SetDefault("REQUEST_DELAY", 500*time.Millisecond)
	v.SetDefault("PAGE_DELAY", 300*time.Millisecond)
	v.SetDefault("BATCH_SIZE", 50)
	v.SetDefault("BACKFILL_METAFIELDS", false)
	v.SetDefault("PUSHGATEWAY_URL", "")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "logs")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
