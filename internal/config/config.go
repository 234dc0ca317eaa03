package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	MetricsAddr string
	PostgresDSN string
	LogLevel    string

	AdminAPIKey string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitFailClosed bool
	RateLimitMaxKeys    int

	LedgerBaseURL        string
	LedgerTimeoutSeconds int
	LedgerChainID        string

	ReconcileIntervalSeconds int
	ReconcileBatchSize       int

	DeliveryWorkers             int
	DeliveryPollIntervalSeconds int
	DeliveryTimeoutSeconds      int
	DeliveryMaxAttempts         int
	WebhookDisableAfter         int

	SuspendThreshold     int
	SuspendWindowMinutes int

	UsageBufferSize int
}

func FromEnv() Config {
	return Config{
		HTTPAddr:                    envDefault("HTTP_ADDR", ":8080"),
		MetricsAddr:                 envDefault("METRICS_ADDR", ":9090"),
		PostgresDSN:                 os.Getenv("POSTGRES_DSN"),
		LogLevel:                    envDefault("LOG_LEVEL", "info"),
		AdminAPIKey:                 os.Getenv("ADMIN_API_KEY"),
		RedisAddr:                   os.Getenv("REDIS_ADDR"),
		RedisPassword:               os.Getenv("REDIS_PASSWORD"),
		RedisDB:                     envIntDefault("REDIS_DB", 0),
		RateLimitFailClosed:         envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:            envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		LedgerBaseURL:               os.Getenv("LEDGER_BASE_URL"),
		LedgerTimeoutSeconds:        envIntDefault("LEDGER_TIMEOUT_SECONDS", 3),
		LedgerChainID:               envDefault("LEDGER_CHAIN_ID", "daon-1"),
		ReconcileIntervalSeconds:    envIntDefault("RECONCILE_INTERVAL_SECONDS", 60),
		ReconcileBatchSize:          envIntDefault("RECONCILE_BATCH_SIZE", 100),
		DeliveryWorkers:             envIntDefault("DELIVERY_WORKERS", 4),
		DeliveryPollIntervalSeconds: envIntDefault("DELIVERY_POLL_INTERVAL_SECONDS", 5),
		DeliveryTimeoutSeconds:      envIntDefault("DELIVERY_TIMEOUT_SECONDS", 10),
		DeliveryMaxAttempts:         envIntDefault("DELIVERY_MAX_ATTEMPTS", 5),
		WebhookDisableAfter:         envIntDefault("WEBHOOK_DISABLE_AFTER", 10),
		SuspendThreshold:            envIntDefault("SUSPEND_THRESHOLD", 5),
		SuspendWindowMinutes:        envIntDefault("SUSPEND_WINDOW_MINUTES", 15),
		UsageBufferSize:             envIntDefault("USAGE_BUFFER_SIZE", 1024),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

func (c Config) LedgerTimeout() time.Duration {
	return time.Duration(c.LedgerTimeoutSeconds) * time.Second
}

func (c Config) DeliveryTimeout() time.Duration {
	return time.Duration(c.DeliveryTimeoutSeconds) * time.Second
}

func (c Config) DeliveryPollInterval() time.Duration {
	return time.Duration(c.DeliveryPollIntervalSeconds) * time.Second
}

func (c Config) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalSeconds) * time.Second
}

func (c Config) SuspendWindow() time.Duration {
	return time.Duration(c.SuspendWindowMinutes) * time.Minute
}
