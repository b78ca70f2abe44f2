// Package config provides environment-aware configuration management
// for analyticsd.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment is the deployment environment the process is running in.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

func parseEnvironment(s string) (Environment, bool) {
	switch Environment(s) {
	case Development, Staging, Production:
		return Environment(s), true
	default:
		return "", false
	}
}

// Config holds every tunable this core reads from its environment.
type Config struct {
	Env Environment

	// Database
	PostgresDSN      string
	DBMaxConnections int
	DBIdleTimeout    time.Duration

	// Cache
	RedisAddr string // empty selects the in-memory cache

	// HTTP
	HTTPPort     int
	MetricsPort  int

	// Logging
	LogLevel  string
	LogFormat string

	// Tracker (Event Tracker)
	QueueSize     int
	FlushInterval time.Duration
	FlushBatch    int
	MaxRetries    int

	// Session state machine
	SessionIdleTimeout time.Duration

	// Scheduler
	ProcessingTickInterval   time.Duration
	AggregationCronSchedule  string
	ExpirySweepCronSchedule  string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests float64
	RateLimitBurst    int

	// Features
	EnableDebugEndpoints bool
	MetricsEnabled       bool
}

// Load reads ANALYTICS_ENV (defaulting to development), optionally
// loads a matching config/<env>.env file, then fills Config from the
// process environment.
func Load() (*Config, error) {
	envStr := os.Getenv("ANALYTICS_ENV")
	if envStr == "" {
		envStr = string(Development)
	}
	env, ok := parseEnvironment(envStr)
	if !ok {
		return nil, fmt.Errorf("invalid ANALYTICS_ENV: %s (must be development, staging, or production)", envStr)
	}

	configFile := filepath.Join("config", fmt.Sprintf("%s.env", env))
	if err := godotenv.Load(configFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Printf("warning: could not load %s: %v\n", configFile, err)
	}

	cfg := &Config{Env: env}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	c.PostgresDSN = getEnv("DATABASE_URL", "")
	c.DBMaxConnections = getIntEnv("DB_MAX_CONNECTIONS", 25)
	idleTimeout, err := time.ParseDuration(getEnv("DB_IDLE_TIMEOUT", "30m"))
	if err != nil {
		return fmt.Errorf("invalid DB_IDLE_TIMEOUT: %w", err)
	}
	c.DBIdleTimeout = idleTimeout

	c.RedisAddr = getEnv("REDIS_ADDR", "")

	c.HTTPPort = getIntEnv("HTTP_PORT", 8090)
	c.MetricsPort = getIntEnv("METRICS_PORT", 9090)

	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.LogFormat = getEnv("LOG_FORMAT", "json")

	c.QueueSize = getIntEnv("TRACKER_QUEUE_SIZE", 10000)
	flushInterval, err := time.ParseDuration(getEnv("TRACKER_FLUSH_INTERVAL", "5s"))
	if err != nil {
		return fmt.Errorf("invalid TRACKER_FLUSH_INTERVAL: %w", err)
	}
	c.FlushInterval = flushInterval
	c.FlushBatch = getIntEnv("TRACKER_FLUSH_BATCH", 1000)
	c.MaxRetries = getIntEnv("TRACKER_MAX_RETRIES", 5)

	idleSession, err := time.ParseDuration(getEnv("SESSION_IDLE_TIMEOUT", "30m"))
	if err != nil {
		return fmt.Errorf("invalid SESSION_IDLE_TIMEOUT: %w", err)
	}
	c.SessionIdleTimeout = idleSession

	processingTick, err := time.ParseDuration(getEnv("PROCESSING_TICK_INTERVAL", "1m"))
	if err != nil {
		return fmt.Errorf("invalid PROCESSING_TICK_INTERVAL: %w", err)
	}
	c.ProcessingTickInterval = processingTick
	c.AggregationCronSchedule = getEnv("AGGREGATION_CRON_SCHEDULE", "0 * * * *")
	c.ExpirySweepCronSchedule = getEnv("EXPIRY_SWEEP_CRON_SCHEDULE", "0 2 * * *")

	c.RateLimitEnabled = getBoolEnv("RATE_LIMIT_ENABLED", true)
	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "100"), 64)
	if err != nil {
		return fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	c.RateLimitRequests = rps
	c.RateLimitBurst = getIntEnv("RATE_LIMIT_BURST", 200)

	c.EnableDebugEndpoints = getBoolEnv("ENABLE_DEBUG_ENDPOINTS", false)
	c.MetricsEnabled = getBoolEnv("METRICS_ENABLED", c.Env == Production || c.Env == Staging)

	return nil
}

func (c *Config) IsDevelopment() bool { return c.Env == Development }
func (c *Config) IsProduction() bool  { return c.Env == Production }

// Validate enforces production-only invariants and rejects a config
// with no usable store backend.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.PostgresDSN == "" {
			return fmt.Errorf("DATABASE_URL is required in production")
		}
		if c.EnableDebugEndpoints {
			return fmt.Errorf("ENABLE_DEBUG_ENDPOINTS must be false in production")
		}
		if !c.RateLimitEnabled {
			return fmt.Errorf("RATE_LIMIT_ENABLED must be true in production")
		}
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", c.HTTPPort)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}
