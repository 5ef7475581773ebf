// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthServiceConfig provides settings needed by the auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetPollInterval() time.Duration
	GetSweepInterval() time.Duration
}

// GatewayConfig provides settings for the WhatsApp gateway client.
type GatewayConfig interface {
	GetGatewayBaseURL() string
	GetGatewayAPIKey() string
	GetGatewayRatePerSec() float64
}

// WebhookConfig provides settings for the gateway webhook surface.
type WebhookConfig interface {
	GetWebhookToken() string
}

// AIConfig provides settings for the AI lead scorer.
type AIConfig interface {
	GetMoonshotAPIKey() string
	GetScoringModel() string
}

// IngestionConfig provides settings for the ingestion pipeline.
type IngestionConfig interface {
	GetMessageSeenTTL() time.Duration
}

// AssignmentConfig provides settings for the round-robin sweep.
type AssignmentConfig interface {
	GetSweepMinAge() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env              string
	HTTPAddr         string
	DatabaseURL      string
	JWTAccessSecret  string
	AccessTokenTTL   time.Duration
	CORSAllowAll     bool
	CORSOrigins      []string
	CORSAllowCreds   bool
	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int
	GatewayBaseURL   string
	GatewayAPIKey    string
	GatewayRate      float64
	WebhookToken     string
	MoonshotAPIKey   string
	ScoringModel     string
	PollInterval     time.Duration
	SweepInterval    time.Duration
	SweepMinAge      time.Duration
	MessageSeenTTL   time.Duration
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// AuthServiceConfig implementation
func (c *Config) GetAccessTokenTTL() time.Duration { return c.AccessTokenTTL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string             { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool       { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string       { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int        { return c.AsynqConcurrency }
func (c *Config) GetPollInterval() time.Duration  { return c.PollInterval }
func (c *Config) GetSweepInterval() time.Duration { return c.SweepInterval }

// GatewayConfig implementation
func (c *Config) GetGatewayBaseURL() string     { return c.GatewayBaseURL }
func (c *Config) GetGatewayAPIKey() string      { return c.GatewayAPIKey }
func (c *Config) GetGatewayRatePerSec() float64 { return c.GatewayRate }

// WebhookConfig implementation
func (c *Config) GetWebhookToken() string { return c.WebhookToken }

// AIConfig implementation
func (c *Config) GetMoonshotAPIKey() string { return c.MoonshotAPIKey }
func (c *Config) GetScoringModel() string   { return c.ScoringModel }

// IngestionConfig implementation
func (c *Config) GetMessageSeenTTL() time.Duration { return c.MessageSeenTTL }

// AssignmentConfig implementation
func (c *Config) GetSweepMinAge() time.Duration { return c.SweepMinAge }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		JWTAccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),
		AccessTokenTTL:   mustDuration(getEnv("JWT_ACCESS_TTL", "8h")),
		CORSAllowAll:     corsAllowAll,
		CORSOrigins:      corsOrigins,
		CORSAllowCreds:   strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		GatewayBaseURL:   getEnv("GATEWAY_BASE_URL", ""),
		GatewayAPIKey:    getEnv("GATEWAY_API_KEY", ""),
		GatewayRate:      mustFloat(getEnv("GATEWAY_RATE_PER_SEC", "5")),
		WebhookToken:     getEnv("GATEWAY_WEBHOOK_TOKEN", ""),
		MoonshotAPIKey:   getEnv("MOONSHOT_API_KEY", ""),
		ScoringModel:     getEnv("SCORING_MODEL", "kimi-k2.5"),
		PollInterval:     mustDuration(getEnv("INGEST_POLL_INTERVAL", "30s")),
		SweepInterval:    mustDuration(getEnv("ASSIGN_SWEEP_INTERVAL", "5m")),
		SweepMinAge:      mustDuration(getEnv("ASSIGN_MIN_LEAD_AGE", "2h")),
		MessageSeenTTL:   mustDuration(getEnv("MESSAGE_SEEN_TTL", "24h")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
