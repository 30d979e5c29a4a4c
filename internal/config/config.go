// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// JWT settings
	JWTSecret string

	// Completion provider settings
	Provider           string
	ChatAPIURL         string
	ChatAPITimeout     time.Duration
	OpenAIAPIKey       string
	AnthropicAPIKey    string
	DefaultModel       string
	DefaultTemperature float64
	DefaultMaxTokens   int
	FallbackEnabled    bool

	// Conversation settings
	HistoryWindow int

	// Template settings
	TemplateDir         string
	TemplateRegistryURL string

	// Session store settings
	SessionStore string
	RedisURL     string
	SessionTTL   time.Duration

	// Audit stream settings
	AuditEnabled bool
	NATSURL      string
	NATSToken    string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// Completion provider
		Provider:           getEnv("COMPLETION_PROVIDER", "chat-api"),
		ChatAPIURL:         getEnv("CHAT_API_URL", "http://localhost:8000"),
		ChatAPITimeout:     getDurationEnv("CHAT_API_TIMEOUT", 120*time.Second),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),
		DefaultModel:       getEnv("DEFAULT_MODEL", ""),
		DefaultTemperature: getFloatEnv("DEFAULT_TEMPERATURE", 0.7),
		DefaultMaxTokens:   getIntEnv("DEFAULT_MAX_TOKENS", 4096),
		FallbackEnabled:    getBoolEnv("FALLBACK_ENABLED", true),

		// Conversation
		HistoryWindow: getIntEnv("HISTORY_WINDOW", 20),

		// Templates
		TemplateDir:         getEnv("TEMPLATE_DIR", ""),
		TemplateRegistryURL: getEnv("TEMPLATE_REGISTRY_URL", ""),

		// Session store
		SessionStore: getEnv("SESSION_STORE", "memory"),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),
		SessionTTL:   getDurationEnv("SESSION_TTL", 24*time.Hour),

		// Audit stream
		AuditEnabled: getBoolEnv("AUDIT_ENABLED", false),
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
