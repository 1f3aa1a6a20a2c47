package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends accepted by CHAT_STORE.
const (
	StoreAuto     = "auto"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

var defaultModels = []string{
	"gemini-1.5-flash",
	"gemini-1.5-pro",
	"gemini-pro",
	"gemini-1.0-pro",
}

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	ChatStore     string

	GeminiAPIKey      string
	Models            []string
	ContextWindow     int
	CompletionTimeout time.Duration
	ProbeTimeout      time.Duration

	JWTSecret          string
	SessionCookieName  string
	SessionTTL         time.Duration
	CookieDomain       string
	CORSAllowedOrigins []string

	RateLimitRPS   float64
	RateLimitBurst int

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	ArchiveBucket       string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		ChatStore:     strings.ToLower(strings.TrimSpace(getEnv("CHAT_STORE", StoreAuto))),

		// Gemini Configuration
		GeminiAPIKey:      strings.TrimSpace(getEnv("GEMINI_API_KEY", "")),
		Models:            getEnvAsList("GEMINI_MODELS", defaultModels),
		ContextWindow:     getEnvAsInt("CHAT_CONTEXT_WINDOW", 9),
		CompletionTimeout: getEnvAsDuration("CHAT_COMPLETION_TIMEOUT", 60*time.Second),
		ProbeTimeout:      getEnvAsDuration("CHAT_PROBE_TIMEOUT", 15*time.Second),

		// Session Configuration
		JWTSecret:          getEnv("JWT_SECRET", ""),
		SessionCookieName:  getEnv("SESSION_COOKIE_NAME", "auth_token"),
		SessionTTL:         getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
		CookieDomain:       getEnv("COOKIE_DOMAIN", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		RateLimitRPS:   getEnvAsFloat("CHAT_RATE_LIMIT_RPS", 1),
		RateLimitBurst: getEnvAsInt("CHAT_RATE_LIMIT_BURST", 5),

		// AWS Configuration
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		ArchiveBucket:       getEnv("CHAT_ARCHIVE_BUCKET", ""),
	}
}

// IsProduction reports whether cookies should be issued as Secure.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// UsesGemini reports whether any configured model is served by Gemini.
func (c *Config) UsesGemini() bool {
	for _, m := range c.Models {
		if !strings.HasPrefix(m, "bedrock:") {
			return true
		}
	}
	return false
}

// UsesBedrock reports whether any configured model is served by Bedrock.
func (c *Config) UsesBedrock() bool {
	for _, m := range c.Models {
		if strings.HasPrefix(m, "bedrock:") {
			return true
		}
	}
	return false
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Models) == 0 {
		errs = append(errs, errors.New("config: GEMINI_MODELS must list at least one model"))
	}
	if c.UsesGemini() {
		switch {
		case c.GeminiAPIKey == "":
			errs = append(errs, errors.New("config: GEMINI_API_KEY is required"))
		case !strings.HasPrefix(c.GeminiAPIKey, "AIza"):
			errs = append(errs, errors.New("config: GEMINI_API_KEY should start with 'AIza'"))
		}
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("config: JWT_SECRET is required"))
	}
	switch c.ChatStore {
	case StoreAuto, StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("config: CHAT_STORE=postgres requires DATABASE_URL"))
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("config: CHAT_STORE=redis requires REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown CHAT_STORE %q", c.ChatStore))
	}
	if c.ContextWindow <= 0 {
		errs = append(errs, errors.New("config: CHAT_CONTEXT_WINDOW must be positive"))
	}
	return errors.Join(errs...)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), defaultValue...)
	}
	return out
}
