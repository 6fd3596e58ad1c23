package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	ServerPort string
	GinMode    string
	LogLevel   string
	LogFormat  string

	// GeminiAPIKey authenticates the generation call. Empty is allowed:
	// the server starts and every generation attempt fails.
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	SessionStore  string
	RedisURL      string
	SessionSecret string
	SessionTTL    time.Duration
	SecureCookies bool

	GenerationWorkers   int
	GenerationQueueSize int
	SubmitRatePerMinute int
	ShutdownGrace       time.Duration

	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		GinMode:             getEnv("GIN_MODE", "debug"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "pretty"),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", os.Getenv("API_KEY")),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-3-pro-preview"),
		GeminiBaseURL:       getEnv("GEMINI_BASE_URL", ""),
		SessionStore:        strings.ToLower(getEnv("SESSION_STORE", SessionStoreMemory)),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionSecret:       getEnv("SESSION_SECRET", "change-this-to-a-secure-random-string"),
		SessionTTL:          time.Duration(getEnvInt("SESSION_TTL_MINUTES", 120)) * time.Minute,
		SecureCookies:       getEnvBool("SECURE_COOKIES", false),
		GenerationWorkers:   getEnvInt("GENERATION_WORKERS", 4),
		GenerationQueueSize: getEnvInt("GENERATION_QUEUE_SIZE", 64),
		SubmitRatePerMinute: getEnvInt("SUBMIT_RATE_PER_MINUTE", 10),
		ShutdownGrace:       time.Duration(getEnvInt("SHUTDOWN_GRACE_SECONDS", 30)) * time.Second,
		AllowedOrigins:      parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
