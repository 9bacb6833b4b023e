package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Database
	DatabaseURL string
	RedisURL    string

	// OpenAI
	OpenAIAPIKey   string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMMaxRetries  int
	LLMRetryDelay  time.Duration

	// Embeddings
	EmbeddingModel string

	// Email limits
	MaxResponseLength int

	// Worker
	WorkerCount int

	// Cache
	CacheClassifyTTL time.Duration

	// API auth (optional; API is open when empty)
	APIJWTSecret string

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		// OpenAI
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1000),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.7),
		LLMMaxRetries:  getEnvInt("LLM_MAX_RETRIES", 3),
		LLMRetryDelay:  time.Duration(getEnvInt("LLM_RETRY_DELAY_MS", 1000)) * time.Millisecond,

		// Embeddings
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-ada-002"),

		// Email limits
		MaxResponseLength: getEnvInt("MAX_RESPONSE_LENGTH", 2000),

		// Worker
		WorkerCount: getEnvInt("WORKER_COUNT", 8),

		// Cache
		CacheClassifyTTL: time.Duration(getEnvInt("CACHE_CLASSIFY_TTL_MIN", 60)) * time.Minute,

		// API auth
		APIJWTSecret: getEnv("API_JWT_SECRET", ""),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
