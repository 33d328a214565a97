// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Supported LLM providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds all application configuration.
type Config struct {
	// llm
	LLMProvider    string
	LLMBaseURL     string
	LLMModel       string
	LLMAPIKey      string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeoutSec  int
	LLMRateLimit   float64 // requests per second

	// storage
	DatabaseURL string
	StorageDir  string

	// messaging; empty disables publishing
	NatsURL string

	// catalog override (YAML); empty uses the embedded one
	CatalogFile string

	// server
	HTTPPort        int
	TemplatesDir    string
	StaticDir       string
	TemplatesReload bool
	AllowedOrigins  []string

	// browser workspaces
	SessionMaxIdleMin int
	SessionSweepSec   int

	// logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LLMProvider:       strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
		LLMModel:          getEnv("LLM_MODEL", ""),
		LLMMaxTokens:      getEnvInt("LLM_MAX_TOKENS", 8192),
		LLMTemperature:    getEnvFloat("LLM_TEMPERATURE", 0.1),
		LLMTimeoutSec:     getEnvInt("LLM_TIMEOUT_SECONDS", 120),
		LLMRateLimit:      getEnvFloat("LLM_RATE_LIMIT", 2),
		DatabaseURL:       getEnv("DATABASE_URL", "file:./storage/lexscout.db"),
		StorageDir:        getEnv("STORAGE_DIR", "./storage"),
		NatsURL:           getEnv("NATS_URL", ""),
		CatalogFile:       getEnv("CATALOG_FILE", ""),
		HTTPPort:          getEnvInt("HTTP_PORT", 3100),
		TemplatesDir:      getEnv("TEMPLATES_DIR", "./internal/web/templates"),
		StaticDir:         getEnv("STATIC_DIR", "./internal/web/static"),
		TemplatesReload:   getEnvBool("TEMPLATES_RELOAD", false),
		AllowedOrigins:    getEnvList("CORS_ALLOWED_ORIGINS"),
		SessionMaxIdleMin: getEnvInt("SESSION_MAX_IDLE_MINUTES", 120),
		SessionSweepSec:   getEnvInt("SESSION_SWEEP_SECONDS", 60),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           getEnv("LOG_FILE", ""),
	}

	// API_KEY is the variable the hosted deployment has always used for Gemini.
	cfg.LLMAPIKey = firstEnv("LLM_API_KEY", "GEMINI_API_KEY", "API_KEY")

	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultModel(cfg.LLMProvider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q: supported providers are gemini, openai", c.LLMProvider)
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT out of range: %d", c.HTTPPort)
	}
	if c.LLMTimeoutSec <= 0 {
		return errors.New("LLM_TIMEOUT_SECONDS must be positive")
	}
	if c.SessionMaxIdleMin <= 0 || c.SessionSweepSec <= 0 {
		return errors.New("SESSION_MAX_IDLE_MINUTES and SESSION_SWEEP_SECONDS must be positive")
	}
	return nil
}

func defaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return "gpt-4o-mini"
	}
	return "gemini-2.5-flash"
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if val := os.Getenv(k); val != "" {
			return val
		}
	}
	return ""
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
