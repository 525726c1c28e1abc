package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/spetersoncode/jdcompare/client"
	"github.com/spetersoncode/jdcompare/internal/logging"
)

// Config holds the service configuration loaded from environment variables.
type Config struct {
	// Server
	Host        string
	Port        string
	CORSOrigins []string
	Log         logging.Config

	// Providers
	OpenAI    client.ProviderConfig
	Anthropic client.ProviderConfig
	Google    client.ProviderConfig

	// RetryAttempts bounds attempts per provider call, including the first.
	RetryAttempts int

	// Storage. DatabaseURL takes precedence over BoltPath; with neither set
	// conversations live in memory.
	DatabaseURL string
	BoltPath    string
}

// LoadConfig loads configuration from environment variables.
// It loads a .env file if present (silent fail if not found).
func LoadConfig() (*Config, error) {
	godotenv.Load() // Load .env file if present

	cfg := &Config{
		Host:        getEnvOrDefault("JDCOMPARE_HOST", "0.0.0.0"),
		Port:        getEnvOrDefault("JDCOMPARE_PORT", "8000"),
		CORSOrigins: splitList(getEnvOrDefault("JDCOMPARE_CORS_ORIGINS", "http://localhost:3000")),
		Log: logging.Config{
			Level:  getEnvOrDefault("JDCOMPARE_LOG_LEVEL", "info"),
			Format: getEnvOrDefault("JDCOMPARE_LOG_FORMAT", "text"),
			File:   os.Getenv("JDCOMPARE_LOG_FILE"),
		},
		OpenAI: client.ProviderConfig{
			APIKey:     os.Getenv("OPENAI_API_KEY"),
			ChatModel:  getEnvOrDefault("OPENAI_CHAT_MODEL", "gpt-4o"),
			LabelModel: getEnvOrDefault("OPENAI_LABEL_MODEL", "gpt-4o-mini"),
			BaseURL:    os.Getenv("OPENAI_BASE_URL"),
		},
		Anthropic: client.ProviderConfig{
			APIKey:     os.Getenv("ANTHROPIC_API_KEY"),
			ChatModel:  getEnvOrDefault("ANTHROPIC_CHAT_MODEL", "claude-sonnet-4-20250514"),
			LabelModel: getEnvOrDefault("ANTHROPIC_LABEL_MODEL", "claude-haiku-4-5-20251001"),
			BaseURL:    os.Getenv("ANTHROPIC_BASE_URL"),
		},
		Google: client.ProviderConfig{
			APIKey:     os.Getenv("GOOGLE_API_KEY"),
			ChatModel:  getEnvOrDefault("GOOGLE_CHAT_MODEL", "gemini-2.5-flash"),
			LabelModel: getEnvOrDefault("GOOGLE_LABEL_MODEL", "gemini-2.5-flash-lite"),
			BaseURL:    os.Getenv("GOOGLE_BASE_URL"),
		},
		RetryAttempts: getEnvIntOrDefault("JDCOMPARE_RETRY_ATTEMPTS", 3),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		BoltPath:      os.Getenv("JDCOMPARE_BOLT_PATH"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable. Missing API keys are
// not an error here: requests naming an unconfigured provider are rejected
// individually.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("JDCOMPARE_PORT must be a port number, got %q", c.Port)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("JDCOMPARE_RETRY_ATTEMPTS must be at least 1, got %d", c.RetryAttempts)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format: %s (must be text or json)", c.Log.Format)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// ConfiguredProviders lists providers that have an API key.
func (c *Config) ConfiguredProviders() []string {
	var names []string
	if c.OpenAI.APIKey != "" {
		names = append(names, "openai")
	}
	if c.Anthropic.APIKey != "" {
		names = append(names, "anthropic")
	}
	if c.Google.APIKey != "" {
		names = append(names, "google")
	}
	return names
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
