package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Env      Environment `envconfig:"ENV" default:"development"`
	LogLevel string      `envconfig:"LOG_LEVEL" default:"info"`

	// Application
	App AppConfig

	// Server
	Server ServerConfig

	// Gemini model endpoint
	Gemini GeminiConfig

	// Page fetching
	Fetcher FetcherConfig
}

// AppConfig holds application metadata
type AppConfig struct {
	Name    string `envconfig:"APP_NAME" default:"form-scanner"`
	Version string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"300s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	MaxRequestSize  int64         `envconfig:"SERVER_MAX_REQUEST_SIZE" default:"10485760"` // 10MB
	EnableCORS      bool          `envconfig:"SERVER_ENABLE_CORS" default:"true"`
	RateLimitRPM    int           `envconfig:"SERVER_RATE_LIMIT_RPM" default:"120"` // 0 disables
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GeminiConfig holds model endpoint settings
type GeminiConfig struct {
	APIKey       string        `envconfig:"GEMINI_API_KEY" required:"true"`
	Model        string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	BaseURL      string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	MaxTokens    int           `envconfig:"GEMINI_MAX_TOKENS" default:"8192"`
	Timeout      time.Duration `envconfig:"GEMINI_TIMEOUT" default:"120s"`
	RateLimitRPM int           `envconfig:"GEMINI_RATE_LIMIT_RPM" default:"60"`
}

// FetcherConfig holds page-fetch settings
type FetcherConfig struct {
	Timeout      time.Duration `envconfig:"FETCH_TIMEOUT" default:"15s"`
	MaxRedirects int           `envconfig:"FETCH_MAX_REDIRECTS" default:"5"`
	MaxBodySize  int64         `envconfig:"FETCH_MAX_BODY_SIZE" default:"10485760"` // 10MB
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	// The model credential is required for core functionality
	if c.Gemini.APIKey == "" {
		errs = append(errs, "GEMINI_API_KEY is required")
	}
	if c.Gemini.Model == "" {
		errs = append(errs, "GEMINI_MODEL must not be empty")
	}
	if c.Fetcher.MaxRedirects < 0 {
		errs = append(errs, "FETCH_MAX_REDIRECTS must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}
