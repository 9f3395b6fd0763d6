package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Env != EnvDevelopment {
		t.Errorf("Env = %s, want development", cfg.Env)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %s", cfg.Server.Addr())
	}
	if cfg.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("Gemini.Model = %s", cfg.Gemini.Model)
	}
	if cfg.Gemini.Timeout != 120*time.Second {
		t.Errorf("Gemini.Timeout = %s, want 120s", cfg.Gemini.Timeout)
	}
	if cfg.Fetcher.Timeout != 15*time.Second {
		t.Errorf("Fetcher.Timeout = %s, want 15s", cfg.Fetcher.Timeout)
	}
	if cfg.Fetcher.MaxBodySize != 10485760 {
		t.Errorf("Fetcher.MaxBodySize = %d, want 10MB", cfg.Fetcher.MaxBodySize)
	}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false in default env")
	}
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error without GEMINI_API_KEY")
	}
	if !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Errorf("error should name the missing variable: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("ENV", "production")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("FETCH_MAX_REDIRECTS", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Env != EnvProduction {
		t.Errorf("Env = %s, want production", cfg.Env)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Gemini.Model != "gemini-2.5-pro" {
		t.Errorf("Gemini.Model = %s", cfg.Gemini.Model)
	}
	if cfg.Fetcher.MaxRedirects != 2 {
		t.Errorf("Fetcher.MaxRedirects = %d, want 2", cfg.Fetcher.MaxRedirects)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Gemini.APIKey = "k"
	cfg.Gemini.Model = "m"

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}

	cfg.Fetcher.MaxRedirects = -1
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for negative redirect limit")
	}
}
