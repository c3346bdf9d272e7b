package config

import (
	"testing"
	"time"
)

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresProviderEndpoints(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "production", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "voiceagent", SSLMode: "require"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret", JWTIssuer: "iss", JWTAudience: "aud"},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without provider base URLs")
	}
}

func TestValidate_LocalDefaultsProviders(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "voiceagent"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Providers.STT.BaseURL == "" || c.Providers.LLM.BaseURL == "" {
		t.Fatalf("expected local provider defaults, got %+v", c.Providers)
	}
}

func TestValidate_TimeoutBudgetsOrdered(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "voiceagent"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// DND gets the shortest budget, the LLM the longest.
	if c.Providers.DND.Timeout >= c.Providers.STT.Timeout {
		t.Fatalf("expected DND budget < STT budget, got %v >= %v", c.Providers.DND.Timeout, c.Providers.STT.Timeout)
	}
	if c.Providers.LLM.Timeout <= c.Providers.TTS.Timeout {
		t.Fatalf("expected LLM budget > TTS budget, got %v <= %v", c.Providers.LLM.Timeout, c.Providers.TTS.Timeout)
	}
	if c.Providers.DND.Timeout != 2*time.Second {
		t.Fatalf("expected 2s DND default, got %v", c.Providers.DND.Timeout)
	}
}
