package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"ENV", "LOG_LEVEL", "VETBOT_API_BASE_URL", "VETBOT_API_TIMEOUT", "VETBOT_STORAGE",
		"VETBOT_HISTORY_LIMIT", "VETBOT_USER_NAME", "VETBOT_PET_NAME", "VETBOT_USER_ID",
		"VETBOT_SOURCE", "VETBOT_LOCAL_BOOKING", "VETBOT_WELCOME_MESSAGE",
	} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.APITimeout != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %s", cfg.APITimeout)
	}
	if cfg.StorageBackend != "file" {
		t.Fatalf("expected file storage, got %s", cfg.StorageBackend)
	}
	if cfg.HistoryLimit != 50 {
		t.Fatalf("expected history limit 50, got %d", cfg.HistoryLimit)
	}
	if cfg.SessionKey != "vetbot_session_id" || cfg.ContextKey != "vetbot_context" {
		t.Fatalf("unexpected storage keys %s/%s", cfg.SessionKey, cfg.ContextKey)
	}
	if !cfg.LocalBooking {
		t.Fatal("expected local booking enabled by default")
	}
	if cfg.WelcomeMessage != DefaultWelcomeMessage {
		t.Fatalf("unexpected welcome message %q", cfg.WelcomeMessage)
	}
	if cfg.HasHostContext() {
		t.Fatal("expected no host context")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("VETBOT_API_BASE_URL", "https://vet.example.com/api/")
	t.Setenv("VETBOT_API_TIMEOUT", "5s")
	t.Setenv("VETBOT_STORAGE", " Redis ")
	t.Setenv("VETBOT_HISTORY_LIMIT", "10")
	t.Setenv("VETBOT_USER_NAME", "Jane")
	t.Setenv("VETBOT_LOCAL_BOOKING", "false")
	t.Setenv("REDIS_TLS", "true")

	cfg := Load()
	if cfg.APIBaseURL != "https://vet.example.com/api" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.APIBaseURL)
	}
	if cfg.APITimeout != 5*time.Second {
		t.Fatalf("expected 5s, got %s", cfg.APITimeout)
	}
	if cfg.StorageBackend != "redis" {
		t.Fatalf("expected redis, got %q", cfg.StorageBackend)
	}
	if cfg.HistoryLimit != 10 {
		t.Fatalf("expected 10, got %d", cfg.HistoryLimit)
	}
	if !cfg.HasHostContext() {
		t.Fatal("expected host context from VETBOT_USER_NAME")
	}
	if cfg.LocalBooking {
		t.Fatal("expected local booking disabled")
	}
	if !cfg.RedisTLS {
		t.Fatal("expected redis tls")
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("VETBOT_API_TIMEOUT", "soon")
	t.Setenv("VETBOT_HISTORY_LIMIT", "many")
	cfg := Load()
	if cfg.APITimeout != 30*time.Second {
		t.Fatalf("expected fallback timeout, got %s", cfg.APITimeout)
	}
	if cfg.HistoryLimit != 50 {
		t.Fatalf("expected fallback limit, got %d", cfg.HistoryLimit)
	}
}

func TestLoadDevAllowedOrigins(t *testing.T) {
	t.Setenv("DEV_ALLOWED_ORIGINS", "")
	if got := Load().DevAllowedOrigins; len(got) != 2 || got[0] != "http://localhost:*" {
		t.Fatalf("unexpected default origins %v", got)
	}

	t.Setenv("DEV_ALLOWED_ORIGINS", " https://clinic.example , ,http://localhost:3000")
	got := Load().DevAllowedOrigins
	if len(got) != 2 || got[0] != "https://clinic.example" || got[1] != "http://localhost:3000" {
		t.Fatalf("unexpected origins %v", got)
	}
}
