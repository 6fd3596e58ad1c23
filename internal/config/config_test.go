package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"GEMINI_API_KEY", "API_KEY", "SESSION_STORE", "SESSION_TTL_MINUTES", "ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	if cfg.GeminiAPIKey != "" {
		t.Fatalf("api key=%q", cfg.GeminiAPIKey)
	}
	if cfg.SessionStore != SessionStoreMemory {
		t.Fatalf("store=%q", cfg.SessionStore)
	}
	if cfg.SessionTTL != 120*time.Minute {
		t.Fatalf("ttl=%v", cfg.SessionTTL)
	}
	if cfg.AllowedOrigins != nil {
		t.Fatalf("origins=%v", cfg.AllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "fallback-key")
	t.Setenv("SESSION_STORE", "Redis")
	t.Setenv("GENERATION_WORKERS", "not-a-number")
	t.Setenv("SECURE_COOKIES", "true")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()
	if cfg.GeminiAPIKey != "fallback-key" {
		t.Fatalf("api key=%q", cfg.GeminiAPIKey)
	}
	if cfg.SessionStore != SessionStoreRedis {
		t.Fatalf("store=%q", cfg.SessionStore)
	}
	if cfg.GenerationWorkers != 4 {
		t.Fatalf("workers=%d", cfg.GenerationWorkers)
	}
	if !cfg.SecureCookies {
		t.Fatalf("secure cookies not parsed")
	}
	if want := []string{"https://a.example", "https://b.example"}; !reflect.DeepEqual(cfg.AllowedOrigins, want) {
		t.Fatalf("origins=%v", cfg.AllowedOrigins)
	}
}

func TestCacheKeys(t *testing.T) {
	if got := CacheKey.SessionStateKey("abc"); got != "forge:session:abc:state" {
		t.Fatalf("state key=%q", got)
	}
	if got := CacheKey.SessionEventsChannel("abc"); got != "forge:session:abc:events" {
		t.Fatalf("events channel=%q", got)
	}
}
