package config

import (
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so ambient environment cannot
// leak into the tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PORT", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"RATE_LIMIT", "SEARCH_RATE_LIMIT", "RATE_WINDOW",
		"STORE_TIMEOUT", "CACHE_TTL", "MIRROR_TTL",
		"CACHE_WRITE_THROUGH", "PROBE_INTERVAL", "TRUST_PROXY_HEADERS",
	} {
		t.Setenv(name, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Port)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty", cfg.RedisAddr)
	}
	if cfg.RateLimit != 300 || cfg.SearchRateLimit != 200 {
		t.Errorf("limits = %d/%d, want 300/200", cfg.RateLimit, cfg.SearchRateLimit)
	}
	if cfg.RateWindow != time.Minute {
		t.Errorf("RateWindow = %v, want 1m", cfg.RateWindow)
	}
	if cfg.StoreTimeout != 150*time.Millisecond {
		t.Errorf("StoreTimeout = %v, want 150ms", cfg.StoreTimeout)
	}
	if cfg.CacheTTL != time.Hour || cfg.MirrorTTL != 24*time.Hour {
		t.Errorf("TTLs = %v/%v, want 1h/24h", cfg.CacheTTL, cfg.MirrorTTL)
	}
	if !cfg.WriteThrough {
		t.Error("WriteThrough should default on")
	}
	if cfg.ProbeInterval != 15*time.Second {
		t.Errorf("ProbeInterval = %v, want 15s", cfg.ProbeInterval)
	}
	if cfg.TrustProxyHeaders {
		t.Error("TrustProxyHeaders should default off")
	}
}

func TestOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("RATE_LIMIT", "10")
	t.Setenv("RATE_WINDOW", "30s")
	t.Setenv("CACHE_WRITE_THROUGH", "false")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.RedisAddr != "redis:6379" || cfg.RedisDB != 3 {
		t.Errorf("redis = %q db %d", cfg.RedisAddr, cfg.RedisDB)
	}
	if cfg.RateLimit != 10 {
		t.Errorf("RateLimit = %d", cfg.RateLimit)
	}
	if cfg.RateWindow != 30*time.Second {
		t.Errorf("RateWindow = %v", cfg.RateWindow)
	}
	if cfg.WriteThrough {
		t.Error("WriteThrough should be off")
	}
	if !cfg.TrustProxyHeaders {
		t.Error("TrustProxyHeaders should be on")
	}
}

func TestMalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric port", "PORT", "eighty"},
		{"non-numeric limit", "RATE_LIMIT", "many"},
		{"bad duration", "RATE_WINDOW", "60"},
		{"bad bool", "CACHE_WRITE_THROUGH", "yep"},
		{"zero limit", "RATE_LIMIT", "0"},
		{"negative window", "RATE_WINDOW", "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("%s=%q: expected error", tt.key, tt.value)
			}
		})
	}
}
