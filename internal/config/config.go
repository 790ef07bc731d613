// Package config parses the service's environment configuration.
//
// All environment access lives here: the packages it configures take plain
// values and never read the environment themselves.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the complete service configuration.
type Config struct {
	// Port the HTTP server listens on.
	Port int

	// RedisAddr is the shared store address. Empty means no shared store is
	// configured and the process runs in local-fallback mode from the start.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// RateLimit and SearchRateLimit are requests per window for lookup and
	// search endpoints respectively.
	RateLimit       int
	SearchRateLimit int
	RateWindow      time.Duration

	// StoreTimeout bounds every shared-store round trip on the request path.
	StoreTimeout time.Duration

	// CacheTTL applies to demand-filled cache entries, MirrorTTL to the
	// mirrored dataset and its version marker.
	CacheTTL  time.Duration
	MirrorTTL time.Duration

	// WriteThrough repopulates the shared store after local-fallback hits.
	WriteThrough bool

	// ProbeInterval is how often the supervisor pings an unreachable store.
	ProbeInterval time.Duration

	// TrustProxyHeaders honors X-Forwarded-For / X-Real-IP for client
	// identification. Enable only behind a trusted proxy.
	TrustProxyHeaders bool
}

// Load reads the environment, applying defaults. Malformed values are
// startup errors rather than silent fallbacks.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            8000,
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RateLimit:       300,
		SearchRateLimit: 200,
		RateWindow:      time.Minute,
		StoreTimeout:    150 * time.Millisecond,
		CacheTTL:        time.Hour,
		MirrorTTL:       24 * time.Hour,
		WriteThrough:    true,
		ProbeInterval:   15 * time.Second,
	}

	var err error
	if cfg.Port, err = intVar("PORT", cfg.Port); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = intVar("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = intVar("RATE_LIMIT", cfg.RateLimit); err != nil {
		return nil, err
	}
	if cfg.SearchRateLimit, err = intVar("SEARCH_RATE_LIMIT", cfg.SearchRateLimit); err != nil {
		return nil, err
	}
	if cfg.RateWindow, err = durationVar("RATE_WINDOW", cfg.RateWindow); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = durationVar("STORE_TIMEOUT", cfg.StoreTimeout); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = durationVar("CACHE_TTL", cfg.CacheTTL); err != nil {
		return nil, err
	}
	if cfg.MirrorTTL, err = durationVar("MIRROR_TTL", cfg.MirrorTTL); err != nil {
		return nil, err
	}
	if cfg.ProbeInterval, err = durationVar("PROBE_INTERVAL", cfg.ProbeInterval); err != nil {
		return nil, err
	}
	if cfg.WriteThrough, err = boolVar("CACHE_WRITE_THROUGH", cfg.WriteThrough); err != nil {
		return nil, err
	}
	if cfg.TrustProxyHeaders, err = boolVar("TRUST_PROXY_HEADERS", cfg.TrustProxyHeaders); err != nil {
		return nil, err
	}

	if cfg.RateLimit <= 0 || cfg.SearchRateLimit <= 0 {
		return nil, fmt.Errorf("rate limits must be positive")
	}
	if cfg.RateWindow <= 0 {
		return nil, fmt.Errorf("RATE_WINDOW must be positive")
	}

	return cfg, nil
}

func intVar(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", name, raw)
	}
	return n, nil
}

func durationVar(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", name, raw)
	}
	return d, nil
}

func boolVar(name string, def bool) (bool, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", name, raw)
	}
	return b, nil
}
