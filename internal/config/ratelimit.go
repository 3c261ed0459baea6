package config

import (
	"os"
	"strconv"
	"time"
)

// RateTier describes one token bucket: how many requests may burst and how
// fast the bucket refills.  The service distinguishes creation-class
// endpoints (registrations, logins, resource creation) from read-class
// endpoints so each can carry its own quota.
type RateTier struct {
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
}

// RateLimitConfig holds settings for the Redis token-bucket limiter.
type RateLimitConfig struct {
	Enabled  bool
	TTL      time.Duration
	Prefix   string
	Debug    bool
	Creation RateTier
	Read     RateTier
}

// LoadRateLimitConfig builds a RateLimitConfig from environment variables.
// Defaults follow the service policy: 10 requests per minute on
// creation-class endpoints and 60 per hour on read-class endpoints.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled: envBool("RATE_LIMIT_ENABLED", true),
		TTL:     envDur("RATE_LIMIT_TTL", 2*time.Hour),
		Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:   envBool("RATE_LIMIT_DEBUG", false),
		Creation: RateTier{
			Capacity:       envInt("RATE_LIMIT_CREATE_CAPACITY", 10),
			RefillTokens:   envInt("RATE_LIMIT_CREATE_REFILL_TOKENS", 10),
			RefillInterval: envDur("RATE_LIMIT_CREATE_REFILL_INTERVAL", time.Minute),
		},
		Read: RateTier{
			Capacity:       envInt("RATE_LIMIT_READ_CAPACITY", 60),
			RefillTokens:   envInt("RATE_LIMIT_READ_REFILL_TOKENS", 60),
			RefillInterval: envDur("RATE_LIMIT_READ_REFILL_INTERVAL", time.Hour),
		},
	}
	cfg.Creation = clampTier(cfg.Creation)
	cfg.Read = clampTier(cfg.Read)
	minTTL := 2 * cfg.Read.RefillInterval
	if cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}

func clampTier(t RateTier) RateTier {
	if t.Capacity < 1 {
		t.Capacity = 1
	}
	if t.RefillTokens < 1 {
		t.RefillTokens = 1
	}
	if t.RefillInterval <= 0 {
		t.RefillInterval = time.Second
	}
	return t
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
