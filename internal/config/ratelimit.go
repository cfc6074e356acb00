package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig configures a Redis token bucket.  Booking endpoints get
// a bucket of their own so a burst of clicks cannot exhaust the general
// allowance of a user.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads the RATE_LIMIT_* variables.
func LoadRateLimitConfig() RateLimitConfig {
	return loadBucket("RATE_LIMIT", RateLimitConfig{
		Enabled:        true,
		Capacity:       60,
		RefillTokens:   1,
		RefillInterval: time.Second,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_user_route",
		Prefix:         "rl",
	})
}

// LoadBookingRateLimitConfig reads the BOOKING_RATE_LIMIT_* variables.
func LoadBookingRateLimitConfig() RateLimitConfig {
	return loadBucket("BOOKING_RATE_LIMIT", RateLimitConfig{
		Enabled:        true,
		Capacity:       10,
		RefillTokens:   1,
		RefillInterval: 3 * time.Second,
		TTL:            10 * time.Minute,
		KeyStrategy:    "user_route",
		Prefix:         "rl:booking",
	})
}

func loadBucket(p string, def RateLimitConfig) RateLimitConfig {
	c := RateLimitConfig{
		Enabled:        envBool(p+"_ENABLED", def.Enabled),
		Capacity:       envInt(p+"_CAPACITY", def.Capacity),
		RefillTokens:   envInt(p+"_REFILL_TOKENS", def.RefillTokens),
		RefillInterval: envDur(p+"_REFILL_INTERVAL", def.RefillInterval),
		TTL:            envDur(p+"_TTL", def.TTL),
		KeyStrategy:    envStr(p+"_KEY_STRATEGY", def.KeyStrategy),
		Prefix:         envStr(p+"_PREFIX", def.Prefix),
		Debug:          envBool(p+"_DEBUG", false),
	}
	if b := envInt(p+"_BURST", -1); b > 0 {
		c.Capacity = b
	}
	if every := envDur(p+"_REFILL_EVERY", 0); every > 0 {
		c.RefillTokens = 1
		c.RefillInterval = every
	}
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
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
