package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// RateLimitConfig tunes one Redis token bucket.  The browse pages and the
// credential endpoints each get their own bucket.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string // ip, user, route, ip_user, ip_route, user_route or ip_user_route
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig reads the RATE_LIMIT_* variables used for the public
// catalog pages: a generous bucket per visitor and route.
func LoadRateLimitConfig() RateLimitConfig {
    return loadRateLimit("RATE_LIMIT_", RateLimitConfig{
        Enabled:        true,
        Capacity:       60,
        RefillTokens:   1,
        RefillInterval: time.Second,
        TTL:            10 * time.Minute,
        KeyStrategy:    "ip_user_route",
        Prefix:         "wild:rl",
    })
}

// LoadAuthRateLimitConfig reads AUTH_RATE_LIMIT_* for /auth/register and
// /auth/login.  The bucket is keyed by client IP only, so rotating emails
// does not buy an attacker extra guesses.
func LoadAuthRateLimitConfig() RateLimitConfig {
    return loadRateLimit("AUTH_RATE_LIMIT_", RateLimitConfig{
        Enabled:        true,
        Capacity:       5,
        RefillTokens:   1,
        RefillInterval: 12 * time.Second,
        TTL:            10 * time.Minute,
        KeyStrategy:    "ip",
        Prefix:         "wild:rl:auth",
    })
}

func loadRateLimit(prefix string, def RateLimitConfig) RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        envBool(prefix+"ENABLED", def.Enabled),
        Capacity:       envInt(prefix+"CAPACITY", def.Capacity),
        RefillTokens:   envInt(prefix+"REFILL_TOKENS", def.RefillTokens),
        RefillInterval: envDur(prefix+"REFILL_INTERVAL", def.RefillInterval),
        TTL:            envDur(prefix+"TTL", def.TTL),
        KeyStrategy:    envStr(prefix+"KEY_STRATEGY", def.KeyStrategy),
        Prefix:         envStr(prefix+"PREFIX", def.Prefix),
        Debug:          envBool(prefix+"DEBUG", false),
    }
    if cfg.Capacity < 1 {
        cfg.Capacity = 1
    }
    if cfg.RefillTokens < 1 {
        cfg.RefillTokens = 1
    }
    if cfg.RefillInterval <= 0 {
        cfg.RefillInterval = time.Second
    }
    // keys must outlive a full refill or idle buckets reset too early
    if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
        cfg.TTL = minTTL
    }
    return cfg
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
    if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
        return dur
    }
    return d
}
