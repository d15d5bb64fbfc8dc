package config

import "time"

// RateLimitConfig drives the token bucket in the rate limit middleware.
// Capacity is the burst size; RefillTokens are added every RefillInterval.
// Booking writes draw from a second, per-user bucket of BookingCapacity so
// one account cannot sweep a show through many addresses.
type RateLimitConfig struct {
    Enabled         bool
    Capacity        int
    BookingCapacity int // 0 disables the booking bucket
    RefillTokens    int
    RefillInterval  time.Duration
    TTL             time.Duration
    KeyStrategy     string // "ip", "user", "route", "ip_user", "ip_route", "user_route" or "ip_user_route"
    Prefix          string
    Debug           bool
}

func LoadRateLimitConfig() RateLimitConfig {
    rl := RateLimitConfig{
        Enabled:         envBool("RATE_LIMIT_ENABLED", true),
        Capacity:        envInt("RATE_LIMIT_CAPACITY", 60),
        BookingCapacity: envInt("RATE_LIMIT_BOOKING_CAPACITY", 10),
        RefillTokens:    envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval:  envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:             envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:     envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        Prefix:          envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:           envBool("RATE_LIMIT_DEBUG", false),
    }
    // RATE_LIMIT_BURST and RATE_LIMIT_REFILL_EVERY are shorthands that win
    // over the long forms.
    if b := envInt("RATE_LIMIT_BURST", -1); b > 0 {
        rl.Capacity = b
    }
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        rl.RefillTokens = 1
        rl.RefillInterval = every
    }
    return rl.normalize()
}

// normalize clamps values the Lua script cannot work with.  The TTL must
// outlive several refill intervals or idle buckets would reset to full.
func (rl RateLimitConfig) normalize() RateLimitConfig {
    rl.Capacity = max(rl.Capacity, 1)
    rl.BookingCapacity = max(rl.BookingCapacity, 0)
    rl.RefillTokens = max(rl.RefillTokens, 1)
    if rl.RefillInterval <= 0 {
        rl.RefillInterval = time.Second
    }
    rl.TTL = max(rl.TTL, 5*rl.RefillInterval)
    return rl
}
