package config

import "time"

// CacheConfig drives the Redis response cache mounted on the catalog
// routes.  Caching is off when Enabled is false or Redis is unreachable.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool // upper-cased HTTP methods eligible for caching
    TTL          time.Duration
    KeyStrategy  string // "route", "method_route", "route_query" (default), "method_route_query" or "route_query_user"
    Prefix       string
    MaxBodyBytes int // larger responses are served but not stored; 0 means no limit
}

func LoadCacheConfig() CacheConfig {
    c := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
        TTL:          envDur("CACHE_TTL", 30*time.Second),
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       envStr("CACHE_PREFIX", "cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    if c.TTL <= 0 {
        c.TTL = time.Second
    }
    return c
}
