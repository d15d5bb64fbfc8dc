package middleware

import (
    "context"
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-ticket-booking/internal/config"
)

// Refill and consume run in one script so concurrent requests on the same
// key cannot both take the last token.
//
// KEYS[1] bucket key
// ARGV    now_ms, capacity, refill_tokens, interval_ms, ttl_seconds
// returns {allowed, tokens_left, retry_after_ms}
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
    tokens = capacity
    last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
    local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
    if intervals > 0 then
        tokens = math.min(capacity, tokens + intervals * refill_tokens)
        last_refill = last_refill + intervals * interval_ms
    end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
else
    retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return {allowed, tokens, retry_after_ms}
`)

// decision is one bucket's answer for one request.
type decision struct {
    Allowed    bool
    Remaining  int64
    RetryAfter time.Duration
}

type tokenBucket struct {
    cfg config.RateLimitConfig
    rdb *redis.Client
    log *zap.Logger
}

// take consumes one token from key, a bucket holding at most capacity.
func (b *tokenBucket) take(ctx context.Context, key string, capacity int) (decision, error) {
    vals, err := tokenBucketScript.Run(ctx, b.rdb, []string{key},
        time.Now().UnixMilli(),
        capacity,
        b.cfg.RefillTokens,
        b.cfg.RefillInterval.Milliseconds(),
        int64(b.cfg.TTL/time.Second),
    ).Result()
    if err != nil {
        return decision{}, err
    }
    return parseDecision(vals)
}

func parseDecision(vals any) (decision, error) {
    arr, ok := vals.([]any)
    if !ok || len(arr) != 3 {
        return decision{}, fmt.Errorf("unexpected script result %v", vals)
    }
    return decision{
        Allowed:    asInt64(arr[0]) == 1,
        Remaining:  asInt64(arr[1]),
        RetryAfter: time.Duration(asInt64(arr[2])) * time.Millisecond,
    }, nil
}

// NewTokenBucket limits requests with a token bucket kept in Redis, one
// bucket per key (see buildRateKey).  Redis errors fail open.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    return newLimiter(cfg, rdb, log, cfg.Capacity, func(c echo.Context) string { return buildRateKey(cfg, c) })
}

// NewBookingBucket limits booking writes per user with a bucket of
// BookingCapacity.  Mount it after JWTAuth so the user id is known.
func NewBookingBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if cfg.BookingCapacity <= 0 {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return newLimiter(cfg, rdb, log, cfg.BookingCapacity, func(c echo.Context) string { return bookingRateKey(cfg, c) })
}

func newLimiter(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger, capacity int, keyOf func(echo.Context) string) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    if log == nil {
        log = zap.NewNop()
    }
    b := &tokenBucket{cfg: cfg, rdb: rdb, log: log}

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := keyOf(c)
            d, err := b.take(c.Request().Context(), key, capacity)
            if err != nil {
                log.Warn("ratelimit: redis error, allowing request", zap.String("key", key), zap.Error(err))
                return next(c)
            }
            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
            if !d.Allowed {
                return b.reject(c, key, d)
            }
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            return next(c)
        }
    }
}

func (b *tokenBucket) reject(c echo.Context, key string, d decision) error {
    secs := max(int(math.Ceil(d.RetryAfter.Seconds())), 0)
    c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
    if b.cfg.Debug {
        b.log.Info("ratelimit: blocked", zap.String("key", key), zap.Duration("retry_after", d.RetryAfter))
    }
    return c.JSON(http.StatusTooManyRequests, echo.Map{
        "error":       "too_many_requests",
        "kind":        "rate_limited",
        "retry_after": secs,
    })
}

func asInt64(v any) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int:
        return int64(t)
    case float64:
        return int64(t)
    case string:
        n, _ := strconv.ParseInt(t, 10, 64)
        return n
    }
    return 0
}

func routeOf(c echo.Context) string { return c.Request().Method + " " + c.Path() }

// bookingRateKey keys the booking bucket by user, falling back to the
// client address when no user is set.
func bookingRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    if uid := userKey(c); uid != "anon" {
        return strings.Join([]string{cfg.Prefix, "book", "user", uid}, ":")
    }
    return strings.Join([]string{cfg.Prefix, "book", "ip", clientIP(c)}, ":")
}

func clientIP(c echo.Context) string {
    if ip := c.RealIP(); ip != "" {
        return ip
    }
    return "unknown"
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    parts := []string{cfg.Prefix}
    ip, uid, route := clientIP(c), userKey(c), routeOf(c)

    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "user":
        parts = append(parts, "user", uid)
    case "route":
        parts = append(parts, "route", route)
    case "ip_user":
        parts = append(parts, "ip", ip, "user", uid)
    case "ip_route":
        parts = append(parts, "ip", ip, "route", route)
    case "user_route":
        parts = append(parts, "user", uid, "route", route)
    default:
        parts = append(parts, "ip", ip, "user", uid, "route", route)
    }
    return strings.Join(parts, ":")
}
