package middleware

import (
    "bytes"
    "context"
    "crypto/sha256"
    "encoding/hex"
    "encoding/json"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-ticket-booking/internal/config"
)

// cacheEntry is what the cache stores in Redis: the response exactly as the
// handler wrote it.
type cacheEntry struct {
    Status int         `json:"s"`
    Header http.Header `json:"h"`
    Body   []byte      `json:"b"`
}

// headers never replayed from or saved to the cache
var volatileHeaders = []string{"X-Cache", echo.HeaderContentLength, RequestIDHeader}

func volatile(k string) bool {
    for _, v := range volatileHeaders {
        if strings.EqualFold(k, v) {
            return true
        }
    }
    return false
}

// captureWriter forwards the response and keeps a copy of up to limit bytes.
type captureWriter struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (cw *captureWriter) WriteHeader(code int) {
    cw.status = code
    cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
    if !cw.overflow {
        if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
            cw.overflow = true
            cw.buf.Reset()
        } else {
            cw.buf.Write(b)
        }
    }
    return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom builds a key from the parts KeyStrategy selects.  Query
// parameters are re-encoded in sorted order so ?a=1&b=2 and ?b=2&a=1 share
// an entry.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    route := c.Path()
    query := r.URL.Query().Encode()

    var parts []string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        parts = []string{"route", route}
    case "method_route":
        parts = []string{"method", r.Method, "route", route}
    case "method_route_query":
        parts = []string{"method", r.Method, "route", route, "q", query}
    case "route_query_user":
        parts = []string{"route", route, "q", query, "user", userKey(c)}
    default: // "route_query"
        parts = []string{"route", route, "q", query}
    }
    sum := sha256.Sum256([]byte(strings.Join(parts, ":")))
    return cfg.Prefix + ":" + hex.EncodeToString(sum[:16])
}

func encodeEntry(e cacheEntry) ([]byte, error) { return json.Marshal(e) }

func decodeEntry(bs []byte) (cacheEntry, error) {
    var e cacheEntry
    if err := json.Unmarshal(bs, &e); err != nil {
        return cacheEntry{}, err
    }
    if e.Status < 100 || e.Status > 599 {
        return cacheEntry{}, errors.New("cache: bad status in entry")
    }
    return e, nil
}

type responseCache struct {
    cfg config.CacheConfig
    rdb *redis.Client
    log *zap.Logger
}

// replay writes a cached entry; false means the caller must run the handler.
func (rc *responseCache) replay(c echo.Context, key string) bool {
    bs, err := rc.rdb.Get(c.Request().Context(), key).Bytes()
    if err != nil {
        if !errors.Is(err, redis.Nil) {
            rc.log.Warn("cache: lookup failed", zap.String("key", key), zap.Error(err))
        }
        return false
    }
    e, err := decodeEntry(bs)
    if err != nil {
        rc.log.Warn("cache: dropping corrupt entry", zap.String("key", key), zap.Error(err))
        return false
    }
    h := c.Response().Header()
    for k, vals := range e.Header {
        if volatile(k) {
            continue
        }
        for _, v := range vals {
            h.Add(k, v)
        }
    }
    h.Set("X-Cache", "HIT")
    c.Response().WriteHeader(e.Status)
    if len(e.Body) > 0 {
        _, _ = c.Response().Write(e.Body)
    }
    return true
}

func (rc *responseCache) save(ctx context.Context, key string, c echo.Context, cw *captureWriter) {
    hdr := make(http.Header, len(c.Response().Header()))
    for k, vals := range c.Response().Header() {
        if !volatile(k) {
            hdr[k] = append([]string(nil), vals...)
        }
    }
    payload, err := encodeEntry(cacheEntry{Status: cw.status, Header: hdr, Body: cw.buf.Bytes()})
    if err == nil {
        // the client may be gone; the entry is still worth keeping
        err = rc.rdb.SetEx(context.WithoutCancel(ctx), key, payload, rc.cfg.TTL).Err()
    }
    if err != nil {
        rc.log.Warn("cache: store failed", zap.String("key", key), zap.Error(err))
    }
}

// NewRedisCache caches successful read responses in Redis.  Only 200
// responses no larger than MaxBodyBytes are stored, and a request sent with
// "Cache-Control: no-cache" skips the lookup but refreshes the entry.
// Mount it on routes whose answer does not depend on the caller, or use
// the route_query_user key strategy.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    if log == nil {
        log = zap.NewNop()
    }
    if cfg.TTL <= 0 {
        cfg.TTL = 5 * time.Minute
    }
    rc := &responseCache{cfg: cfg, rdb: rdb, log: log}

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            if !cfg.Methods[strings.ToUpper(req.Method)] {
                return next(c)
            }
            key := cacheKeyFrom(cfg, c)

            if !strings.Contains(strings.ToLower(req.Header.Get("Cache-Control")), "no-cache") && rc.replay(c, key) {
                return nil
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }
            // a truncated body must never be replayed
            if cw.status == http.StatusOK && !cw.overflow {
                rc.save(req.Context(), key, c, cw)
            }
            return nil
        }
    }
}
