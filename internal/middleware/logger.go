package middleware

import (
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
)

const (
    // RequestIDHeader is the header key for request ID
    RequestIDHeader = "X-Request-ID"
    // RequestIDKey is the context key for request ID
    RequestIDKey = "request_id"
)

// RequestID reuses the caller's X-Request-ID or assigns a new uuid, and
// echoes it back on the response.
func RequestID() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id := c.Request().Header.Get(RequestIDHeader)
            if id == "" {
                id = uuid.NewString()
            }
            c.Set(RequestIDKey, id)
            c.Response().Header().Set(RequestIDHeader, id)
            return next(c)
        }
    }
}

// GetRequestID returns the request ID from context
func GetRequestID(c echo.Context) string {
    if id, ok := c.Get(RequestIDKey).(string); ok {
        return id
    }
    return ""
}

// RequestLogger logs one line per request, at a level chosen by status.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // let echo write the error response so the status is final
                c.Error(err)
            }

            req := c.Request()
            status := c.Response().Status
            fields := []zap.Field{
                zap.String("request_id", GetRequestID(c)),
                zap.Int("status", status),
                zap.String("method", req.Method),
                zap.String("path", req.URL.Path),
                zap.String("route", c.Path()),
                zap.String("ip", c.RealIP()),
                zap.Duration("latency", time.Since(start)),
                zap.Int64("body_size", c.Response().Size),
            }
            if err != nil {
                fields = append(fields, zap.Error(err))
            }

            switch {
            case status >= 500:
                log.Error("server error", fields...)
            case status >= 400:
                log.Warn("client error", fields...)
            default:
                log.Info("request completed", fields...)
            }
            return nil
        }
    }
}
