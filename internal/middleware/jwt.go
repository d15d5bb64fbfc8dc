package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/cinema-ticket-booking/internal/utils"
)

// Context keys set by JWTAuth.
const (
    CtxUserID    = "user_id"
    CtxUserEmail = "user_email"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the user id and email into the request context.  The provided
// secret must match the one used when issuing tokens.  Handlers read the
// identity with UserID and UserEmail.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            uid, _ := claims.UserID() // validated by ParseAccessToken

            c.Set(CtxUserID, uid)
            c.Set(CtxUserEmail, claims.Email)
            return next(c)
        }
    }
}

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (uint64, bool) {
    v, ok := c.Get(CtxUserID).(uint64)
    return v, ok && v != 0
}

// UserEmail returns the authenticated user's email, the identity recorded
// on bookings.
func UserEmail(c echo.Context) (string, bool) {
    v, ok := c.Get(CtxUserEmail).(string)
    return v, ok && v != ""
}
