package middleware

// identity.go derives the per-user component of rate limit and cache keys.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// userKey returns the authenticated user id as a string, or "anon" when
// the request carries no identity.
func userKey(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
