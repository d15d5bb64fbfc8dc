package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/cinema-ticket-booking/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/cinema-ticket-booking/internal/middleware" // import middleware for JWT authentication
)

// RegisterRoutes registers routes that do not require authentication and
// are never cached.  db may be nil when no database backs the service.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers all authentication‑related routes and applies the
// necessary middleware.  Register, login and refresh live under /v1/auth;
// logout and /v1/me require a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh", a.Refresh)

	jwt := middleware.JWTAuth(jwtSecret)
	g.POST("/logout", a.Logout, jwt)
	e.GET("/v1/me", a.Me, jwt)
}

// RegisterPublic registers unauthenticated read endpoints.  cache wraps
// the responses that do not depend on live seat counters.
func RegisterPublic(e *echo.Echo, h *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/movies", h.Movies, cache)
	e.GET("/v1/pricing", h.Pricing, cache)
	// availability is never cached; it reflects the live counter
	e.GET("/v1/shows/availability", h.Availability)
	e.GET("/v1/shows", h.Shows)
}
