package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticket-booking/internal/handler"
	"github.com/iliyamo/cinema-ticket-booking/internal/middleware"
)

// RegisterBooking registers the booking endpoints under /v1/bookings.  All
// routes require a valid JWT; the token's email is the purchaser identity.
// limit runs after authentication on booking creation only.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/bookings", middleware.JWTAuth(jwtSecret))
	g.POST("", h.Create, limit)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
}
