package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-ticket-booking/internal/booking"
)

// CatalogHandler serves the public read endpoints: movies, price quotes
// and seat availability.
type CatalogHandler struct {
    Svc BookingService
}

func NewCatalogHandler(svc BookingService) *CatalogHandler { return &CatalogHandler{Svc: svc} }

// Movies lists the catalog.
func (h *CatalogHandler) Movies(c echo.Context) error {
    list, err := h.Svc.Movies(c.Request().Context())
    if err != nil {
        return writeBookingError(c, err)
    }
    out := make([]movieDTO, 0, len(list))
    for _, m := range list {
        out = append(out, movieDTO{ID: m.ID, Name: m.Name, Description: m.Description, ImageURL: m.ImageURL})
    }
    return c.JSON(http.StatusOK, echo.Map{"movies": out})
}

// Pricing quotes an order:
// GET /v1/pricing?ticket_type=pro&ticket_quantity=6&popcorn_quantity=2
func (h *CatalogHandler) Pricing(c echo.Context) error {
    tier := c.QueryParam("ticket_type")
    if tier == "" {
        tier = "regular"
    }
    tickets, popcorn := 1, 0
    if err := echo.QueryParamsBinder(c).
        Int("ticket_quantity", &tickets).
        Int("popcorn_quantity", &popcorn).
        BindError(); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantities must be integers"})
    }
    bd, err := h.Svc.Quote(tier, tickets, popcorn)
    if err != nil {
        return writeBookingError(c, err)
    }
    return c.JSON(http.StatusOK, toBreakdownDTO(bd))
}

// Availability reports the seat counter of a show, creating the show on
// first lookup:
// GET /v1/shows/availability?movie_name=&location=&show_time=&hall_type=
func (h *CatalogHandler) Availability(c echo.Context) error {
    a, err := h.Svc.Availability(c.Request().Context(), booking.AvailabilityQuery{
        MovieName: c.QueryParam("movie_name"),
        Location:  c.QueryParam("location"),
        ShowTime:  c.QueryParam("show_time"),
        HallType:  c.QueryParam("hall_type"),
    })
    if err != nil {
        return writeBookingError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "show_id":         a.ShowID,
        "movie_id":        a.MovieID,
        "movie_name":      a.MovieName,
        "location":        a.Location,
        "show_time":       a.ShowTime,
        "hall_type":       a.HallType,
        "total_seats":     a.TotalSeats,
        "available_seats": a.AvailableSeats,
    })
}

// Shows lists the known shows of a movie with their live counters:
// GET /v1/shows?movie_name=
func (h *CatalogHandler) Shows(c echo.Context) error {
    list, err := h.Svc.Shows(c.Request().Context(), c.QueryParam("movie_name"))
    if err != nil {
        return writeBookingError(c, err)
    }
    out := make([]showDTO, 0, len(list))
    for _, s := range list {
        out = append(out, showDTO{
            ID:             s.ID,
            Location:       s.Location,
            ShowTime:       s.ShowTime,
            HallType:       s.HallType,
            TotalSeats:     s.TotalSeats,
            AvailableSeats: s.AvailableSeats,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"shows": out})
}
