package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-ticket-booking/internal/booking"
    "github.com/iliyamo/cinema-ticket-booking/internal/middleware"
    "github.com/iliyamo/cinema-ticket-booking/internal/model"
    "github.com/iliyamo/cinema-ticket-booking/internal/pricing"
)

// BookingService is the part of booking.Coordinator the HTTP layer uses.
type BookingService interface {
    Book(ctx context.Context, req booking.Request) (*booking.Result, error)
    BookingsForUser(ctx context.Context, email string) ([]model.Booking, error)
    BookingForUser(ctx context.Context, email string, id uint64) (*model.Booking, error)
    AvailableSeats(ctx context.Context, showID uint64) (int, error)
    Availability(ctx context.Context, q booking.AvailabilityQuery) (*booking.Availability, error)
    Shows(ctx context.Context, movieName string) ([]model.Show, error)
    Quote(tier string, ticketQty, popcornQty int) (pricing.Breakdown, error)
    Movies(ctx context.Context) ([]model.Movie, error)
}

// BookingHandler serves the authenticated booking endpoints.
type BookingHandler struct {
    Svc BookingService
    Log *zap.Logger
}

func NewBookingHandler(svc BookingService, log *zap.Logger) *BookingHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &BookingHandler{Svc: svc, Log: log}
}

// createBookingReq is the booking body.  A client supplied total is not
// read; the server prices every booking.
type createBookingReq struct {
    MovieName       string `json:"movie_name"`
    Location        string `json:"location"`
    ShowTime        string `json:"show_time"`
    HallType        string `json:"hall_type"`
    TicketType      string `json:"ticket_type"`
    TicketQuantity  int    `json:"ticket_quantity"`
    PopcornQuantity int    `json:"popcorn_quantity"`
}

// Create books seats for the authenticated user.
func (h *BookingHandler) Create(c echo.Context) error {
    email, ok := middleware.UserEmail(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req createBookingReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    res, err := h.Svc.Book(ctx, booking.Request{
        UserEmail:       email,
        MovieName:       req.MovieName,
        Location:        req.Location,
        ShowTime:        req.ShowTime,
        HallType:        req.HallType,
        TicketType:      req.TicketType,
        TicketQuantity:  req.TicketQuantity,
        PopcornQuantity: req.PopcornQuantity,
    })
    if err != nil {
        return h.bookingFailed(c, err)
    }

    return c.JSON(http.StatusCreated, echo.Map{
        "success":    true,
        "booking":    toBookingDTO(res.Booking),
        "movie_name": res.MovieName,
        "hall_type":  res.HallType,
        "breakdown":  toBreakdownDTO(res.Breakdown),
    })
}

func (h *BookingHandler) bookingFailed(c echo.Context, err error) error {
    var be *booking.Error
    ok := errors.As(err, &be)
    if ok && be.Kind == booking.KindInsufficientSeats {
        // informational only; the counter may move before the client reads it
        left, rerr := h.Svc.AvailableSeats(c.Request().Context(), be.ShowID)
        body := echo.Map{"error": be.Msg, "kind": be.Kind, "requested": be.Quantity}
        if rerr == nil {
            body["available_seats"] = left
        }
        return c.JSON(http.StatusConflict, body)
    }
    if ok && (be.Kind == booking.KindStorage || be.Kind == booking.KindPartialFailure) {
        h.Log.Error("booking failed", zap.String("kind", string(be.Kind)), zap.Error(err))
    }
    return writeBookingError(c, err)
}

// List returns the caller's bookings, newest first.
func (h *BookingHandler) List(c echo.Context) error {
    email, ok := middleware.UserEmail(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    list, err := h.Svc.BookingsForUser(c.Request().Context(), email)
    if err != nil {
        return writeBookingError(c, err)
    }
    out := make([]bookingDTO, 0, len(list))
    for _, b := range list {
        out = append(out, toBookingDTO(b))
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// Get returns one of the caller's bookings.
func (h *BookingHandler) Get(c echo.Context) error {
    email, ok := middleware.UserEmail(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    b, err := h.Svc.BookingForUser(c.Request().Context(), email, id)
    if err != nil {
        return writeBookingError(c, err)
    }
    return c.JSON(http.StatusOK, toBookingDTO(*b))
}
