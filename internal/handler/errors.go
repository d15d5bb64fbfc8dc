package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-ticket-booking/internal/booking"
)

// statusFor maps a booking error kind to an HTTP status.
func statusFor(k booking.Kind) int {
    switch k {
    case booking.KindInvalidInput:
        return http.StatusBadRequest
    case booking.KindNotFound:
        return http.StatusNotFound
    case booking.KindInsufficientSeats:
        return http.StatusConflict
    case booking.KindStorage:
        return http.StatusServiceUnavailable
    }
    return http.StatusInternalServerError
}

// writeBookingError renders err as {"error", "kind"} plus the fields an
// operator needs for a partial failure.  Storage details stay in the logs.
func writeBookingError(c echo.Context, err error) error {
    var be *booking.Error
    if !errors.As(err, &be) {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
    body := echo.Map{"error": be.Msg, "kind": be.Kind}
    switch be.Kind {
    case booking.KindInvalidInput:
        if be.Err != nil {
            body["error"] = be.Err.Error()
        }
    case booking.KindStorage:
        body["error"] = "storage unavailable, try again"
    case booking.KindPartialFailure:
        body["show_id"] = be.ShowID
        body["quantity"] = be.Quantity
        body["compensated"] = be.Compensated
    }
    return c.JSON(statusFor(be.Kind), body)
}
