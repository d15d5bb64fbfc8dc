package handler

import (
    "time"

    "github.com/iliyamo/cinema-ticket-booking/internal/model"
    "github.com/iliyamo/cinema-ticket-booking/internal/pricing"
)

// Money is rendered as a string with two fractional digits so JSON
// clients never see binary floating point.

type bookingDTO struct {
    ID              uint64    `json:"id"`
    ShowID          uint64    `json:"show_id"`
    UserEmail       string    `json:"user_email"`
    TicketType      string    `json:"ticket_type"`
    TicketQuantity  int       `json:"ticket_quantity"`
    PopcornQuantity int       `json:"popcorn_quantity"`
    TotalPrice      string    `json:"total_price"`
    CreatedAt       time.Time `json:"created_at"`
}

func toBookingDTO(b model.Booking) bookingDTO {
    return bookingDTO{
        ID:              b.ID,
        ShowID:          b.ShowID,
        UserEmail:       b.UserEmail,
        TicketType:      b.TicketType,
        TicketQuantity:  b.TicketQuantity,
        PopcornQuantity: b.PopcornQuantity,
        TotalPrice:      b.TotalPrice.StringFixed(2),
        CreatedAt:       b.CreatedAt,
    }
}

type breakdownDTO struct {
    TicketType            string `json:"ticket_type"`
    TicketUnitPrice       string `json:"ticket_unit_price"`
    TicketQuantity        int    `json:"ticket_quantity"`
    TicketSubtotal        string `json:"ticket_subtotal"`
    PopcornUnitPrice      string `json:"popcorn_unit_price"`
    PopcornQuantity       int    `json:"popcorn_quantity"`
    PopcornSubtotal       string `json:"popcorn_subtotal"`
    Discount              string `json:"discount"`
    DiscountApplied       bool   `json:"discount_applied"`
    BulkDiscountThreshold int    `json:"bulk_discount_threshold"`
    Total                 string `json:"total"`
    Currency              string `json:"currency"`
}

func toBreakdownDTO(b pricing.Breakdown) breakdownDTO {
    return breakdownDTO{
        TicketType:            string(b.Tier),
        TicketUnitPrice:       b.TicketUnitPrice.StringFixed(2),
        TicketQuantity:        b.TicketQuantity,
        TicketSubtotal:        b.TicketSubtotal.StringFixed(2),
        PopcornUnitPrice:      b.PopcornUnitPrice.StringFixed(2),
        PopcornQuantity:       b.PopcornQuantity,
        PopcornSubtotal:       b.PopcornSubtotal.StringFixed(2),
        Discount:              b.Discount.StringFixed(2),
        DiscountApplied:       b.DiscountApplied(),
        BulkDiscountThreshold: pricing.BulkDiscountThreshold,
        Total:                 b.Total.StringFixed(2),
        Currency:              pricing.Currency,
    }
}

type movieDTO struct {
    ID          uint64 `json:"id"`
    Name        string `json:"name"`
    Description string `json:"description,omitempty"`
    ImageURL    string `json:"image_url,omitempty"`
}

type showDTO struct {
    ID             uint64 `json:"id"`
    Location       string `json:"location"`
    ShowTime       string `json:"show_time"`
    HallType       string `json:"hall_type"`
    TotalSeats     int    `json:"total_seats"`
    AvailableSeats int    `json:"available_seats"`
}
