// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

// Queue names.  Both queues are durable.
const (
    BookingConfirmedQueue = "booking.confirmed"
    BookingReconcileQueue = "booking.reconcile"
)

// BookingConfirmedEvent is published when a booking is committed.  It
// carries enough information for downstream consumers to log or notify
// without querying the primary database.
type BookingConfirmedEvent struct {
    BookingID       uint64 `json:"booking_id"`
    ShowID          uint64 `json:"show_id"`
    UserEmail       string `json:"user_email"`
    MovieName       string `json:"movie_name"`
    Location        string `json:"location"`
    ShowTime        string `json:"show_time"`
    HallType        string `json:"hall_type"`
    TicketType      string `json:"ticket_type"`
    TicketQuantity  int    `json:"ticket_quantity"`
    PopcornQuantity int    `json:"popcorn_quantity"`
    Total           string `json:"total"`    // decimal string, two fractional digits
    Currency        string `json:"currency"` // always SAR
    ConfirmedAt     string `json:"confirmed_at"`
}

// ReconcileEvent is published when seats were reserved but the booking
// record could not be written.  Compensated tells the operator whether the
// seats were already returned to the show.
type ReconcileEvent struct {
    ShowID      uint64 `json:"show_id"`
    UserEmail   string `json:"user_email"`
    Quantity    int    `json:"quantity"`
    Total       string `json:"total"`
    Compensated bool   `json:"compensated"`
    Reason      string `json:"reason"`
    OccurredAt  string `json:"occurred_at"`
}
