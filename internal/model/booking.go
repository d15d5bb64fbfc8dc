package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Booking records one confirmed purchase.  Bookings are immutable: once
// appended to the ledger they are never updated or deleted.
//
// Fields:
//  ID              – primary key identifier, assigned on creation.
//  ShowID          – show the seats were reserved on.
//  UserEmail       – purchaser identity.
//  TicketType      – normalized tier ("regular" or "pro").
//  TicketQuantity  – seats reserved.
//  PopcornQuantity – popcorn portions.
//  TotalPrice      – server computed total, two fractional digits.
//  CreatedAt       – creation timestamp (UTC).
type Booking struct {
    ID              uint64          // bookings.id
    ShowID          uint64          // bookings.show_id
    UserEmail       string          // bookings.user_email
    TicketType      string          // bookings.ticket_type
    TicketQuantity  int             // bookings.ticket_quantity
    PopcornQuantity int             // bookings.popcorn_quantity
    TotalPrice      decimal.Decimal // bookings.total_price
    CreatedAt       time.Time       // bookings.created_at
}
