package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    "github.com/iliyamo/cinema-ticket-booking/internal/model"
)

// BookingRepo is the append-only ledger of confirmed bookings.  Rows are
// inserted once and never updated or deleted.  Ids come from the
// auto-increment key, so they are unique and increase with insertion
// order.  All timestamps are stored in UTC.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, show_id, user_email, ticket_type, ticket_quantity, popcorn_quantity, total_price, created_at`

func scanBooking(row interface{ Scan(...any) error }, b *model.Booking) error {
    return row.Scan(&b.ID, &b.ShowID, &b.UserEmail, &b.TicketType, &b.TicketQuantity, &b.PopcornQuantity, &b.TotalPrice, &b.CreatedAt)
}

// Append stores a new booking and returns its id.  The generated id and
// the creation time are also written back to b.  Any error means the row
// was not stored.
func (r *BookingRepo) Append(ctx context.Context, b *model.Booking) (uint64, error) {
    createdAt := time.Now().UTC().Truncate(time.Second)
    const q = `INSERT INTO bookings (show_id, user_email, ticket_type, ticket_quantity, popcorn_quantity, total_price, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q,
        b.ShowID, b.UserEmail, b.TicketType, b.TicketQuantity, b.PopcornQuantity,
        b.TotalPrice.StringFixed(2), // DECIMAL(10,2)
        createdAt,
    )
    if err != nil {
        return 0, fmt.Errorf("insert booking: %w", err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, fmt.Errorf("insert booking: %w", err)
    }
    b.ID = uint64(id)
    b.CreatedAt = createdAt
    return b.ID, nil
}

// ListByUser returns every booking made by the given email, newest first.
// Ties on created_at are broken by id so the order is stable.
func (r *BookingRepo) ListByUser(ctx context.Context, email string) ([]model.Booking, error) {
    q := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_email = ? ORDER BY created_at DESC, id DESC`
    rows, err := r.db.QueryContext(ctx, q, email)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Booking{}
    for rows.Next() {
        var b model.Booking
        if err := scanBooking(rows, &b); err != nil {
            return nil, err
        }
        out = append(out, b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// GetByID loads one booking.  It returns ErrBookingNotFound when the id is
// unknown.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
    var b model.Booking
    if err := scanBooking(r.db.QueryRowContext(ctx, q, id), &b); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBookingNotFound
        }
        return nil, err
    }
    return &b, nil
}
