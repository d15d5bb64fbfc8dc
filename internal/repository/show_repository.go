// Package repository contains data access logic for the booking service.
// This file owns the per-show seat counter.  A show's available_seats
// column is only ever changed by ReserveSeats and ReleaseSeats, each of
// which is a single conditional UPDATE so that concurrent requests can never
// oversell a show.
package repository

import (
	"context"      // context for controlling query lifetime
	"database/sql" // sql provides DB abstraction
	"errors"       // errors for sentinel comparisons
	"fmt"          // fmt for wrapping errors

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

// ShowRepo manages persistence for shows and their seat counters.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo {
	return &ShowRepo{db: db}
}

const showColumns = `id, movie_id, location, show_time, hall_type, total_seats, available_seats, created_at`

func scanShow(row interface{ Scan(...any) error }, s *model.Show) error {
	return row.Scan(&s.ID, &s.MovieID, &s.Location, &s.ShowTime, &s.HallType, &s.TotalSeats, &s.AvailableSeats, &s.CreatedAt)
}

// ResolveOrCreate returns the id of the show for (movieID, location,
// showTime), creating it with model.DefaultTotalSeats seats when it does
// not exist yet.  The shows table carries a unique key on the triple, and
// the insert falls back to the existing row on a duplicate, so two
// concurrent first requests end up with the same show.  hallType is only
// recorded on creation.
func (r *ShowRepo) ResolveOrCreate(ctx context.Context, movieID uint64, location, showTime, hallType string) (uint64, error) {
	const sel = `SELECT id FROM shows WHERE movie_id = ? AND location = ? AND show_time = ?`
	var id uint64
	err := r.db.QueryRowContext(ctx, sel, movieID, location, showTime).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup show: %w", err)
	}

	// LAST_INSERT_ID(id) makes LastInsertId report the existing row when
	// another request created the show between the SELECT and this INSERT.
	const ins = `INSERT INTO shows (movie_id, location, show_time, hall_type, total_seats, available_seats)
                 VALUES (?, ?, ?, ?, ?, ?)
                 ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`
	res, err := r.db.ExecContext(ctx, ins, movieID, location, showTime, hallType, model.DefaultTotalSeats, model.DefaultTotalSeats)
	if err != nil {
		return 0, fmt.Errorf("create show: %w", err)
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create show: %w", err)
	}
	return uint64(newID), nil
}

// GetByID retrieves a show by its ID.  It returns ErrShowNotFound if
// there is no matching row.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (*model.Show, error) {
	q := `SELECT ` + showColumns + ` FROM shows WHERE id = ?`
	var s model.Show
	if err := scanShow(r.db.QueryRowContext(ctx, q, id), &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByMovie returns every show of a movie ordered by show time.  When no
// shows exist it returns an empty slice and nil error.
func (r *ShowRepo) ListByMovie(ctx context.Context, movieID uint64) ([]model.Show, error) {
	q := `SELECT ` + showColumns + ` FROM shows WHERE movie_id = ? ORDER BY show_time ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []model.Show{}
	for rows.Next() {
		var s model.Show
		if err := scanShow(rows, &s); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// AvailableSeats returns the current seat counter of a show.  An unknown
// show reports 0 seats rather than an error, so callers cannot tell a sold
// out show from a missing one.
func (r *ShowRepo) AvailableSeats(ctx context.Context, showID uint64) (int, error) {
	const q = `SELECT available_seats FROM shows WHERE id = ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, showID).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// ReserveSeats takes quantity seats from the show in one conditional
// UPDATE.  The row lock taken by the UPDATE serializes concurrent
// reservations on the same show, and the WHERE clause re-checks the
// counter under that lock, so the counter can never go negative.  It
// returns false, with nothing changed, when fewer than quantity seats are
// left or the show does not exist.
func (r *ShowRepo) ReserveSeats(ctx context.Context, showID uint64, quantity int) (bool, error) {
	if quantity < 1 {
		return false, ErrInvalidQuantity
	}
	const q = `UPDATE shows SET available_seats = available_seats - ?
               WHERE id = ? AND available_seats >= ?`
	res, err := r.db.ExecContext(ctx, q, quantity, showID, quantity)
	if err != nil {
		return false, fmt.Errorf("reserve seats: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve seats: %w", err)
	}
	return n == 1, nil
}

// ReleaseSeats gives quantity seats back to the show.  It is the
// compensating action for a reservation whose booking record could not be
// written.  The update refuses to push the counter above the show's
// capacity; in that case, or when the show is missing, ErrConflict or
// ErrShowNotFound is returned.
func (r *ShowRepo) ReleaseSeats(ctx context.Context, showID uint64, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	const q = `UPDATE shows SET available_seats = available_seats + ?
               WHERE id = ? AND available_seats + ? <= total_seats`
	res, err := r.db.ExecContext(ctx, q, quantity, showID, quantity)
	if err != nil {
		return fmt.Errorf("release seats: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release seats: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, showID); err != nil {
		return err
	}
	return ErrConflict
}
