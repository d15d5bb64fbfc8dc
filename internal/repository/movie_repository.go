// Package repository contains data access logic separated from HTTP handlers.
// This file defines the movie catalog queries.  Movies are looked up by
// name without regard to case; the booking flow treats an unknown movie as
// a rejected request.
package repository

import (
	"context"      // context allows passing deadlines and cancellation signals to DB operations
	"database/sql" // sql provides generic database operations and drivers
	"errors"       // errors is used to match sentinel and driver errors
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
)

// MovieRepo encapsulates all database queries related to movies.  It
// depends on a sql.DB connection which should be configured elsewhere.
type MovieRepo struct {
	db *sql.DB // db is the underlying database connection pool
}

// NewMovieRepo constructs a MovieRepo with the provided DB handle.
func NewMovieRepo(db *sql.DB) *MovieRepo {
	return &MovieRepo{db: db}
}

const movieColumns = `id, name, description, image_url, created_at`

func scanMovie(row interface{ Scan(...any) error }, m *model.Movie) error {
	var desc, img sql.NullString
	if err := row.Scan(&m.ID, &m.Name, &desc, &img, &m.CreatedAt); err != nil {
		return err
	}
	m.Description = desc.String
	m.ImageURL = img.String
	return nil
}

// GetByName fetches a movie by name, ignoring case and surrounding
// whitespace.  It returns ErrMovieNotFound if no row is found.
func (r *MovieRepo) GetByName(ctx context.Context, name string) (*model.Movie, error) {
	q := `SELECT ` + movieColumns + ` FROM movies WHERE LOWER(name) = LOWER(?) LIMIT 1`
	var m model.Movie
	if err := scanMovie(r.db.QueryRowContext(ctx, q, strings.TrimSpace(name)), &m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetByID fetches a movie by its ID.  It returns ErrMovieNotFound if no row
// is found.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	q := `SELECT ` + movieColumns + ` FROM movies WHERE id = ?`
	var m model.Movie
	if err := scanMovie(r.db.QueryRowContext(ctx, q, id), &m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetOrCreate returns the movie with the given name, inserting it first
// when the catalog does not know it.  A concurrent insert of the same name
// hits the unique key and is resolved by reading the winner's row.
func (r *MovieRepo) GetOrCreate(ctx context.Context, name, description, imageURL string) (*model.Movie, error) {
	name = strings.TrimSpace(name)
	if m, err := r.GetByName(ctx, name); err == nil {
		return m, nil
	} else if !errors.Is(err, ErrMovieNotFound) {
		return nil, err
	}
	const ins = `INSERT INTO movies (name, description, image_url) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, ins, name, description, imageURL)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return r.GetByName(ctx, name)
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// List returns the whole catalog ordered by name.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	q := `SELECT ` + movieColumns + ` FROM movies ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movies := []model.Movie{}
	for rows.Next() {
		var m model.Movie
		if err := scanMovie(rows, &m); err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}
