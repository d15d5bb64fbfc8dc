package model

import "time"

// DefaultTotalSeats is the capacity given to every show when it is first
// created.  Capacity never changes afterwards.
const DefaultTotalSeats = 100

// DefaultHallType is used when a request does not name a hall.
const DefaultHallType = "Standard Hall"

// Show represents one scheduled screening of a movie.  A show is
// identified by the (movie, location, show time) triple and is created the
// first time that triple is requested.  Shows are never deleted.
//
// Fields:
//  ID             – primary key identifier.
//  MovieID        – movie being screened.
//  Location       – cinema location as entered by the customer.
//  ShowTime       – screening time as an opaque string.
//  HallType       – hall description (e.g. "Standard Hall", "IMAX").
//  TotalSeats     – fixed capacity.
//  AvailableSeats – seats not yet sold; 0 <= AvailableSeats <= TotalSeats.
//  CreatedAt      – creation timestamp.
type Show struct {
    ID             uint64    // shows.id
    MovieID        uint64    // shows.movie_id
    Location       string    // shows.location
    ShowTime       string    // shows.show_time
    HallType       string    // shows.hall_type
    TotalSeats     int       // shows.total_seats
    AvailableSeats int       // shows.available_seats
    CreatedAt      time.Time // shows.created_at
}

// SoldSeats returns how many seats have been reserved for the show.
func (s Show) SoldSeats() int { return s.TotalSeats - s.AvailableSeats }
