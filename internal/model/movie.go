package model

import "time"

// Movie is an entry in the movie catalog.  Names are unique ignoring case.
type Movie struct {
    ID          uint64    // movies.id
    Name        string    // movies.name
    Description string    // movies.description
    ImageURL    string    // movies.image_url
    CreatedAt   time.Time // movies.created_at
}
