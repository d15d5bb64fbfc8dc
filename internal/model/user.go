package model

import "time"

// User is a row of the `users` table.  Email is lower-cased on write and is
// the purchaser identity stored on bookings.  PasswordHash holds whatever
// the configured authentication strategy produced: a bcrypt hash, or the
// raw value under the plain strategy.
type User struct {
    ID           uint64    // users.id
    Name         string    // users.name
    Email        string    // users.email (unique)
    PasswordHash string    // users.password_hash
    IsActive     bool      // users.is_active; inactive users cannot log in
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}
