// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking coordinator and the handlers to distinguish between different
// failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrShowNotFound indicates that a show was not located in the DB.
var ErrShowNotFound = errors.New("show not found")

// ErrMovieNotFound is returned when the catalog has no movie with the
// requested name or id.
var ErrMovieNotFound = errors.New("movie not found")

// ErrBookingNotFound is returned when no booking matches the requested id.
var ErrBookingNotFound = errors.New("booking not found")

// ErrUserNotFound is returned when no user matches the email or id.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrInvalidQuantity is returned by the seat counter operations when the
// quantity is below one.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// ErrConflict is returned when an update cannot be applied because of the
// current state, such as releasing more seats than a show has sold.
var ErrConflict = errors.New("conflict")

// ErrTokenInvalid is returned when a refresh token is unknown, expired or
// revoked.
var ErrTokenInvalid = errors.New("invalid refresh token")

// mysqlDuplicateEntry is the MySQL error number for unique key violations.
const mysqlDuplicateEntry = 1062
