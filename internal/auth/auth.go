// Package auth holds the pluggable credential check used at login.  The
// strategy is chosen once at startup and never changed while requests are
// in flight.
package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Strategy names accepted by New.
const (
	StrategyPlain  = "plain"
	StrategyBcrypt = "bcrypt"
)

// Authenticator turns a password into a stored credential and checks a
// supplied password against it.
type Authenticator interface {
	Name() string
	Hash(plain string) (string, error)
	Authenticate(stored, supplied string) bool
}

// New returns the authenticator for strategy.  An empty strategy selects
// bcrypt.  cost is only used by bcrypt; values outside bcrypt's range fall
// back to bcrypt.DefaultCost.
func New(strategy string, cost int) (Authenticator, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", StrategyBcrypt:
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			cost = bcrypt.DefaultCost
		}
		return Bcrypt{Cost: cost}, nil
	case StrategyPlain:
		return Plain{}, nil
	}
	return nil, fmt.Errorf("unknown auth strategy %q", strategy)
}

// Plain stores the password as is and compares in constant time.  Meant
// for local development only.
type Plain struct{}

func (Plain) Name() string { return StrategyPlain }

func (Plain) Hash(plain string) (string, error) { return plain, nil }

func (Plain) Authenticate(stored, supplied string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

// Bcrypt stores a bcrypt hash of the password.
type Bcrypt struct {
	Cost int
}

func (Bcrypt) Name() string { return StrategyBcrypt }

// Hash returns bcrypt hash using the configured cost.
func (b Bcrypt) Hash(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), b.Cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Authenticate safely compares bcrypt hash and plain password.
func (Bcrypt) Authenticate(stored, supplied string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
}
