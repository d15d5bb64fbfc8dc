package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

// Users is an in-memory user table keyed by normalized email.
type Users struct {
	mu      sync.RWMutex
	byID    map[uint64]model.User
	byEmail map[string]uint64
}

func NewUsers() *Users {
	return &Users{byID: make(map[uint64]model.User), byEmail: make(map[string]uint64)}
}

// Create inserts a user, rejecting a taken email with repository.ErrEmailExists.
func (u *Users) Create(_ context.Context, name, email, credential string) (uint64, error) {
	email = repository.NormalizeEmail(email)
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.byEmail[email]; ok {
		return 0, repository.ErrEmailExists
	}
	now := time.Now().UTC()
	id := uint64(len(u.byID) + 1)
	u.byID[id] = model.User{
		ID:           id,
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: credential,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.byEmail[email] = id
	return id, nil
}

func (u *Users) GetByEmail(ctx context.Context, email string) (model.User, error) {
	u.mu.RLock()
	id, ok := u.byEmail[repository.NormalizeEmail(email)]
	u.mu.RUnlock()
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u.GetByID(ctx, id)
}

func (u *Users) GetByID(_ context.Context, id uint64) (model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	usr, ok := u.byID[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return usr, nil
}

type tokenEntry struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

// Tokens keeps refresh token hashes in memory.
type Tokens struct {
	mu     sync.Mutex
	byHash map[string]*tokenEntry
	now    func() time.Time
}

func NewTokens() *Tokens {
	return &Tokens{byHash: make(map[string]*tokenEntry), now: time.Now}
}

func (t *Tokens) Store(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byHash[tokenHash] = &tokenEntry{userID: userID, exp: exp.UTC()}
	return nil
}

// Validate returns the owner of an active token or repository.ErrTokenInvalid.
func (t *Tokens) Validate(_ context.Context, tokenHash string) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byHash[tokenHash]
	if !ok || e.revoked || !t.now().UTC().Before(e.exp) {
		return 0, repository.ErrTokenInvalid
	}
	return e.userID, nil
}

// Rotate revokes oldHash and stores newHash; a token can be rotated once.
func (t *Tokens) Rotate(_ context.Context, userID uint64, oldHash, newHash string, exp time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byHash[oldHash]
	if !ok || e.revoked || e.userID != userID {
		return repository.ErrTokenInvalid
	}
	e.revoked = true
	t.byHash[newHash] = &tokenEntry{userID: userID, exp: exp.UTC()}
	return nil
}

func (t *Tokens) Revoke(_ context.Context, tokenHash string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.byHash[tokenHash]; ok {
		e.revoked = true
	}
	return nil
}

func (t *Tokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.byHash {
		if e.userID == userID {
			e.revoked = true
		}
	}
	return nil
}
