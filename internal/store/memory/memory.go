// Package memory holds in-process implementations of the show inventory,
// the booking ledger and the movie catalog.  They are used when the service
// runs with STORE_DRIVER=memory and by tests that need an isolated store.
// Each instance is independent; nothing is shared between instances.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

type showKey struct {
	movieID  uint64
	location string
	showTime string
}

// showEntry guards a single show's counter with its own mutex so that
// reservations on different shows never contend.
type showEntry struct {
	mu   sync.Mutex
	show model.Show
}

// Inventory keeps show seat counters in memory.
type Inventory struct {
	mu     sync.RWMutex
	nextID uint64
	shows  map[uint64]*showEntry
	byKey  map[showKey]uint64
	now    func() time.Time
}

// NewInventory returns an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{
		shows: make(map[uint64]*showEntry),
		byKey: make(map[showKey]uint64),
		now:   time.Now,
	}
}

// ResolveOrCreate returns the show for the triple, creating it with the
// default capacity on first use.  Lookup and creation happen under the
// same lock, so the triple maps to exactly one show.
func (inv *Inventory) ResolveOrCreate(_ context.Context, movieID uint64, location, showTime, hallType string) (uint64, error) {
	k := showKey{movieID: movieID, location: location, showTime: showTime}

	inv.mu.RLock()
	id, ok := inv.byKey[k]
	inv.mu.RUnlock()
	if ok {
		return id, nil
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	if id, ok := inv.byKey[k]; ok {
		return id, nil
	}
	inv.nextID++
	id = inv.nextID
	inv.shows[id] = &showEntry{show: model.Show{
		ID:             id,
		MovieID:        movieID,
		Location:       location,
		ShowTime:       showTime,
		HallType:       hallType,
		TotalSeats:     model.DefaultTotalSeats,
		AvailableSeats: model.DefaultTotalSeats,
		CreatedAt:      inv.now().UTC(),
	}}
	inv.byKey[k] = id
	return id, nil
}

func (inv *Inventory) entry(showID uint64) *showEntry {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.shows[showID]
}

// GetByID returns a copy of the show.
func (inv *Inventory) GetByID(_ context.Context, showID uint64) (*model.Show, error) {
	e := inv.entry(showID)
	if e == nil {
		return nil, repository.ErrShowNotFound
	}
	e.mu.Lock()
	s := e.show
	e.mu.Unlock()
	return &s, nil
}

// ListByMovie returns the shows of a movie ordered by show time.
func (inv *Inventory) ListByMovie(ctx context.Context, movieID uint64) ([]model.Show, error) {
	inv.mu.RLock()
	ids := make([]uint64, 0)
	for k, id := range inv.byKey {
		if k.movieID == movieID {
			ids = append(ids, id)
		}
	}
	inv.mu.RUnlock()

	out := make([]model.Show, 0, len(ids))
	for _, id := range ids {
		s, err := inv.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ShowTime != out[j].ShowTime {
			return out[i].ShowTime < out[j].ShowTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// AvailableSeats returns the counter, or 0 for an unknown show.
func (inv *Inventory) AvailableSeats(_ context.Context, showID uint64) (int, error) {
	e := inv.entry(showID)
	if e == nil {
		return 0, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.show.AvailableSeats, nil
}

// ReserveSeats checks and decrements the counter while holding the show's
// lock.  It returns false without side effects when too few seats remain
// or the show is unknown.
func (inv *Inventory) ReserveSeats(_ context.Context, showID uint64, quantity int) (bool, error) {
	if quantity < 1 {
		return false, repository.ErrInvalidQuantity
	}
	e := inv.entry(showID)
	if e == nil {
		return false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.show.AvailableSeats < quantity {
		return false, nil
	}
	e.show.AvailableSeats -= quantity
	return true, nil
}

// ReleaseSeats returns seats to the show, never beyond its capacity.
func (inv *Inventory) ReleaseSeats(_ context.Context, showID uint64, quantity int) error {
	if quantity < 1 {
		return repository.ErrInvalidQuantity
	}
	e := inv.entry(showID)
	if e == nil {
		return repository.ErrShowNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.show.AvailableSeats+quantity > e.show.TotalSeats {
		return repository.ErrConflict
	}
	e.show.AvailableSeats += quantity
	return nil
}

// Ledger is an append-only list of bookings.
type Ledger struct {
	mu       sync.RWMutex
	bookings []model.Booking
	byID     map[uint64]int
	now      func() time.Time
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{byID: make(map[uint64]int), now: time.Now}
}

// Append stores a copy of b with the next id and the current time.
func (l *Ledger) Append(_ context.Context, b *model.Booking) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b.ID = uint64(len(l.bookings) + 1)
	b.CreatedAt = l.now().UTC()
	l.byID[b.ID] = len(l.bookings)
	l.bookings = append(l.bookings, *b)
	return b.ID, nil
}

// ListByUser returns the user's bookings, newest first.  Insertion order
// is creation order, so walking the slice backwards is enough.
func (l *Ledger) ListByUser(_ context.Context, email string) ([]model.Booking, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := []model.Booking{}
	for i := len(l.bookings) - 1; i >= 0; i-- {
		if l.bookings[i].UserEmail == email {
			out = append(out, l.bookings[i])
		}
	}
	return out, nil
}

// GetByID returns a copy of the booking or repository.ErrBookingNotFound.
func (l *Ledger) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.byID[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	b := l.bookings[i]
	return &b, nil
}

// Catalog is an in-memory movie catalog keyed by lower-cased name.
type Catalog struct {
	mu     sync.RWMutex
	nextID uint64
	movies map[string]model.Movie
}

// NewCatalog returns a catalog preloaded with the given movie names.
func NewCatalog(names ...string) *Catalog {
	c := &Catalog{movies: make(map[string]model.Movie)}
	for _, n := range names {
		_, _ = c.GetOrCreate(context.Background(), n, "", "")
	}
	return c
}

func catalogKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// GetByName looks a movie up ignoring case.
func (c *Catalog) GetByName(_ context.Context, name string) (*model.Movie, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.movies[catalogKey(name)]
	if !ok {
		return nil, repository.ErrMovieNotFound
	}
	return &m, nil
}

// GetOrCreate returns the named movie, adding it when missing.
func (c *Catalog) GetOrCreate(_ context.Context, name, description, imageURL string) (*model.Movie, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := catalogKey(name)
	if m, ok := c.movies[k]; ok {
		return &m, nil
	}
	c.nextID++
	m := model.Movie{
		ID:          c.nextID,
		Name:        strings.TrimSpace(name),
		Description: description,
		ImageURL:    imageURL,
		CreatedAt:   time.Now().UTC(),
	}
	c.movies[k] = m
	return &m, nil
}

// List returns all movies ordered by name.
func (c *Catalog) List(_ context.Context) ([]model.Movie, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Movie, 0, len(c.movies))
	for _, m := range c.movies {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
