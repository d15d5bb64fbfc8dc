// Package booking orchestrates a seat purchase: it validates the request,
// prices it, reserves seats on the show and records the booking.
//
// Reservation and recording are two separate atomic operations.  When the
// record cannot be written after seats were taken, the coordinator reports
// a PartialFailure and, if configured to, returns the seats to the show.
package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/pricing"
	"github.com/iliyamo/cinema-ticket-booking/internal/queue"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
)

// Inventory owns the per-show seat counters.  ReserveSeats must test and
// decrement in one atomic step.
type Inventory interface {
	ResolveOrCreate(ctx context.Context, movieID uint64, location, showTime, hallType string) (uint64, error)
	GetByID(ctx context.Context, showID uint64) (*model.Show, error)
	ListByMovie(ctx context.Context, movieID uint64) ([]model.Show, error)
	AvailableSeats(ctx context.Context, showID uint64) (int, error)
	ReserveSeats(ctx context.Context, showID uint64, quantity int) (bool, error)
	ReleaseSeats(ctx context.Context, showID uint64, quantity int) error
}

// Ledger is the append-only booking store.
type Ledger interface {
	Append(ctx context.Context, b *model.Booking) (uint64, error)
	ListByUser(ctx context.Context, email string) ([]model.Booking, error)
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
}

// Catalog resolves movies by name.
type Catalog interface {
	GetByName(ctx context.Context, name string) (*model.Movie, error)
	List(ctx context.Context) ([]model.Movie, error)
}

// Publisher emits booking events.  Failures never affect the booking.
type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
	PublishReconcile(ctx context.Context, ev queue.ReconcileEvent) error
}

// Options tunes coordinator behaviour.
type Options struct {
	// Compensate releases reserved seats when the booking record cannot be
	// written.
	Compensate bool
	// PublishTimeout bounds each event publish.  Zero means 5 seconds.
	PublishTimeout time.Duration
}

// Request is a booking attempt.  Any client supplied total is not part of
// the request; the price is always computed here.
type Request struct {
	UserEmail       string
	MovieName       string
	Location        string
	ShowTime        string
	HallType        string
	TicketType      string
	TicketQuantity  int
	PopcornQuantity int
}

// Result describes a committed booking.
type Result struct {
	Booking   model.Booking
	Breakdown pricing.Breakdown
	MovieName string
	HallType  string
}

// AvailabilityQuery identifies a show by its natural key.
type AvailabilityQuery struct {
	MovieName string
	Location  string
	ShowTime  string
	HallType  string
}

// Availability is the current seat counter of a show.
type Availability struct {
	ShowID         uint64
	MovieID        uint64
	MovieName      string
	Location       string
	ShowTime       string
	HallType       string
	TotalSeats     int
	AvailableSeats int
}

// Coordinator runs the booking state machine
// Validating -> Pricing -> Reserving -> Recording -> Committed.
// It is safe for concurrent use; the only contended state lives behind
// Inventory.ReserveSeats.
type Coordinator struct {
	catalog Catalog
	inv     Inventory
	ledger  Ledger
	pricing pricing.Engine
	pub     Publisher
	log     *zap.Logger
	opts    Options

	events sync.WaitGroup
}

// NewCoordinator wires a coordinator.  pub and log may be nil.
func NewCoordinator(catalog Catalog, inv Inventory, ledger Ledger, engine pricing.Engine, pub Publisher, log *zap.Logger, opts Options) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	return &Coordinator{
		catalog: catalog,
		inv:     inv,
		ledger:  ledger,
		pricing: engine,
		pub:     pub,
		log:     log,
		opts:    opts,
	}
}

// Book validates, prices, reserves and records a booking.  Every failure
// is an *Error; only KindPartialFailure leaves seats reserved without a
// record, and then only when compensation is off or failed.
func (c *Coordinator) Book(ctx context.Context, req Request) (*Result, error) {
	// Validating
	req.UserEmail = strings.TrimSpace(req.UserEmail)
	req.MovieName = strings.TrimSpace(req.MovieName)
	req.Location = strings.TrimSpace(req.Location)
	req.ShowTime = strings.TrimSpace(req.ShowTime)
	req.HallType = strings.TrimSpace(req.HallType)
	req.TicketType = strings.TrimSpace(req.TicketType)
	switch {
	case req.UserEmail == "":
		return nil, invalid("user identity is required")
	case req.MovieName == "":
		return nil, invalid("movie_name is required")
	case req.Location == "":
		return nil, invalid("location is required")
	case req.ShowTime == "":
		return nil, invalid("show_time is required")
	case req.TicketType == "":
		return nil, invalid("ticket_type is required")
	case req.TicketQuantity < 1:
		return nil, invalid("ticket_quantity must be at least 1")
	case req.PopcornQuantity < 0:
		return nil, invalid("popcorn_quantity cannot be negative")
	}
	if req.HallType == "" {
		req.HallType = model.DefaultHallType
	}

	movie, err := c.resolveMovie(ctx, req.MovieName)
	if err != nil {
		return nil, err
	}
	showID, err := c.inv.ResolveOrCreate(ctx, movie.ID, req.Location, req.ShowTime, req.HallType)
	if err != nil {
		return nil, storage(StateValidating, "resolve show", err)
	}

	// Pricing
	bd, err := c.pricing.Price(req.TicketType, req.TicketQuantity, req.PopcornQuantity)
	if err != nil {
		return nil, &Error{Kind: KindInvalidInput, State: StatePricing, Msg: "price booking", Err: err}
	}

	// Reserving
	ok, err := c.inv.ReserveSeats(ctx, showID, req.TicketQuantity)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidQuantity) {
			return nil, &Error{Kind: KindInvalidInput, State: StateReserving, Msg: "reserve seats", Err: err}
		}
		return nil, storage(StateReserving, "reserve seats", err)
	}
	if !ok {
		return nil, &Error{Kind: KindInsufficientSeats, State: StateReserving, Msg: "not enough seats available", ShowID: showID, Quantity: req.TicketQuantity}
	}

	// Recording.  The seats are taken; finish even if the caller has gone.
	rctx := context.WithoutCancel(ctx)
	b := &model.Booking{
		ShowID:          showID,
		UserEmail:       req.UserEmail,
		TicketType:      string(bd.Tier),
		TicketQuantity:  req.TicketQuantity,
		PopcornQuantity: req.PopcornQuantity,
		TotalPrice:      bd.Total,
	}
	if _, err := c.ledger.Append(rctx, b); err != nil {
		return nil, c.partialFailure(rctx, b, err)
	}

	// Committed
	c.publishConfirmed(rctx, b, movie.Name, req)
	return &Result{Booking: *b, Breakdown: bd, MovieName: movie.Name, HallType: req.HallType}, nil
}

func (c *Coordinator) partialFailure(ctx context.Context, b *model.Booking, cause error) *Error {
	perr := &Error{
		Kind:     KindPartialFailure,
		State:    StateRecording,
		Msg:      "seats reserved but booking not recorded",
		Err:      cause,
		ShowID:   b.ShowID,
		Quantity: b.TicketQuantity,
	}
	if c.opts.Compensate {
		if err := c.inv.ReleaseSeats(ctx, b.ShowID, b.TicketQuantity); err != nil {
			c.log.Error("release seats after failed record",
				zap.Uint64("show_id", b.ShowID),
				zap.Int("quantity", b.TicketQuantity),
				zap.Error(err))
		} else {
			perr.Compensated = true
		}
	}
	c.log.Error("booking partial failure",
		zap.Uint64("show_id", b.ShowID),
		zap.String("user_email", b.UserEmail),
		zap.Int("quantity", b.TicketQuantity),
		zap.String("total", b.TotalPrice.StringFixed(2)),
		zap.Bool("compensated", perr.Compensated),
		zap.Error(cause))

	if !perr.Compensated {
		ev := queue.ReconcileEvent{
			ShowID:      b.ShowID,
			UserEmail:   b.UserEmail,
			Quantity:    b.TicketQuantity,
			Total:       b.TotalPrice.StringFixed(2),
			Compensated: false,
			Reason:      cause.Error(),
			OccurredAt:  time.Now().UTC().Format(time.RFC3339),
		}
		c.publish(ctx, "booking.reconcile", func(ctx context.Context) error {
			return c.pub.PublishReconcile(ctx, ev)
		})
	}
	return perr
}

func (c *Coordinator) publishConfirmed(ctx context.Context, b *model.Booking, movieName string, req Request) {
	ev := queue.BookingConfirmedEvent{
		BookingID:       b.ID,
		ShowID:          b.ShowID,
		UserEmail:       b.UserEmail,
		MovieName:       movieName,
		Location:        req.Location,
		ShowTime:        req.ShowTime,
		HallType:        req.HallType,
		TicketType:      b.TicketType,
		TicketQuantity:  b.TicketQuantity,
		PopcornQuantity: b.PopcornQuantity,
		Total:           b.TotalPrice.StringFixed(2),
		Currency:        pricing.Currency,
		ConfirmedAt:     b.CreatedAt.UTC().Format(time.RFC3339),
	}
	c.publish(ctx, "booking.confirmed", func(ctx context.Context) error {
		return c.pub.PublishBookingConfirmed(ctx, ev)
	})
}

// publish runs fn in the background so a slow broker never delays the
// response.  Wait blocks until all such goroutines are done.
func (c *Coordinator) publish(ctx context.Context, name string, fn func(context.Context) error) {
	if c.pub == nil {
		return
	}
	c.events.Add(1)
	go func() {
		defer c.events.Done()
		pctx, cancel := context.WithTimeout(ctx, c.opts.PublishTimeout)
		defer cancel()
		if err := fn(pctx); err != nil {
			c.log.Warn("publish event failed", zap.String("event", name), zap.Error(err))
		}
	}()
}

// Wait blocks until every in-flight event publish has finished.
func (c *Coordinator) Wait() { c.events.Wait() }

func (c *Coordinator) resolveMovie(ctx context.Context, name string) (*model.Movie, error) {
	m, err := c.catalog.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return nil, notFound(StateValidating, "movie not found", err)
		}
		return nil, storage(StateValidating, "resolve movie", err)
	}
	return m, nil
}

// Quote prices an order without touching any store.
func (c *Coordinator) Quote(tier string, ticketQty, popcornQty int) (pricing.Breakdown, error) {
	bd, err := c.pricing.Price(tier, ticketQty, popcornQty)
	if err != nil {
		return pricing.Breakdown{}, &Error{Kind: KindInvalidInput, State: StatePricing, Msg: "price order", Err: err}
	}
	return bd, nil
}

// Availability resolves (creating on first use) the show for q and returns
// its counter.
func (c *Coordinator) Availability(ctx context.Context, q AvailabilityQuery) (*Availability, error) {
	q.MovieName = strings.TrimSpace(q.MovieName)
	q.Location = strings.TrimSpace(q.Location)
	q.ShowTime = strings.TrimSpace(q.ShowTime)
	q.HallType = strings.TrimSpace(q.HallType)
	switch {
	case q.MovieName == "":
		return nil, invalid("movie_name is required")
	case q.Location == "":
		return nil, invalid("location is required")
	case q.ShowTime == "":
		return nil, invalid("show_time is required")
	}
	if q.HallType == "" {
		q.HallType = model.DefaultHallType
	}

	movie, err := c.resolveMovie(ctx, q.MovieName)
	if err != nil {
		return nil, err
	}
	showID, err := c.inv.ResolveOrCreate(ctx, movie.ID, q.Location, q.ShowTime, q.HallType)
	if err != nil {
		return nil, storage(StateValidating, "resolve show", err)
	}
	show, err := c.inv.GetByID(ctx, showID)
	if err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return nil, notFound(StateValidating, "show not found", err)
		}
		return nil, storage(StateValidating, "load show", err)
	}
	return &Availability{
		ShowID:         show.ID,
		MovieID:        movie.ID,
		MovieName:      movie.Name,
		Location:       show.Location,
		ShowTime:       show.ShowTime,
		HallType:       show.HallType,
		TotalSeats:     show.TotalSeats,
		AvailableSeats: show.AvailableSeats,
	}, nil
}

// Shows lists the shows already created for a movie, ordered by show time.
func (c *Coordinator) Shows(ctx context.Context, movieName string) ([]model.Show, error) {
	movieName = strings.TrimSpace(movieName)
	if movieName == "" {
		return nil, invalid("movie_name is required")
	}
	movie, err := c.resolveMovie(ctx, movieName)
	if err != nil {
		return nil, err
	}
	shows, err := c.inv.ListByMovie(ctx, movie.ID)
	if err != nil {
		return nil, storage(StateValidating, "list shows", err)
	}
	return shows, nil
}

// AvailableSeats returns the counter of a show, 0 when unknown.
func (c *Coordinator) AvailableSeats(ctx context.Context, showID uint64) (int, error) {
	n, err := c.inv.AvailableSeats(ctx, showID)
	if err != nil {
		return 0, storage(StateReserving, "read available seats", err)
	}
	return n, nil
}

// BookingsForUser lists the user's bookings, newest first.
func (c *Coordinator) BookingsForUser(ctx context.Context, email string) ([]model.Booking, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, invalid("user identity is required")
	}
	list, err := c.ledger.ListByUser(ctx, email)
	if err != nil {
		return nil, storage(StateCommitted, "list bookings", err)
	}
	return list, nil
}

// BookingForUser returns one booking.  Bookings of other users are reported
// as not found.
func (c *Coordinator) BookingForUser(ctx context.Context, email string, id uint64) (*model.Booking, error) {
	b, err := c.ledger.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, notFound(StateCommitted, "booking not found", err)
		}
		return nil, storage(StateCommitted, "load booking", err)
	}
	if !strings.EqualFold(b.UserEmail, strings.TrimSpace(email)) {
		return nil, notFound(StateCommitted, "booking not found", nil)
	}
	return b, nil
}

// Movies lists the catalog.
func (c *Coordinator) Movies(ctx context.Context) ([]model.Movie, error) {
	list, err := c.catalog.List(ctx)
	if err != nil {
		return nil, storage(StateValidating, "list movies", err)
	}
	return list, nil
}
