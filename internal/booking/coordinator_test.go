package booking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/pricing"
	"github.com/iliyamo/cinema-ticket-booking/internal/queue"
	"github.com/iliyamo/cinema-ticket-booking/internal/store/memory"
)

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *mockPublisher) PublishReconcile(ctx context.Context, ev queue.ReconcileEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type failingLedger struct {
	*memory.Ledger
	err error
}

func (l failingLedger) Append(context.Context, *model.Booking) (uint64, error) { return 0, l.err }

type brokenInventory struct {
	*memory.Inventory
	reserveErr error
	releaseErr error
}

func (i brokenInventory) ReserveSeats(ctx context.Context, showID uint64, qty int) (bool, error) {
	if i.reserveErr != nil {
		return false, i.reserveErr
	}
	return i.Inventory.ReserveSeats(ctx, showID, qty)
}

func (i brokenInventory) ReleaseSeats(ctx context.Context, showID uint64, qty int) error {
	if i.releaseErr != nil {
		return i.releaseErr
	}
	return i.Inventory.ReleaseSeats(ctx, showID, qty)
}

type fixture struct {
	catalog *memory.Catalog
	inv     *memory.Inventory
	ledger  *memory.Ledger
}

func newFixture() fixture {
	return fixture{
		catalog: memory.NewCatalog("Dune", "Oppenheimer"),
		inv:     memory.NewInventory(),
		ledger:  memory.NewLedger(),
	}
}

func (f fixture) coordinator(opts Options) *Coordinator {
	return NewCoordinator(f.catalog, f.inv, f.ledger, pricing.NewEngine(), nil, nil, opts)
}

func validRequest() Request {
	return Request{
		UserEmail:       "sara@example.com",
		MovieName:       "dune",
		Location:        "Riyadh Park",
		ShowTime:        "2026-11-01 19:30",
		TicketType:      "regular",
		TicketQuantity:  5,
		PopcornQuantity: 2,
	}
}

func TestBook_Commits(t *testing.T) {
	f := newFixture()
	c := f.coordinator(Options{})
	ctx := context.Background()

	res, err := c.Book(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Booking.ID)
	assert.Equal(t, "162.00", res.Booking.TotalPrice.StringFixed(2))
	assert.Equal(t, "Dune", res.MovieName)
	assert.Equal(t, model.DefaultHallType, res.HallType)
	assert.True(t, res.Breakdown.DiscountApplied())

	avail, err := f.inv.AvailableSeats(ctx, res.Booking.ShowID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTotalSeats-5, avail)

	list, err := c.BookingsForUser(ctx, "sara@example.com")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.Booking.ID, list[0].ID)
}

func TestBook_NormalizesTier(t *testing.T) {
	f := newFixture()
	c := f.coordinator(Options{})

	req := validRequest()
	req.TicketType = "VIP"
	req.TicketQuantity = 1
	req.PopcornQuantity = 0
	res, err := c.Book(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "regular", res.Booking.TicketType)
	assert.Equal(t, "30.00", res.Booking.TotalPrice.StringFixed(2))

	req.TicketType = "PRO"
	res, err = c.Book(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "pro", res.Booking.TicketType)
	assert.Equal(t, "40.00", res.Booking.TotalPrice.StringFixed(2))
}

func TestBook_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		kind   Kind
	}{
		{"no user", func(r *Request) { r.UserEmail = " " }, KindInvalidInput},
		{"no movie", func(r *Request) { r.MovieName = "" }, KindInvalidInput},
		{"no location", func(r *Request) { r.Location = "" }, KindInvalidInput},
		{"no show time", func(r *Request) { r.ShowTime = "" }, KindInvalidInput},
		{"no tier", func(r *Request) { r.TicketType = "" }, KindInvalidInput},
		{"zero tickets", func(r *Request) { r.TicketQuantity = 0 }, KindInvalidInput},
		{"negative tickets", func(r *Request) { r.TicketQuantity = -2 }, KindInvalidInput},
		{"negative popcorn", func(r *Request) { r.PopcornQuantity = -1 }, KindInvalidInput},
		{"unknown movie", func(r *Request) { r.MovieName = "Barbie" }, KindNotFound},
		{"more than capacity", func(r *Request) { r.TicketQuantity = model.DefaultTotalSeats + 1 }, KindInsufficientSeats},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			c := f.coordinator(Options{})
			req := validRequest()
			tt.mutate(&req)

			res, err := c.Book(context.Background(), req)
			assert.Nil(t, res)
			assert.True(t, IsKind(err, tt.kind), "got %v", err)

			list, _ := f.ledger.ListByUser(context.Background(), "sara@example.com")
			assert.Empty(t, list)
		})
	}
}

func TestBook_ConcurrentLastSeats(t *testing.T) {
	f := newFixture()
	c := f.coordinator(Options{})
	ctx := context.Background()

	movie, err := f.catalog.GetByName(ctx, "Dune")
	require.NoError(t, err)
	showID, err := f.inv.ResolveOrCreate(ctx, movie.ID, "Riyadh Park", "2026-11-01 19:30", model.DefaultHallType)
	require.NoError(t, err)
	ok, err := f.inv.ReserveSeats(ctx, showID, model.DefaultTotalSeats-3)
	require.NoError(t, err)
	require.True(t, ok)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := validRequest()
			req.TicketQuantity = 2
			req.PopcornQuantity = 0
			_, errs[i] = c.Book(ctx, req)
		}(i)
	}
	wg.Wait()

	var wins, denied int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case IsKind(err, KindInsufficientSeats):
			denied++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, denied)

	avail, _ := f.inv.AvailableSeats(ctx, showID)
	assert.Equal(t, 1, avail)
	list, _ := f.ledger.ListByUser(ctx, "sara@example.com")
	assert.Len(t, list, 1)
}

func TestBook_SeatInvariantUnderLoad(t *testing.T) {
	f := newFixture()
	c := f.coordinator(Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := validRequest()
			req.TicketQuantity = i%3 + 1
			_, _ = c.Book(ctx, req)
		}(i)
	}
	wg.Wait()

	list, err := c.BookingsForUser(ctx, "sara@example.com")
	require.NoError(t, err)
	sold := 0
	for _, b := range list {
		sold += b.TicketQuantity
	}
	show, err := f.inv.GetByID(ctx, list[0].ShowID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, show.AvailableSeats, 0)
	assert.Equal(t, sold, show.SoldSeats())
}

func TestBook_ReserveStorageError(t *testing.T) {
	f := newFixture()
	inv := brokenInventory{Inventory: f.inv, reserveErr: errors.New("connection reset")}
	c := NewCoordinator(f.catalog, inv, f.ledger, pricing.NewEngine(), nil, nil, Options{})

	_, err := c.Book(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, KindStorage, KindOf(err))

	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, StateReserving, be.State)
}

func TestBook_PartialFailure(t *testing.T) {
	tests := []struct {
		name            string
		compensate      bool
		releaseErr      error
		wantCompensated bool
		wantReconcile   bool
		wantAvailable   int
	}{
		{name: "compensated", compensate: true, wantCompensated: true, wantAvailable: model.DefaultTotalSeats},
		{name: "compensation off", compensate: false, wantReconcile: true, wantAvailable: model.DefaultTotalSeats - 5},
		{name: "compensation fails", compensate: true, releaseErr: errors.New("lock wait timeout"), wantReconcile: true, wantAvailable: model.DefaultTotalSeats - 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			inv := brokenInventory{Inventory: f.inv, releaseErr: tt.releaseErr}
			ledger := failingLedger{Ledger: f.ledger, err: errors.New("disk full")}
			pub := &mockPublisher{}
			if tt.wantReconcile {
				pub.On("PublishReconcile", mock.Anything, mock.MatchedBy(func(ev queue.ReconcileEvent) bool {
					return ev.Quantity == 5 && ev.Total == "162.00" && !ev.Compensated
				})).Return(nil).Once()
			}
			core, logs := observer.New(zapcore.ErrorLevel)
			c := NewCoordinator(f.catalog, inv, ledger, pricing.NewEngine(), pub, zap.New(core), Options{Compensate: tt.compensate})

			_, err := c.Book(context.Background(), validRequest())
			c.Wait()

			var be *Error
			require.ErrorAs(t, err, &be)
			assert.Equal(t, KindPartialFailure, be.Kind)
			assert.Equal(t, StateRecording, be.State)
			assert.Equal(t, 5, be.Quantity)
			assert.Equal(t, tt.wantCompensated, be.Compensated)
			assert.ErrorContains(t, err, "disk full")

			avail, _ := f.inv.AvailableSeats(context.Background(), be.ShowID)
			assert.Equal(t, tt.wantAvailable, avail)
			assert.NotZero(t, logs.FilterMessage("booking partial failure").Len())
			pub.AssertExpectations(t)
		})
	}
}

func TestBook_PublishesConfirmed(t *testing.T) {
	f := newFixture()
	pub := &mockPublisher{}
	pub.On("PublishBookingConfirmed", mock.Anything, mock.MatchedBy(func(ev queue.BookingConfirmedEvent) bool {
		return ev.BookingID == 1 && ev.MovieName == "Dune" && ev.Total == "162.00" && ev.Currency == "SAR"
	})).Return(errors.New("broker down")).Once()
	c := NewCoordinator(f.catalog, f.inv, f.ledger, pricing.NewEngine(), pub, nil, Options{})

	_, err := c.Book(context.Background(), validRequest())
	c.Wait()

	assert.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestBook_CallerCancelledAfterReserve(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	ledger := cancelOnAppend{Ledger: f.ledger, cancel: cancel}
	c := NewCoordinator(f.catalog, f.inv, ledger, pricing.NewEngine(), nil, nil, Options{})

	res, err := c.Book(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Booking.ID)
}

// cancelOnAppend cancels the caller's context before writing and fails the
// write if it observes the cancellation.
type cancelOnAppend struct {
	*memory.Ledger
	cancel context.CancelFunc
}

func (l cancelOnAppend) Append(ctx context.Context, b *model.Booking) (uint64, error) {
	l.cancel()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return l.Ledger.Append(ctx, b)
}

func TestQuote(t *testing.T) {
	c := newFixture().coordinator(Options{})

	bd, err := c.Quote("pro", 6, 2)
	require.NoError(t, err)
	assert.Equal(t, "240.00", bd.TicketSubtotal.StringFixed(2))
	assert.Equal(t, "30.00", bd.PopcornSubtotal.StringFixed(2))
	assert.Equal(t, "27.00", bd.Discount.StringFixed(2))
	assert.Equal(t, "243.00", bd.Total.StringFixed(2))

	_, err = c.Quote("regular", -1, 0)
	assert.True(t, IsKind(err, KindInvalidInput))
}

func TestAvailability(t *testing.T) {
	f := newFixture()
	c := f.coordinator(Options{})
	ctx := context.Background()

	a, err := c.Availability(ctx, AvailabilityQuery{MovieName: "DUNE", Location: "Jeddah", ShowTime: "21:00"})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTotalSeats, a.AvailableSeats)
	assert.Equal(t, model.DefaultHallType, a.HallType)
	assert.Equal(t, "Dune", a.MovieName)

	again, err := c.Availability(ctx, AvailabilityQuery{MovieName: "dune", Location: "Jeddah", ShowTime: "21:00"})
	require.NoError(t, err)
	assert.Equal(t, a.ShowID, again.ShowID)

	_, err = c.Availability(ctx, AvailabilityQuery{MovieName: "Barbie", Location: "Jeddah", ShowTime: "21:00"})
	assert.True(t, IsKind(err, KindNotFound))

	n, err := c.AvailableSeats(ctx, 999)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestShows(t *testing.T) {
	f := newFixture()
	c := f.coordinator(Options{})
	ctx := context.Background()

	_, err := c.Availability(ctx, AvailabilityQuery{MovieName: "Dune", Location: "Jeddah", ShowTime: "21:00"})
	require.NoError(t, err)
	_, err = c.Availability(ctx, AvailabilityQuery{MovieName: "Dune", Location: "Jeddah", ShowTime: "18:00"})
	require.NoError(t, err)

	shows, err := c.Shows(ctx, " dune ")
	require.NoError(t, err)
	require.Len(t, shows, 2)
	assert.Equal(t, "18:00", shows[0].ShowTime)

	_, err = c.Shows(ctx, "")
	assert.True(t, IsKind(err, KindInvalidInput))
	_, err = c.Shows(ctx, "Barbie")
	assert.True(t, IsKind(err, KindNotFound))
}

func TestBookingForUser(t *testing.T) {
	f := newFixture()
	c := f.coordinator(Options{})
	ctx := context.Background()

	res, err := c.Book(ctx, validRequest())
	require.NoError(t, err)

	b, err := c.BookingForUser(ctx, "Sara@Example.com", res.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Booking.ID, b.ID)

	_, err = c.BookingForUser(ctx, "omar@example.com", res.Booking.ID)
	assert.True(t, IsKind(err, KindNotFound))

	_, err = c.BookingForUser(ctx, "sara@example.com", 42)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestErrorFormatting(t *testing.T) {
	err := &Error{Kind: KindStorage, Msg: "reserve seats", Err: errors.New("boom")}
	assert.Equal(t, "storage_error: reserve seats: boom", err.Error())
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.False(t, IsKind(nil, KindStorage))
	assert.Equal(t, "recording", StateRecording.String())
}
