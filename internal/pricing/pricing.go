// Package pricing computes ticket prices on the server.  The engine is a
// pure function of its inputs: the same tier and quantities always produce
// the same breakdown.  All arithmetic uses exact decimals.
package pricing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Tier is a ticket class.  Only regular and pro are priced; anything else
// is charged as regular.
type Tier string

const (
	TierRegular Tier = "regular"
	TierPro     Tier = "pro"
)

// BulkDiscountThreshold is the ticket count at which the bulk discount starts.
const BulkDiscountThreshold = 5

// Currency of every amount produced by the engine.
const Currency = "SAR"

var (
	RegularTicketPrice = decimal.RequireFromString("30.00")
	ProTicketPrice     = decimal.RequireFromString("40.00")
	PopcornPrice       = decimal.RequireFromString("15.00")

	// BulkDiscountRate applies to the combined ticket and popcorn subtotal.
	BulkDiscountRate = decimal.RequireFromString("0.10")
)

// ErrNegativeQuantity is returned when a ticket or popcorn count is below zero.
var ErrNegativeQuantity = errors.New("quantities cannot be negative")

// Breakdown itemizes a price.  It is never persisted; only Total ends up on
// a booking record.
type Breakdown struct {
	Tier             Tier
	TicketUnitPrice  decimal.Decimal
	TicketQuantity   int
	TicketSubtotal   decimal.Decimal
	PopcornUnitPrice decimal.Decimal
	PopcornQuantity  int
	PopcornSubtotal  decimal.Decimal
	Discount         decimal.Decimal
	Total            decimal.Decimal
}

// DiscountApplied reports whether the bulk discount reduced the total.
func (b Breakdown) DiscountApplied() bool {
	return b.Discount.IsPositive()
}

// ParseTier maps a tier name to a Tier, ignoring case and surrounding
// whitespace.  Unknown names map to TierRegular.
func ParseTier(name string) Tier {
	if strings.EqualFold(strings.TrimSpace(name), string(TierPro)) {
		return TierPro
	}
	return TierRegular
}

// UnitTicketPrice returns the price of one ticket of the named tier.
func UnitTicketPrice(name string) decimal.Decimal {
	if ParseTier(name) == TierPro {
		return ProTicketPrice
	}
	return RegularTicketPrice
}

// Engine prices bookings.  The zero value is ready to use.
type Engine struct{}

// NewEngine returns a pricing engine.
func NewEngine() Engine { return Engine{} }

// Price computes the itemized price for ticketQty tickets of the given tier
// plus popcornQty popcorn portions.  A 10% discount on the whole subtotal is
// granted when ticketQty reaches BulkDiscountThreshold.  The total is
// rounded half-up to two decimal places.
func (Engine) Price(tier string, ticketQty, popcornQty int) (Breakdown, error) {
	if ticketQty < 0 || popcornQty < 0 {
		return Breakdown{}, ErrNegativeQuantity
	}
	unit := UnitTicketPrice(tier)
	ticketSubtotal := unit.Mul(decimal.NewFromInt(int64(ticketQty)))
	popcornSubtotal := PopcornPrice.Mul(decimal.NewFromInt(int64(popcornQty)))
	subtotal := ticketSubtotal.Add(popcornSubtotal)

	discount := decimal.Zero
	if ticketQty >= BulkDiscountThreshold {
		discount = subtotal.Mul(BulkDiscountRate)
	}

	return Breakdown{
		Tier:             ParseTier(tier),
		TicketUnitPrice:  unit,
		TicketQuantity:   ticketQty,
		TicketSubtotal:   ticketSubtotal.Round(2),
		PopcornUnitPrice: PopcornPrice,
		PopcornQuantity:  popcornQty,
		PopcornSubtotal:  popcornSubtotal.Round(2),
		Discount:         discount.Round(2),
		// decimal.Round rounds half away from zero, which is half-up for
		// the non-negative amounts produced here.
		Total: subtotal.Sub(discount).Round(2),
	}, nil
}
