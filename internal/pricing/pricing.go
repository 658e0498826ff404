// Package pricing holds the official Loto ticket prices. It is a pure lookup
// table with no state.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Kdotropez/loto-news-sub001/internal/model"
)

// ErrNoBundlePrice is returned for multiple sizes without an official price.
var ErrNoBundlePrice = errors.New("pricing: no bundle price for this size")

var (
	// SimplePrice is the price of one 5-number grid.
	SimplePrice = decimal.RequireFromString("2.20")

	// SecondDrawSurcharge is charged per simple-ticket-equivalent when the
	// "second draw" option is played.
	SecondDrawSurcharge = decimal.RequireFromString("0.80")

	// bundles are cheaper than buying each sub-grid separately.
	bundles = map[int]decimal.Decimal{
		5:  SimplePrice,
		7:  decimal.RequireFromString("46.20"),
		8:  decimal.RequireFromString("123.20"),
		9:  decimal.RequireFromString("277.20"),
		10: decimal.RequireFromString("554.40"),
	}
)

// MultiplePrice returns the fixed bundle price for a multiple ticket of size k.
// Size 5 maps to the simple price.
func MultiplePrice(k int) (decimal.Decimal, error) {
	p, ok := bundles[k]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %d", ErrNoBundlePrice, k)
	}
	return p, nil
}

// HasBundle reports whether an official bundle price exists for size k.
func HasBundle(k int) bool {
	_, ok := bundles[k]
	return ok
}

// SimpleEquivalents returns C(k,5): the number of simple grids a multiple of
// size k stands for.
func SimpleEquivalents(k int) int {
	if k < 5 {
		return 0
	}
	n := 1
	for i := 0; i < 5; i++ {
		n = n * (k - i) / (i + 1)
	}
	return n
}

// SimpleCost returns the cost of count simple tickets, with the second-draw
// surcharge added per ticket when requested.
func SimpleCost(count int, secondDraw bool) decimal.Decimal {
	unit := SimplePrice
	if secondDraw {
		unit = unit.Add(SecondDrawSurcharge)
	}
	return unit.Mul(decimal.NewFromInt(int64(count)))
}

// TicketCost prices a single ticket of the given type and size. The second
// draw surcharge only applies to simple tickets.
func TicketCost(ticketType string, size int, secondDraw bool) (decimal.Decimal, error) {
	switch ticketType {
	case model.TicketSimple:
		if size != 5 {
			return decimal.Zero, fmt.Errorf("pricing: simple ticket must have 5 numbers, got %d", size)
		}
		return SimpleCost(1, secondDraw), nil
	case model.TicketMultiple:
		return MultiplePrice(size)
	default:
		return decimal.Zero, fmt.Errorf("pricing: unknown ticket type %q", ticketType)
	}
}

// Table is a serialisable snapshot of the price list.
type Table struct {
	Simple     decimal.Decimal         `json:"simple"`
	SecondDraw decimal.Decimal         `json:"second_draw"`
	Multiples  map[int]decimal.Decimal `json:"multiples"`
}

// Snapshot returns the current price list.
func Snapshot() Table {
	m := make(map[int]decimal.Decimal, len(bundles))
	for k, v := range bundles {
		if k == 5 {
			continue
		}
		m[k] = v
	}
	return Table{
		Simple:     SimplePrice,
		SecondDraw: SecondDrawSurcharge,
		Multiples:  m,
	}
}
