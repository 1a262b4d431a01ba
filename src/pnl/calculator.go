// Package pnl computes realized profit/loss from normalized trade fields
// using the instrument tick economics. ComputeNet is pure so the financial
// arithmetic can be exhaustively table-tested.
package pnl

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ray0nyx/0nyxtechtoken-sub000/src/models"
	"github.com/ray0nyx/0nyxtechtoken-sub000/src/pricing"
)

// ErrZeroTickSize marks an instrument spec that cannot price a trade. It
// should never occur with the static table, but it must fail loudly if it
// does.
var ErrZeroTickSize = errors.New("division by zero tick size")

// ComputeNet returns the net realized PnL of one closed position, rounded to
// two decimal places with round-half-even.
//
// feesOverride takes precedence when positive; otherwise the instrument's
// round-trip commission per contract applies. A quantity of zero yields 0
// without touching the pricing table.
func ComputeNet(symbol, side string, entryPrice, exitPrice float64, quantity int, feesOverride float64) (float64, error) {
	if quantity == 0 {
		return 0, nil
	}

	priceDiff := exitPrice - entryPrice
	if side == models.SideShort {
		priceDiff = entryPrice - exitPrice
	}

	spec := pricing.Lookup(symbol)
	if spec.TickSize == 0 {
		return 0, fmt.Errorf("%w: instrument %q", ErrZeroTickSize, symbol)
	}

	ticks := decimal.NewFromFloat(priceDiff).Div(decimal.NewFromFloat(spec.TickSize))
	gross := ticks.
		Mul(decimal.NewFromInt(int64(quantity))).
		Mul(decimal.NewFromFloat(spec.TickValue)).
		RoundBank(2)

	fees := decimal.NewFromFloat(feesOverride)
	if feesOverride <= 0 {
		fees = decimal.NewFromFloat(spec.Commission).Mul(decimal.NewFromInt(int64(quantity)))
	}

	net := gross.Sub(fees.RoundBank(2))
	return net.InexactFloat64(), nil
}

// Fees reports the fee amount ComputeNet would charge, for callers that
// persist fees alongside the net figure.
func Fees(symbol string, quantity int, feesOverride float64) float64 {
	if quantity == 0 {
		return 0
	}
	if feesOverride > 0 {
		return feesOverride
	}
	spec := pricing.Lookup(symbol)
	return spec.Commission * float64(quantity)
}
