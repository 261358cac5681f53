// Package hedger computes venue-legal order parameters and opens hedging
// positions on the perp venue.
package hedger

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/hedgevault/internal/domain"
)

const (
	// slippage schedule: 15 bps on the first attempt, +10 bps per retry
	baseSlippageBps  = 15
	retrySlippageBps = 10

	perpMaxDecimals = 6
	spotMaxDecimals = 8

	defaultSzDecimals = 4
	priceSigFigs      = 5
)

var (
	bpsDenominator  = decimal.NewFromInt(10000)
	defaultTickSize = decimal.NewFromFloat(0.01)
)

// Sizer translates a desired trade amount into a (price, size) pair that
// satisfies the venue's tick-size and decimal-precision rules. It is a pure
// computation: deterministic for identical inputs, failing closed on
// malformed book or metadata.
type Sizer struct{}

// OrderParameters derives order parameters for the given retry attempt
// (1-based). The returned price is always an exact multiple of the tick size
// and carries at most maxDecimals−szDecimals fractional digits; the size is
// the amount truncated to szDecimals.
func (Sizer) OrderParameters(attempt int, amount decimal.Decimal, book domain.OrderBook, meta domain.InstrumentMeta, isPerp bool) (domain.OrderParameters, error) {
	if attempt < 1 {
		return domain.OrderParameters{}, errors.Wrapf(domain.ErrComputation, "attempt must be >= 1, got %d", attempt)
	}
	if !amount.IsPositive() {
		return domain.OrderParameters{}, errors.Wrapf(domain.ErrComputation, "amount must be positive, got %s", amount)
	}

	bestAsk, ok := book.BestAsk()
	if !ok || !bestAsk.Px.IsPositive() {
		return domain.OrderParameters{}, errors.Wrap(domain.ErrComputation, "order book has no usable ask")
	}

	tick := meta.TickSize
	if !tick.IsPositive() {
		tick = defaultTickSize
	}
	szDecimals := meta.SzDecimals
	if szDecimals < 0 {
		return domain.OrderParameters{}, errors.Wrapf(domain.ErrComputation, "negative szDecimals %d", szDecimals)
	}

	bps := decimal.NewFromInt(int64(baseSlippageBps + (attempt-1)*retrySlippageBps))
	raw := bestAsk.Px.Mul(bpsDenominator.Add(bps)).Div(bpsDenominator)

	price := floorToTick(raw, tick)

	maxDecimals := int32(spotMaxDecimals)
	if isPerp {
		maxDecimals = perpMaxDecimals
	}
	precision := maxDecimals - szDecimals
	if precision < 0 {
		precision = 0
	}
	price = price.Truncate(precision)

	price = roundSigFigs(price, priceSigFigs)
	if !price.Mod(tick).IsZero() {
		price = floorToTick(price, tick)
	}

	// safety pass: the result must be tick-aligned no matter what the
	// rounding above produced
	price = floorToTick(price, tick)

	size := amount.Truncate(szDecimals)

	return domain.OrderParameters{Price: price, Size: size}, nil
}

func floorToTick(price, tick decimal.Decimal) decimal.Decimal {
	return price.Div(tick).Floor().Mul(tick)
}

// roundSigFigs rounds d to the given number of significant figures.
func roundSigFigs(d decimal.Decimal, figs int32) decimal.Decimal {
	if d.IsZero() {
		return d
	}
	// digits left of the decimal point of the most significant digit
	intDigits := int32(d.NumDigits()) + d.Exponent()
	return d.Round(figs - intDigits)
}
