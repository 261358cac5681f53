package hedger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/hedgevault/internal/domain"
)

func testBook(askPx string) domain.OrderBook {
	px, _ := decimal.NewFromString(askPx)
	return domain.OrderBook{
		Coin: "BTC",
		Bids: []domain.BookLevel{{Px: px.Sub(decimal.NewFromFloat(0.05)), Sz: decimal.NewFromInt(1)}},
		Asks: []domain.BookLevel{{Px: px, Sz: decimal.NewFromInt(1)}},
	}
}

func testMeta(tick string, szDecimals int32) domain.InstrumentMeta {
	t, _ := decimal.NewFromString(tick)
	return domain.InstrumentMeta{Coin: "BTC", TickSize: t, SzDecimals: szDecimals}
}

func TestSizer_FirstAttemptTickFloor(t *testing.T) {
	var s Sizer

	// best ask 11.00, 15 bps slippage -> raw 11.0165
	params, err := s.OrderParameters(1, decimal.NewFromInt(5), testBook("11.00"), testMeta("0.01", 4), true)
	require.NoError(t, err)

	raw := decimal.NewFromFloat(11.0165)
	assert.True(t, params.Price.LessThanOrEqual(raw), "price %s must not exceed raw %s", params.Price, raw)
	assert.True(t, params.Price.Mod(decimal.NewFromFloat(0.01)).IsZero(), "price %s must be a tick multiple", params.Price)
	assert.True(t, params.Price.Equal(decimal.NewFromFloat(11.01)), "expected 11.01, got %s", params.Price)
	assert.True(t, params.Size.Equal(decimal.NewFromInt(5)))
}

func TestSizer_SlippageWidensPerAttempt(t *testing.T) {
	var s Sizer
	book := testBook("100.00")
	meta := testMeta("0.01", 4)

	first, err := s.OrderParameters(1, decimal.NewFromInt(1), book, meta, true)
	require.NoError(t, err)
	third, err := s.OrderParameters(3, decimal.NewFromInt(1), book, meta, true)
	require.NoError(t, err)

	// 15 bps vs 35 bps over the same ask
	assert.True(t, third.Price.GreaterThan(first.Price))
	assert.True(t, first.Price.Equal(decimal.NewFromFloat(100.15)), "got %s", first.Price)
	assert.True(t, third.Price.Equal(decimal.NewFromFloat(100.35)), "got %s", third.Price)
}

func TestSizer_Deterministic(t *testing.T) {
	var s Sizer
	book := testBook("2419.37")
	meta := testMeta("0.01", 4)
	amount := decimal.NewFromFloat(3.14159)

	a, err := s.OrderParameters(2, amount, book, meta, true)
	require.NoError(t, err)
	b, err := s.OrderParameters(2, amount, book, meta, true)
	require.NoError(t, err)

	assert.True(t, a.Price.Equal(b.Price))
	assert.True(t, a.Size.Equal(b.Size))
}

func TestSizer_TickMultipleProperty(t *testing.T) {
	var s Sizer
	ticks := []string{"0.01", "0.05", "0.1", "0.5"}
	asks := []string{"11.00", "0.4937", "68123.5", "1999.99"}

	for _, tick := range ticks {
		for _, ask := range asks {
			for attempt := 1; attempt <= 4; attempt++ {
				params, err := s.OrderParameters(attempt, decimal.NewFromInt(2), testBook(ask), testMeta(tick, 3), true)
				require.NoError(t, err)
				tickD, _ := decimal.NewFromString(tick)
				assert.True(t, params.Price.Mod(tickD).IsZero(),
					"ask %s tick %s attempt %d: price %s not tick aligned", ask, tick, attempt, params.Price)
			}
		}
	}
}

func TestSizer_FractionalDigitsLimit(t *testing.T) {
	var s Sizer

	// perp: 6 - 4 = 2 fractional digits at most
	params, err := s.OrderParameters(1, decimal.NewFromInt(1), testBook("0.4937"), testMeta("0.0001", 4), true)
	require.NoError(t, err)
	assert.True(t, params.Price.Equal(params.Price.Truncate(2)),
		"perp price %s must carry at most 2 fractional digits", params.Price)

	// spot: 8 - 4 = 4 fractional digits allowed
	params, err = s.OrderParameters(1, decimal.NewFromInt(1), testBook("0.4937"), testMeta("0.0001", 4), false)
	require.NoError(t, err)
	assert.True(t, params.Price.Equal(params.Price.Truncate(4)))
}

func TestSizer_SizeTruncatedToSzDecimals(t *testing.T) {
	var s Sizer

	params, err := s.OrderParameters(1, decimal.NewFromFloat(1.23456789), testBook("11.00"), testMeta("0.01", 3), true)
	require.NoError(t, err)
	assert.True(t, params.Size.Equal(decimal.NewFromFloat(1.234)), "got %s", params.Size)
}

func TestSizer_DefaultTickWhenAbsent(t *testing.T) {
	var s Sizer

	meta := domain.InstrumentMeta{Coin: "BTC", SzDecimals: 4} // no tick size
	params, err := s.OrderParameters(1, decimal.NewFromInt(1), testBook("11.00"), meta, true)
	require.NoError(t, err)
	assert.True(t, params.Price.Mod(decimal.NewFromFloat(0.01)).IsZero())
}

func TestSizer_FailsClosedOnMalformedInputs(t *testing.T) {
	var s Sizer
	meta := testMeta("0.01", 4)

	_, err := s.OrderParameters(1, decimal.NewFromInt(1), domain.OrderBook{Coin: "BTC"}, meta, true)
	assert.ErrorIs(t, err, domain.ErrComputation)

	emptyAsk := domain.OrderBook{Coin: "BTC", Asks: []domain.BookLevel{{Px: decimal.Zero}}}
	_, err = s.OrderParameters(1, decimal.NewFromInt(1), emptyAsk, meta, true)
	assert.ErrorIs(t, err, domain.ErrComputation)

	_, err = s.OrderParameters(0, decimal.NewFromInt(1), testBook("11.00"), meta, true)
	assert.ErrorIs(t, err, domain.ErrComputation)

	_, err = s.OrderParameters(1, decimal.Zero, testBook("11.00"), meta, true)
	assert.ErrorIs(t, err, domain.ErrComputation)
}
