package hedger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	hyperliquid "github.com/sonirico/go-hyperliquid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/hedgevault/internal/domain"
)

func TestBookFromSnapshot(t *testing.T) {
	snapshot := &hyperliquid.L2Book{
		Coin: "BTC",
		Levels: [][]hyperliquid.Level{
			{
				{Px: 49999.5, Sz: 1.2, N: 3},
				{Px: 49998.0, Sz: 0.4, N: 1},
			},
			{
				{Px: 50000.5, Sz: 0.8, N: 2},
			},
		},
	}

	book, err := bookFromSnapshot("BTC", snapshot)
	require.NoError(t, err)

	require.Len(t, book.Bids, 2)
	require.Len(t, book.Asks, 1)
	assert.True(t, book.Bids[0].Px.Equal(decimal.RequireFromString("49999.5")))
	assert.True(t, book.Bids[0].Sz.Equal(decimal.RequireFromString("1.2")))
	assert.True(t, book.Asks[0].Px.Equal(decimal.RequireFromString("50000.5")))
	assert.True(t, book.Asks[0].Sz.Equal(decimal.RequireFromString("0.8")))

	best, ok := book.BestAsk()
	require.True(t, ok)
	assert.True(t, best.Px.Equal(decimal.RequireFromString("50000.5")))
}

func TestBookFromSnapshot_MalformedShape(t *testing.T) {
	_, err := bookFromSnapshot("BTC", nil)
	require.ErrorIs(t, err, domain.ErrComputation)

	oneSided := &hyperliquid.L2Book{
		Coin:   "BTC",
		Levels: [][]hyperliquid.Level{{{Px: 50000, Sz: 1}}},
	}
	_, err = bookFromSnapshot("BTC", oneSided)
	require.ErrorIs(t, err, domain.ErrComputation)
}

func TestOpenOrdersFromVenue(t *testing.T) {
	open := []hyperliquid.OpenOrder{
		{Coin: "BTC", Oid: 77, LimitPx: 50075.0, Size: 5.0, Side: "B"},
		{Coin: "ETH", Oid: 78, LimitPx: 3001.25, Size: 0.25, Side: "A"},
	}

	out := openOrdersFromVenue(open)
	require.Len(t, out, 2)
	assert.Equal(t, "BTC", out[0].Coin)
	assert.Equal(t, int64(77), out[0].OrderID)
	assert.True(t, out[0].LimitPx.Equal(decimal.RequireFromString("50075")))
	assert.True(t, out[0].Sz.Equal(decimal.RequireFromString("5")))
	assert.True(t, out[1].LimitPx.Equal(decimal.RequireFromString("3001.25")))
}

func TestFillsFromVenue(t *testing.T) {
	venueFills := []hyperliquid.Fill{
		{Coin: "BTC", Oid: 91, Price: "50010.5", Size: "0.05", Time: 1700000000000},
	}

	out, err := fillsFromVenue(venueFills)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(91), out[0].OrderID)
	assert.True(t, out[0].Px.Equal(decimal.RequireFromString("50010.5")))
	assert.True(t, out[0].Sz.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, time.UnixMilli(1700000000000), out[0].Time)
}

func TestFillsFromVenue_BadNumbers(t *testing.T) {
	_, err := fillsFromVenue([]hyperliquid.Fill{{Coin: "BTC", Price: "not-a-number", Size: "1"}})
	require.ErrorIs(t, err, domain.ErrComputation)

	_, err = fillsFromVenue([]hyperliquid.Fill{{Coin: "BTC", Price: "1", Size: ""}})
	require.ErrorIs(t, err, domain.ErrComputation)
}
