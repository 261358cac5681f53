package hedger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/hedgevault/internal/domain"
)

// mockVenue records order submissions and serves canned venue state.
type mockVenue struct {
	book       domain.OrderBook
	meta       domain.InstrumentMeta
	openOrders []domain.OpenOrder
	fills      []domain.Fill

	placed   []OrderRequest
	placeErr error
}

func (m *mockVenue) OrderBook(_ context.Context, _ string) (domain.OrderBook, error) {
	return m.book, nil
}

func (m *mockVenue) PerpMeta(_ context.Context, _ string) (domain.InstrumentMeta, error) {
	return m.meta, nil
}

func (m *mockVenue) OpenOrders(_ context.Context, _ string) ([]domain.OpenOrder, error) {
	return m.openOrders, nil
}

func (m *mockVenue) Fills(_ context.Context, _ string) ([]domain.Fill, error) {
	return m.fills, nil
}

func (m *mockVenue) PlaceOrder(_ context.Context, req OrderRequest) (domain.OrderAck, error) {
	if m.placeErr != nil {
		return domain.OrderAck{}, m.placeErr
	}
	m.placed = append(m.placed, req)
	return domain.OrderAck{OrderID: 42, ClientOrderID: "0xabc"}, nil
}

func newTestOpener(t *testing.T, venue *mockVenue) *Opener {
	t.Helper()
	opener, err := NewOpener(venue, venue, zap.NewNop())
	require.NoError(t, err)
	return opener
}

func TestOpener_RejectsDepositBelowMinimum(t *testing.T) {
	venue := &mockVenue{}
	opener := newTestOpener(t, venue)

	_, err := opener.OpenPositionOnDeposit(context.Background(), decimal.NewFromInt(2), "BTC", decimal.NewFromInt(50000))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, venue.placed, "no order must be sent for sub-minimum deposits")
}

func TestOpener_OpenPositionOnDeposit(t *testing.T) {
	venue := &mockVenue{}
	opener := newTestOpener(t, venue)

	ack, err := opener.OpenPositionOnDeposit(context.Background(), decimal.NewFromInt(5), "BTC", decimal.NewFromInt(50000))
	require.NoError(t, err)
	assert.Equal(t, int64(42), ack.OrderID)

	require.Len(t, venue.placed, 1)
	order := venue.placed[0]
	assert.Equal(t, "BTC", order.Coin)
	assert.True(t, order.IsBuy)
	assert.False(t, order.ReduceOnly)
	// coin amount 1:1 with the deposit, rounded to 3 decimal places
	assert.True(t, order.Size.Equal(decimal.NewFromInt(5)), "got size %s", order.Size)
	// reference price plus 15 bps, rounded to 2 decimal places
	assert.True(t, order.Price.Equal(decimal.NewFromFloat(50075)), "got price %s", order.Price)
}

func TestOpener_RejectsZeroReferencePrice(t *testing.T) {
	venue := &mockVenue{}
	opener := newTestOpener(t, venue)

	_, err := opener.OpenPositionOnDeposit(context.Background(), decimal.NewFromInt(5), "BTC", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, venue.placed)
}

func TestOpener_PlaceIOCRejectsSizeBelowMinimum(t *testing.T) {
	venue := &mockVenue{}
	opener := newTestOpener(t, venue)

	_, err := opener.PlaceIOCPerpOrder(context.Background(), "BTC", decimal.NewFromFloat(0.0005), decimal.NewFromInt(50000), true, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, venue.placed, "validation must fire before any network call")
}

func TestOpener_VenueRejectionIsWrapped(t *testing.T) {
	venue := &mockVenue{placeErr: assert.AnError}
	opener := newTestOpener(t, venue)

	_, err := opener.OpenPositionOnDeposit(context.Background(), decimal.NewFromInt(5), "BTC", decimal.NewFromInt(50000))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrVenueRejected)
}

func TestOpener_OpenSizedPosition(t *testing.T) {
	venue := &mockVenue{
		book: domain.OrderBook{
			Coin: "BTC",
			Asks: []domain.BookLevel{{Px: decimal.NewFromFloat(11.00), Sz: decimal.NewFromInt(10)}},
		},
		meta: domain.InstrumentMeta{Coin: "BTC", TickSize: decimal.NewFromFloat(0.01), SzDecimals: 4},
	}
	opener := newTestOpener(t, venue)

	_, err := opener.OpenSizedPosition(context.Background(), 1, decimal.NewFromInt(5), "BTC")
	require.NoError(t, err)

	require.Len(t, venue.placed, 1)
	order := venue.placed[0]
	assert.True(t, order.Price.Equal(decimal.NewFromFloat(11.01)), "got price %s", order.Price)
	assert.True(t, order.Size.Equal(decimal.NewFromInt(5)))
}

func TestOpener_VerifyOrder(t *testing.T) {
	now := time.Now()
	venue := &mockVenue{
		openOrders: []domain.OpenOrder{
			{Coin: "BTC", OrderID: 42},
			{Coin: "ETH", OrderID: 7},
		},
		fills: []domain.Fill{
			{Coin: "BTC", OrderID: 42, Time: now.Add(-time.Minute)},
			{Coin: "BTC", OrderID: 9, Time: now.Add(-10 * time.Minute)}, // stale, outside window
			{Coin: "ETH", OrderID: 42, Time: now},                       // wrong coin
		},
	}
	opener := newTestOpener(t, venue)

	report, err := opener.VerifyOrder(context.Background(), 42, "BTC", "0xaccount")
	require.NoError(t, err)

	assert.True(t, report.OrderFound)
	assert.True(t, report.OurFill)
	require.Len(t, report.RecentFills, 1)
	assert.Equal(t, int64(42), report.RecentFills[0].OrderID)
}

func TestOpener_VerifyOrderNotFound(t *testing.T) {
	venue := &mockVenue{}
	opener := newTestOpener(t, venue)

	report, err := opener.VerifyOrder(context.Background(), 99, "BTC", "0xaccount")
	require.NoError(t, err)
	assert.False(t, report.OrderFound)
	assert.False(t, report.OurFill)
	assert.Empty(t, report.RecentFills)
}
