package hedger

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/hedgevault/internal/domain"
)

const (
	// recent fills window for order verification
	fillLookback = 5 * time.Minute

	orderSizeDecimals  = 3
	orderPriceDecimals = 2
)

var (
	// MinOrderSize smallest order size the venue accepts.
	MinOrderSize = decimal.NewFromFloat(0.001)

	// fixed 15 bps slippage over the reference price
	openSlippageFactor = decimal.NewFromFloat(1.0015)
)

// OrderRequest is a venue order before submission.
type OrderRequest struct {
	Coin          string
	IsBuy         bool
	Size          decimal.Decimal
	Price         decimal.Decimal
	ReduceOnly    bool
	ClientOrderID string
}

// VenueReader is the read side of the exchange: market data and account
// queries.
type VenueReader interface {
	OrderBook(ctx context.Context, coin string) (domain.OrderBook, error)
	PerpMeta(ctx context.Context, coin string) (domain.InstrumentMeta, error)
	OpenOrders(ctx context.Context, account string) ([]domain.OpenOrder, error)
	Fills(ctx context.Context, account string) ([]domain.Fill, error)
}

// VenueWriter submits orders to the exchange.
type VenueWriter interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (domain.OrderAck, error)
}

// Opener orchestrates order sizing, submission and post-submission
// verification. The venue client is injected; it holds no global state.
type Opener struct {
	reader VenueReader
	writer VenueWriter
	sizer  Sizer
	logger *zap.Logger
}

// NewOpener builds a position opener over the given venue client.
func NewOpener(reader VenueReader, writer VenueWriter, logger *zap.Logger) (*Opener, error) {
	if reader == nil || writer == nil {
		return nil, errors.New("venue reader and writer are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Opener{reader: reader, writer: writer, logger: logger}, nil
}

// OpenPositionOnDeposit opens a hedge for a qualifying deposit: the coin
// amount is 1:1 with the deposit, the limit price is the reference price
// plus 15 bps. Deposits below MinHedgeDeposit are rejected before any
// network call.
func (o *Opener) OpenPositionOnDeposit(ctx context.Context, depositAmount decimal.Decimal, coin string, referencePrice decimal.Decimal) (domain.OrderAck, error) {
	if depositAmount.LessThan(domain.MinHedgeDeposit) {
		return domain.OrderAck{}, errors.Wrapf(domain.ErrValidation,
			"deposit %s below hedge minimum %s", depositAmount, domain.MinHedgeDeposit)
	}
	if !referencePrice.IsPositive() {
		return domain.OrderAck{}, errors.Wrapf(domain.ErrValidation,
			"reference price must be positive, got %s", referencePrice)
	}

	size := depositAmount
	if size.LessThan(MinOrderSize) {
		size = MinOrderSize
	}
	size = size.Round(orderSizeDecimals)
	price := referencePrice.Mul(openSlippageFactor).Round(orderPriceDecimals)

	return o.PlaceIOCPerpOrder(ctx, coin, size, price, true, false)
}

// OpenSizedPosition opens a hedge priced off the live order book through the
// sizer. attempt is 1-based; callers widen slippage by retrying with
// attempt+1 after a venue rejection.
func (o *Opener) OpenSizedPosition(ctx context.Context, attempt int, amount decimal.Decimal, coin string) (domain.OrderAck, error) {
	book, err := o.reader.OrderBook(ctx, coin)
	if err != nil {
		return domain.OrderAck{}, errors.Wrap(err, "fetch order book")
	}
	meta, err := o.reader.PerpMeta(ctx, coin)
	if err != nil {
		return domain.OrderAck{}, errors.Wrap(err, "fetch instrument meta")
	}
	params, err := o.sizer.OrderParameters(attempt, amount, book, meta, true)
	if err != nil {
		return domain.OrderAck{}, err
	}
	return o.PlaceIOCPerpOrder(ctx, coin, params.Size, params.Price, true, false)
}

// PlaceIOCPerpOrder submits an immediate-or-cancel perp order. Sizes below
// MinOrderSize fail before any network call.
func (o *Opener) PlaceIOCPerpOrder(ctx context.Context, coin string, size, price decimal.Decimal, isBuy, reduceOnly bool) (domain.OrderAck, error) {
	if size.LessThan(MinOrderSize) {
		return domain.OrderAck{}, errors.Wrapf(domain.ErrValidation,
			"order size %s below venue minimum %s", size, MinOrderSize)
	}
	if !price.IsPositive() {
		return domain.OrderAck{}, errors.Wrapf(domain.ErrValidation,
			"order price must be positive, got %s", price)
	}

	ack, err := o.writer.PlaceOrder(ctx, OrderRequest{
		Coin:       coin,
		IsBuy:      isBuy,
		Size:       size,
		Price:      price,
		ReduceOnly: reduceOnly,
	})
	if err != nil {
		return domain.OrderAck{}, errors.Wrapf(domain.ErrVenueRejected, "place %s ioc order: %v", coin, err)
	}

	o.logger.Info("hedge order submitted",
		zap.String("coin", coin),
		zap.String("size", size.String()),
		zap.String("price", price.String()),
		zap.Int64("oid", ack.OrderID))
	return ack, nil
}

// VerifyOrder cross-checks venue state for a submitted order: whether it is
// still resting among open orders and whether it appears in the account's
// fills over the last five minutes. The result is advisory, not settlement
// proof.
func (o *Opener) VerifyOrder(ctx context.Context, orderID int64, coin, account string) (domain.OrderVerification, error) {
	open, err := o.reader.OpenOrders(ctx, account)
	if err != nil {
		return domain.OrderVerification{}, errors.Wrap(err, "query open orders")
	}
	var found bool
	for _, ord := range open {
		if ord.OrderID == orderID {
			found = true
			break
		}
	}

	fills, err := o.reader.Fills(ctx, account)
	if err != nil {
		return domain.OrderVerification{}, errors.Wrap(err, "query fills")
	}
	cutoff := time.Now().Add(-fillLookback)
	var recent []domain.Fill
	ourFill := false
	for _, f := range fills {
		if f.Coin != coin || f.Time.Before(cutoff) {
			continue
		}
		recent = append(recent, f)
		if f.OrderID == orderID {
			ourFill = true
		}
	}

	return domain.OrderVerification{
		OrderFound:  found,
		RecentFills: recent,
		OurFill:     ourFill,
	}, nil
}
