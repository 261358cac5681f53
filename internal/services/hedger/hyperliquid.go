package hedger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	hyperliquid "github.com/sonirico/go-hyperliquid"

	"github.com/vadiminshakov/hedgevault/internal/domain"
)

// HyperliquidVenue implements VenueReader and VenueWriter over the
// Hyperliquid exchange and info APIs.
type HyperliquidVenue struct {
	ex          *hyperliquid.Exchange
	info        *hyperliquid.Info
	accountAddr string
}

// NewHyperliquidVenue wraps an authenticated exchange session.
func NewHyperliquidVenue(ex *hyperliquid.Exchange, accountAddr string) (*HyperliquidVenue, error) {
	if ex == nil {
		return nil, fmt.Errorf("hyperliquid exchange is nil")
	}
	return &HyperliquidVenue{ex: ex, info: ex.Info(), accountAddr: accountAddr}, nil
}

// OrderBook returns the current L2 snapshot for a coin, both sides
// best-first.
func (v *HyperliquidVenue) OrderBook(ctx context.Context, coin string) (domain.OrderBook, error) {
	snapshot, err := v.info.L2Snapshot(ctx, coin)
	if err != nil {
		return domain.OrderBook{}, errors.Wrap(err, "fetch L2 snapshot")
	}
	return bookFromSnapshot(coin, snapshot)
}

// bookFromSnapshot maps a venue L2 book onto the domain order book. The
// venue reports two level arrays, bids first.
func bookFromSnapshot(coin string, snapshot *hyperliquid.L2Book) (domain.OrderBook, error) {
	if snapshot == nil || len(snapshot.Levels) != 2 {
		return domain.OrderBook{}, errors.Wrap(domain.ErrComputation, "malformed L2 snapshot shape")
	}

	book := domain.OrderBook{Coin: coin}
	for _, lvl := range snapshot.Levels[0] {
		book.Bids = append(book.Bids, domain.BookLevel{
			Px: decimal.NewFromFloat(lvl.Px),
			Sz: decimal.NewFromFloat(lvl.Sz),
		})
	}
	for _, lvl := range snapshot.Levels[1] {
		book.Asks = append(book.Asks, domain.BookLevel{
			Px: decimal.NewFromFloat(lvl.Px),
			Sz: decimal.NewFromFloat(lvl.Sz),
		})
	}
	return book, nil
}

// PerpMeta returns validated instrument metadata for a coin. Hyperliquid
// meta carries size decimals only; the tick size falls back to the venue
// default when absent.
func (v *HyperliquidVenue) PerpMeta(ctx context.Context, coin string) (domain.InstrumentMeta, error) {
	meta := domain.InstrumentMeta{
		Coin:       coin,
		TickSize:   defaultTickSize,
		SzDecimals: defaultSzDecimals,
	}
	universe, err := v.info.Meta(ctx)
	if err != nil {
		return domain.InstrumentMeta{}, errors.Wrap(err, "fetch perp meta")
	}
	for _, asset := range universe.Universe {
		if strings.EqualFold(asset.Name, coin) {
			meta.SzDecimals = int32(asset.SzDecimals)
			break
		}
	}
	return meta, nil
}

// OpenOrders returns the account's resting orders.
func (v *HyperliquidVenue) OpenOrders(ctx context.Context, account string) ([]domain.OpenOrder, error) {
	if account == "" {
		account = v.accountAddr
	}
	open, err := v.info.OpenOrders(ctx, account)
	if err != nil {
		return nil, errors.Wrap(err, "fetch open orders")
	}
	return openOrdersFromVenue(open), nil
}

func openOrdersFromVenue(open []hyperliquid.OpenOrder) []domain.OpenOrder {
	out := make([]domain.OpenOrder, 0, len(open))
	for _, o := range open {
		out = append(out, domain.OpenOrder{
			Coin:    o.Coin,
			OrderID: o.Oid,
			LimitPx: decimal.NewFromFloat(o.LimitPx),
			Sz:      decimal.NewFromFloat(o.Size),
		})
	}
	return out
}

// Fills returns the account's recent executions, newest first as reported
// by the venue.
func (v *HyperliquidVenue) Fills(ctx context.Context, account string) ([]domain.Fill, error) {
	if account == "" {
		account = v.accountAddr
	}
	fills, err := v.info.UserFills(ctx, account)
	if err != nil {
		return nil, errors.Wrap(err, "fetch user fills")
	}
	return fillsFromVenue(fills)
}

func fillsFromVenue(fills []hyperliquid.Fill) ([]domain.Fill, error) {
	out := make([]domain.Fill, 0, len(fills))
	for _, f := range fills {
		px, err := decimal.NewFromString(f.Price)
		if err != nil {
			return nil, errors.Wrapf(domain.ErrComputation, "bad fill price %q", f.Price)
		}
		sz, err := decimal.NewFromString(f.Size)
		if err != nil {
			return nil, errors.Wrapf(domain.ErrComputation, "bad fill size %q", f.Size)
		}
		out = append(out, domain.Fill{
			Coin:    f.Coin,
			OrderID: f.Oid,
			Px:      px,
			Sz:      sz,
			Time:    time.UnixMilli(f.Time),
		})
	}
	return out, nil
}

// PlaceOrder submits a limit IOC order and resolves the venue order id
// through the client order id.
func (v *HyperliquidVenue) PlaceOrder(ctx context.Context, req OrderRequest) (domain.OrderAck, error) {
	cloid := req.ClientOrderID
	if cloid == "" {
		cloid = uuid.New().String()
	}
	cloid = cloidFromID(cloid)

	size, _ := req.Size.Round(8).Float64()
	price, _ := req.Price.Round(8).Float64()

	order := hyperliquid.CreateOrderRequest{
		Coin:          req.Coin,
		IsBuy:         req.IsBuy,
		Price:         price,
		Size:          size,
		ReduceOnly:    req.ReduceOnly,
		ClientOrderID: &cloid,
		OrderType: hyperliquid.OrderType{
			Limit: &hyperliquid.LimitOrderType{Tif: hyperliquid.TifIoc},
		},
	}
	if _, err := v.ex.Order(ctx, order, nil); err != nil {
		return domain.OrderAck{}, err
	}

	ack := domain.OrderAck{ClientOrderID: cloid}
	// resolve the venue oid; the order is already accepted, so a lookup
	// failure leaves the ack with the cloid only
	res, err := v.info.QueryOrderByCloid(ctx, v.accountAddr, cloid)
	if err == nil && res != nil && res.Status == hyperliquid.OrderQueryStatusSuccess {
		ack.OrderID = res.Order.Order.Oid
	}
	return ack, nil
}

// cloidFromID converts a free-form client ID into a valid Hyperliquid cloid
// (0x + 32 hex chars).
func cloidFromID(id string) string {
	s := strings.TrimSpace(id)
	if s == "" {
		s = fmt.Sprintf("%d", time.Now().UnixNano())
	}
	sum := sha256.Sum256([]byte(s))
	return "0x" + hex.EncodeToString(sum[:16])
}
