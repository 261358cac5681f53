package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookLevel is a single price level of an order book side.
type BookLevel struct {
	Px decimal.Decimal
	Sz decimal.Decimal
}

// OrderBook is a two-sided L2 snapshot. Bids and Asks are sorted best-first.
type OrderBook struct {
	Coin string
	Bids []BookLevel
	Asks []BookLevel
}

// BestAsk returns the top ask level, or false if the ask side is empty.
func (b *OrderBook) BestAsk() (BookLevel, bool) {
	if len(b.Asks) == 0 {
		return BookLevel{}, false
	}
	return b.Asks[0], true
}

// InstrumentMeta is the validated venue metadata needed to legalize an order.
type InstrumentMeta struct {
	Coin       string
	TickSize   decimal.Decimal
	SzDecimals int32
}

// OrderParameters is a venue-legal (price, size) pair computed immediately
// before submission. It is never persisted and is recomputed per attempt.
type OrderParameters struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderAck is the venue acknowledgement of a submitted order.
type OrderAck struct {
	OrderID       int64
	ClientOrderID string
}

// OpenOrder is a resting order reported by the venue account query.
type OpenOrder struct {
	Coin    string
	OrderID int64
	LimitPx decimal.Decimal
	Sz      decimal.Decimal
}

// Fill is a single execution reported by the venue account query.
type Fill struct {
	Coin    string
	OrderID int64
	Px      decimal.Decimal
	Sz      decimal.Decimal
	Time    time.Time
}

// OrderVerification is the advisory cross-check of a submitted order against
// venue state. It is diagnostic, not authoritative settlement proof.
type OrderVerification struct {
	OrderFound  bool   `json:"order_found"`
	RecentFills []Fill `json:"recent_fills"`
	OurFill     bool   `json:"our_fill"`
}
