// Package pricer provides reference prices for hedge sizing from the
// supported market data venues.
package pricer

import (
	"context"

	"github.com/shopspring/decimal"
)

// Pricer returns the current reference price for a coin against the quote
// currency.
type Pricer interface {
	GetPrice(ctx context.Context, coin string) (decimal.Decimal, error)
}
