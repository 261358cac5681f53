package domain

import "github.com/shopspring/decimal"

// MinHedgeDeposit is the smallest deposit that is eligible for a hedge
// position on the perp venue.
var MinHedgeDeposit = decimal.NewFromInt(3)

// StateSource identifies which data source produced a vault snapshot.
type StateSource string

const (
	// StateSourceChain snapshot read from on-chain view functions.
	StateSourceChain StateSource = "chain"
	// StateSourceLedger snapshot derived from the local transaction journal.
	StateSourceLedger StateSource = "ledger"
)

// VaultState is a derived snapshot of the vault. It is recomputed on every
// query and never cached authoritatively.
type VaultState struct {
	TotalAssets decimal.Decimal `json:"total_assets"`
	TotalShares decimal.Decimal `json:"total_shares"`
	SharePrice  decimal.Decimal `json:"share_price"`
	Source      StateSource     `json:"source"`
}

// NewVaultState builds a snapshot from totals, flooring both at zero and
// deriving the share price (assets/shares, or 1.0 when no shares exist).
func NewVaultState(assets, shares decimal.Decimal, source StateSource) VaultState {
	if assets.IsNegative() {
		assets = decimal.Zero
	}
	if shares.IsNegative() {
		shares = decimal.Zero
	}
	price := decimal.NewFromInt(1)
	if shares.IsPositive() {
		price = assets.Div(shares)
	}
	return VaultState{
		TotalAssets: assets,
		TotalShares: shares,
		SharePrice:  price,
		Source:      source,
	}
}

// AccountPosition is an account's share balance and its asset-equivalent
// value at the current share price.
type AccountPosition struct {
	Account    string          `json:"account"`
	Shares     decimal.Decimal `json:"shares"`
	AssetValue decimal.Decimal `json:"asset_value"`
	SharePrice decimal.Decimal `json:"share_price"`
}
