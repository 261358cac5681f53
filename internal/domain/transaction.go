// Package domain defines core data structures used throughout the vault backend.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TxKind type of a vault transaction.
type TxKind string

const (
	// TxKindDeposit base asset deposited, shares minted.
	TxKindDeposit TxKind = "deposit"
	// TxKindWithdraw shares burned, base asset paid out.
	TxKindWithdraw TxKind = "withdraw"
)

// String returns the string representation.
func (k TxKind) String() string {
	return string(k)
}

// IsValid checks if the TxKind value is valid.
func (k TxKind) IsValid() bool {
	return k == TxKindDeposit || k == TxKindWithdraw
}

// TxStatus lifecycle status of a vault transaction.
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusCompleted TxStatus = "completed"
	TxStatusFailed    TxStatus = "failed"
)

// String returns the string representation.
func (s TxStatus) String() string {
	return string(s)
}

// IsValid checks if the TxStatus value is valid.
func (s TxStatus) IsValid() bool {
	return s == TxStatusPending || s == TxStatusCompleted || s == TxStatusFailed
}

// Transaction is a single deposit or withdrawal recorded in the vault journal.
// Completed transactions are immutable; records are removed only by an
// administrative reset of the journal.
type Transaction struct {
	Hash      string          `json:"hash"`
	Account   string          `json:"account"`
	Kind      TxKind          `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Shares    decimal.Decimal `json:"shares"`
	Status    TxStatus        `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// Validate checks the transaction invariants: non-empty hash and account,
// valid kind and status, non-negative amount and shares.
func (t *Transaction) Validate() error {
	if t.Hash == "" {
		return fmt.Errorf("transaction hash is required")
	}
	if t.Account == "" {
		return fmt.Errorf("transaction account is required")
	}
	if !t.Kind.IsValid() {
		return fmt.Errorf("invalid transaction kind: %s", t.Kind)
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("invalid transaction status: %s", t.Status)
	}
	if t.Amount.IsNegative() {
		return fmt.Errorf("transaction amount must be non-negative, got %s", t.Amount)
	}
	if t.Shares.IsNegative() {
		return fmt.Errorf("transaction shares must be non-negative, got %s", t.Shares)
	}
	return nil
}

// DepositResult is returned by the deposit write path. HedgeSuccess reports
// the outcome of the secondary hedge action only; it never affects Success.
type DepositResult struct {
	TxRef         string          `json:"tx_ref"`
	SharesMinted  decimal.Decimal `json:"shares_minted"`
	Success       bool            `json:"success"`
	HedgeOrderRef string          `json:"hedge_order_ref,omitempty"`
	HedgeSuccess  bool            `json:"hedge_success"`
}

// WithdrawResult is returned by the withdrawal write path.
type WithdrawResult struct {
	TxRef           string          `json:"tx_ref"`
	AmountWithdrawn decimal.Decimal `json:"amount_withdrawn"`
	Success         bool            `json:"success"`
}
