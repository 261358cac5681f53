// Package accounting derives vault state and records deposits and
// withdrawals. The chain is the authoritative source when reachable; the
// local journal is the fallback truth.
package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/hedgevault/internal/domain"
	"github.com/vadiminshakov/hedgevault/internal/services/chain"
)

// Fixed exchange rates of the current product design. The mint rate and the
// 1:1 withdrawal payout are deliberate simplifications, not derived from the
// share price.
// SharesPerAssetUnit shares minted per unit of base asset deposited.
var SharesPerAssetUnit = decimal.NewFromInt(100)

// HedgeHook is invoked after a qualifying deposit has been committed to the
// journal. It returns a venue order reference. A hook failure never affects
// the recorded deposit.
type HedgeHook func(ctx context.Context, amount decimal.Decimal, txRef string) (string, error)

type ledgerStore interface {
	Append(tx domain.Transaction) error
	NetShares(account string) decimal.Decimal
	NetAssets(account string) decimal.Decimal
}

// TxConfirmer reports whether a chain transaction was mined successfully
// within the timeout.
type TxConfirmer interface {
	WaitForTransaction(ctx context.Context, txHash string, timeout time.Duration) bool
}

// Engine computes vault snapshots and writes the transaction journal. It
// owns no mutable state of its own.
type Engine struct {
	chain          chain.Reader // nil when no chain endpoint is configured
	ledger         ledgerStore
	hedgeHook      HedgeHook
	confirmer      TxConfirmer // nil disables deposit confirmation
	confirmTimeout time.Duration
	logger         *zap.Logger
}

// NewEngine builds the accounting engine. chainReader may be nil, in which
// case every query derives from the journal. hook may be nil to disable
// hedging entirely.
func NewEngine(chainReader chain.Reader, ledger ledgerStore, hook HedgeHook, logger *zap.Logger) (*Engine, error) {
	if ledger == nil {
		return nil, errors.New("ledger store is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{chain: chainReader, ledger: ledger, hedgeHook: hook, logger: logger}, nil
}

// WithTxConfirmer makes RecordDeposit require on-chain confirmation of
// caller-supplied transaction hashes before journaling them. Generated refs
// are never confirmed, they do not exist on chain.
func (e *Engine) WithTxConfirmer(c TxConfirmer, timeout time.Duration) *Engine {
	e.confirmer = c
	e.confirmTimeout = timeout
	return e
}

// stateSource is one step of the ordered fallback chain. ok=false without an
// error means the source answered but holds no meaningful data.
type stateSource struct {
	name string
	load func(ctx context.Context) (domain.VaultState, bool, error)
}

func (e *Engine) stateSources() []stateSource {
	var sources []stateSource
	if e.chain != nil {
		sources = append(sources, stateSource{name: "chain", load: e.chainState})
	}
	sources = append(sources, stateSource{name: "ledger", load: e.ledgerState})
	return sources
}

func (e *Engine) chainState(ctx context.Context) (domain.VaultState, bool, error) {
	assets, err := e.chain.TotalAssets(ctx)
	if err != nil {
		return domain.VaultState{}, false, err
	}
	shares, err := e.chain.TotalShares(ctx)
	if err != nil {
		return domain.VaultState{}, false, err
	}
	// zero assets and zero shares means an uninitialized vault, not an
	// empty answer worth trusting over the journal
	if assets.IsZero() && shares.IsZero() {
		return domain.VaultState{}, false, nil
	}
	return domain.NewVaultState(assets, shares, domain.StateSourceChain), true, nil
}

func (e *Engine) ledgerState(_ context.Context) (domain.VaultState, bool, error) {
	assets := e.ledger.NetAssets("")
	shares := e.ledger.NetShares("")
	return domain.NewVaultState(assets, shares, domain.StateSourceLedger), true, nil
}

// VaultState returns the current snapshot, trying each source in order.
// Totals are never negative; share price is 1.0 when no shares exist.
func (e *Engine) VaultState(ctx context.Context) (domain.VaultState, error) {
	var lastErr error
	for _, src := range e.stateSources() {
		state, ok, err := src.load(ctx)
		if err != nil {
			e.logger.Warn("vault state source failed, trying next",
				zap.String("source", src.name), zap.Error(err))
			lastErr = err
			continue
		}
		if !ok {
			e.logger.Debug("vault state source empty, trying next", zap.String("source", src.name))
			continue
		}
		return state, nil
	}
	if lastErr != nil {
		return domain.VaultState{}, errors.Wrap(domain.ErrSourceUnavailable, lastErr.Error())
	}
	// every source answered empty: the vault genuinely holds nothing
	return domain.NewVaultState(decimal.Zero, decimal.Zero, domain.StateSourceLedger), nil
}

// UserShares returns an account's share balance, chain first, journal second.
func (e *Engine) UserShares(ctx context.Context, account string) (decimal.Decimal, error) {
	if account == "" {
		return decimal.Zero, errors.Wrap(domain.ErrValidation, "account is required")
	}
	if e.chain != nil {
		shares, err := e.chain.UserShares(ctx, account)
		if err == nil && shares.IsPositive() {
			return shares, nil
		}
		if err != nil {
			e.logger.Warn("chain user shares read failed, falling back to journal",
				zap.String("account", account), zap.Error(err))
		}
	}
	return e.ledger.NetShares(account), nil
}

// AccountPosition returns an account's shares and their asset-equivalent
// value at the current share price.
func (e *Engine) AccountPosition(ctx context.Context, account string) (domain.AccountPosition, error) {
	shares, err := e.UserShares(ctx, account)
	if err != nil {
		return domain.AccountPosition{}, err
	}
	state, err := e.VaultState(ctx)
	if err != nil {
		return domain.AccountPosition{}, err
	}
	return domain.AccountPosition{
		Account:    account,
		Shares:     shares,
		AssetValue: shares.Mul(state.SharePrice),
		SharePrice: state.SharePrice,
	}, nil
}

// RecordDeposit commits a deposit to the journal and, when the amount clears
// MinHedgeDeposit, fires the post-commit hedge hook. A hedge failure is
// reported through HedgeSuccess and never rolls back the deposit.
func (e *Engine) RecordDeposit(ctx context.Context, account string, amount decimal.Decimal, txRef string) (domain.DepositResult, error) {
	if account == "" {
		return domain.DepositResult{}, errors.Wrap(domain.ErrValidation, "account is required")
	}
	if !amount.IsPositive() {
		return domain.DepositResult{}, errors.Wrapf(domain.ErrValidation, "deposit amount must be positive, got %s", amount)
	}
	suppliedRef := txRef != ""
	if txRef == "" {
		txRef = newTxRef()
	}
	if suppliedRef && e.confirmer != nil {
		if !e.confirmer.WaitForTransaction(ctx, txRef, e.confirmTimeout) {
			return domain.DepositResult{}, errors.Wrapf(domain.ErrValidation,
				"deposit transaction %s not confirmed on chain", txRef)
		}
	}

	shares := amount.Mul(SharesPerAssetUnit)
	tx := domain.Transaction{
		Hash:      txRef,
		Account:   account,
		Kind:      domain.TxKindDeposit,
		Amount:    amount,
		Shares:    shares,
		Status:    domain.TxStatusCompleted,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.ledger.Append(tx); err != nil {
		return domain.DepositResult{}, err
	}
	e.logger.Info("deposit recorded",
		zap.String("account", account),
		zap.String("amount", amount.String()),
		zap.String("shares", shares.String()),
		zap.String("tx", txRef))

	result := domain.DepositResult{
		TxRef:        txRef,
		SharesMinted: shares,
		Success:      true,
	}

	if e.hedgeHook == nil || amount.LessThan(domain.MinHedgeDeposit) {
		return result, nil
	}

	orderRef, err := e.hedgeHook(ctx, amount, txRef)
	if err != nil {
		e.logger.Warn("hedge failed, deposit unaffected",
			zap.String("tx", txRef), zap.Error(err))
		return result, nil
	}
	result.HedgeOrderRef = orderRef
	result.HedgeSuccess = true
	return result, nil
}

// RecordWithdraw burns shares and pays out the base asset. The current
// payout is shares 1:1, independent of share price.
func (e *Engine) RecordWithdraw(ctx context.Context, account string, shares decimal.Decimal, txRef string) (domain.WithdrawResult, error) {
	if account == "" {
		return domain.WithdrawResult{}, errors.Wrap(domain.ErrValidation, "account is required")
	}
	if !shares.IsPositive() {
		return domain.WithdrawResult{}, errors.Wrapf(domain.ErrValidation, "withdraw shares must be positive, got %s", shares)
	}

	balance, err := e.UserShares(ctx, account)
	if err != nil {
		return domain.WithdrawResult{}, err
	}
	if balance.LessThan(shares) {
		return domain.WithdrawResult{}, errors.Wrapf(domain.ErrValidation,
			"insufficient shares: balance %s, requested %s", balance, shares)
	}

	if txRef == "" {
		txRef = newTxRef()
	}
	amount := shares // 1:1 payout, see product note on mint/payout rates
	tx := domain.Transaction{
		Hash:      txRef,
		Account:   account,
		Kind:      domain.TxKindWithdraw,
		Amount:    amount,
		Shares:    shares,
		Status:    domain.TxStatusCompleted,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.ledger.Append(tx); err != nil {
		return domain.WithdrawResult{}, err
	}
	e.logger.Info("withdrawal recorded",
		zap.String("account", account),
		zap.String("shares", shares.String()),
		zap.String("tx", txRef))

	return domain.WithdrawResult{TxRef: txRef, AmountWithdrawn: amount, Success: true}, nil
}

func newTxRef() string {
	return fmt.Sprintf("0x%s", uuid.New().String())
}
