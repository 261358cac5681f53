// Package chain reads vault state from on-chain view functions.
package chain

import (
	"context"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/hedgevault/internal/domain"
)

// fixedPointExponent is the scale of the chain's integer representation:
// one base-asset unit is 10^8 on the wire.
const fixedPointExponent = -8

const (
	confirmPollInterval   = time.Second
	defaultConfirmTimeout = 30 * time.Second
)

const vaultABI = `[
	{"name":"total_assets","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"total_shares","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"get_user_shares","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// Reader is a read-only view of the on-chain vault.
type Reader interface {
	TotalAssets(ctx context.Context) (decimal.Decimal, error)
	TotalShares(ctx context.Context) (decimal.Decimal, error)
	UserShares(ctx context.Context, account string) (decimal.Decimal, error)
}

// ContractBackend is the narrow slice of an eth RPC client the reader needs.
// *ethclient.Client satisfies it.
type ContractBackend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// EthReader reads the vault contract over an eth RPC backend and descales
// the chain's fixed-point integers to decimal base-asset units.
type EthReader struct {
	backend   ContractBackend
	vaultAddr common.Address
	abi       abi.ABI
}

// NewEthReader builds a reader for the vault contract at vaultAddr.
func NewEthReader(backend ContractBackend, vaultAddr string) (*EthReader, error) {
	if backend == nil {
		return nil, errors.New("contract backend is nil")
	}
	if !common.IsHexAddress(vaultAddr) {
		return nil, errors.Wrapf(domain.ErrValidation, "malformed vault address %q", vaultAddr)
	}
	parsed, err := abi.JSON(strings.NewReader(vaultABI))
	if err != nil {
		return nil, errors.Wrap(err, "parse vault ABI")
	}
	return &EthReader{
		backend:   backend,
		vaultAddr: common.HexToAddress(vaultAddr),
		abi:       parsed,
	}, nil
}

// TotalAssets returns the vault's total assets in base-asset units.
func (r *EthReader) TotalAssets(ctx context.Context) (decimal.Decimal, error) {
	return r.callUint(ctx, "total_assets")
}

// TotalShares returns the vault's total outstanding shares.
func (r *EthReader) TotalShares(ctx context.Context) (decimal.Decimal, error) {
	return r.callUint(ctx, "total_shares")
}

// UserShares returns the share balance of an account.
func (r *EthReader) UserShares(ctx context.Context, account string) (decimal.Decimal, error) {
	if !common.IsHexAddress(account) {
		return decimal.Zero, errors.Wrapf(domain.ErrValidation, "malformed account address %q", account)
	}
	return r.callUint(ctx, "get_user_shares", common.HexToAddress(account))
}

func (r *EthReader) callUint(ctx context.Context, method string, args ...interface{}) (decimal.Decimal, error) {
	data, err := r.abi.Pack(method, args...)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "pack %s call", method)
	}
	out, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &r.vaultAddr, Data: data}, nil)
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrSourceUnavailable, "%s call failed: %v", method, err)
	}
	results, err := r.abi.Unpack(method, out)
	if err != nil || len(results) != 1 {
		return decimal.Zero, errors.Wrapf(domain.ErrSourceUnavailable, "unpack %s result: %v", method, err)
	}
	raw, ok := results[0].(*big.Int)
	if !ok {
		return decimal.Zero, errors.Wrapf(domain.ErrSourceUnavailable, "unexpected %s result type %T", method, results[0])
	}
	return decimal.NewFromBigInt(raw, fixedPointExponent), nil
}

// WaitForTransaction polls for a transaction receipt once per second until
// the transaction is mined or the timeout elapses. It reports the outcome as
// a boolean; a timeout is not an error.
func (r *EthReader) WaitForTransaction(ctx context.Context, txHash string, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = defaultConfirmTimeout
	}
	hash := common.HexToHash(txHash)

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := r.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt.Status == types.ReceiptStatusSuccessful
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
