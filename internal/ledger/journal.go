// Package ledger persists vault transactions in an append-only WAL journal.
// The journal is the durable fallback source for vault accounting when the
// chain is unreachable or uninitialized.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/hedgevault/internal/domain"
)

const (
	DefaultDir   = "./wal/vaulttx"
	segmentLimit = 1000
	maxSegments  = 100

	txKeyPrefix = "vault_tx_"
)

// Journal is a gowal-backed transaction store. Records are replayed from the
// WAL on open to rebuild the in-memory index; the last record written for a
// hash wins.
type Journal struct {
	wal    *gowal.Wal
	cfg    gowal.Config
	logger *zap.Logger
	txs    []*domain.Transaction
	index  map[string]*domain.Transaction
	mu     sync.RWMutex
}

// NewJournal opens (or creates) the journal in dir and replays it.
func NewJournal(dir string, logger *zap.Logger) (*Journal, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "vaulttx_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init vault transaction WAL")
	}

	j := &Journal{wal: wal, cfg: cfg, logger: logger, index: make(map[string]*domain.Transaction)}
	if err := j.replay(); err != nil {
		_ = wal.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) replay() error {
	current := j.wal.CurrentIndex()
	for idx := uint64(1); idx <= current; idx++ {
		key, payload, err := j.wal.Get(idx)
		if err != nil {
			j.logger.Warn("skipping unreadable WAL record",
				zap.Uint64("index", idx), zap.Error(err))
			continue
		}
		if !strings.HasPrefix(key, txKeyPrefix) {
			continue
		}
		var tx domain.Transaction
		if err := json.Unmarshal(payload, &tx); err != nil {
			return errors.Wrap(err, "decode vault transaction record")
		}
		if existing, ok := j.index[tx.Hash]; ok {
			*existing = tx
			continue
		}
		rec := tx
		j.txs = append(j.txs, &rec)
		j.index[tx.Hash] = &rec
	}
	return nil
}

// Append records a new transaction. The hash must be globally unique.
func (j *Journal) Append(tx domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return errors.Wrap(domain.ErrValidation, err.Error())
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, ok := j.index[tx.Hash]; ok {
		return errors.Wrap(domain.ErrValidation, fmt.Sprintf("duplicate transaction hash %s", tx.Hash))
	}
	if err := j.persist(&tx); err != nil {
		return err
	}
	rec := tx
	j.txs = append(j.txs, &rec)
	j.index[tx.Hash] = &rec
	return nil
}

// UpdateStatus moves a pending transaction to completed or failed.
// Completed transactions are immutable.
func (j *Journal) UpdateStatus(hash string, status domain.TxStatus) error {
	if !status.IsValid() {
		return errors.Wrap(domain.ErrValidation, fmt.Sprintf("invalid status %s", status))
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	tx, ok := j.index[hash]
	if !ok {
		return errors.Wrap(domain.ErrValidation, fmt.Sprintf("unknown transaction hash %s", hash))
	}
	if tx.Status == domain.TxStatusCompleted {
		return errors.Wrap(domain.ErrValidation, fmt.Sprintf("transaction %s is completed and immutable", hash))
	}
	updated := *tx
	updated.Status = status
	if err := j.persist(&updated); err != nil {
		return err
	}
	*tx = updated
	return nil
}

// ByHash returns the transaction with the given hash.
func (j *Journal) ByHash(hash string) (domain.Transaction, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	tx, ok := j.index[hash]
	if !ok {
		return domain.Transaction{}, false
	}
	return *tx, true
}

// ByAccount returns all transactions recorded for an account, oldest first.
func (j *Journal) ByAccount(account string) []domain.Transaction {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []domain.Transaction
	for _, tx := range j.txs {
		if tx.Account == account {
			out = append(out, *tx)
		}
	}
	return out
}

// All returns every recorded transaction, oldest first.
func (j *Journal) All() []domain.Transaction {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]domain.Transaction, 0, len(j.txs))
	for _, tx := range j.txs {
		out = append(out, *tx)
	}
	return out
}

// NetShares returns completed deposit shares minus completed withdrawal
// shares, floored at zero. An empty account aggregates the whole vault.
func (j *Journal) NetShares(account string) decimal.Decimal {
	return j.net(account, func(tx *domain.Transaction) decimal.Decimal { return tx.Shares })
}

// NetAssets returns completed deposit amounts minus completed withdrawal
// amounts, floored at zero. An empty account aggregates the whole vault.
func (j *Journal) NetAssets(account string) decimal.Decimal {
	return j.net(account, func(tx *domain.Transaction) decimal.Decimal { return tx.Amount })
}

func (j *Journal) net(account string, field func(*domain.Transaction) decimal.Decimal) decimal.Decimal {
	j.mu.RLock()
	defer j.mu.RUnlock()

	total := decimal.Zero
	for _, tx := range j.txs {
		if tx.Status != domain.TxStatusCompleted {
			continue
		}
		if account != "" && tx.Account != account {
			continue
		}
		switch tx.Kind {
		case domain.TxKindDeposit:
			total = total.Add(field(tx))
		case domain.TxKindWithdraw:
			total = total.Sub(field(tx))
		}
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// Reset wipes the journal. Administrative operation: the WAL directory is
// removed and reopened empty.
func (j *Journal) Reset() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.wal.Close(); err != nil {
		return errors.Wrap(err, "close WAL for reset")
	}
	if err := os.RemoveAll(j.cfg.Dir); err != nil {
		return errors.Wrap(err, "remove WAL dir")
	}
	wal, err := gowal.NewWAL(j.cfg)
	if err != nil {
		return errors.Wrap(err, "reopen WAL after reset")
	}
	j.wal = wal
	j.txs = nil
	j.index = make(map[string]*domain.Transaction)
	return nil
}

// Close closes the underlying WAL.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.wal.Close()
}

func (j *Journal) persist(tx *domain.Transaction) error {
	payload, err := json.Marshal(tx)
	if err != nil {
		return errors.Wrap(err, "marshal vault transaction")
	}
	key := fmt.Sprintf("%s%s", txKeyPrefix, tx.Hash)
	nextIndex := j.wal.CurrentIndex() + 1
	if err := j.wal.Write(nextIndex, key, payload); err != nil {
		return errors.Wrap(err, "write vault transaction")
	}
	return nil
}
