package store

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jmoiron/sqlx"

	"github.com/concordium/ccdscan-go/internal/types"
)

// InsertTransaction inserts one transaction using the dense-index idiom:
// the new index is computed as COALESCE(MAX(index)+1, 0) inside the
// insert itself, so concurrent callers within the same serialized batch
// never race on the counter (§4.3 step 5). Transactions within one block
// are applied in order by the committer, so no two inserts for the same
// block ever run concurrently.
func (s *Store) InsertTransaction(ctx context.Context, tx *sqlx.Tx, t types.Transaction) (types.TransactionIndex, error) {
	var idx int64
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO transactions (index, hash, block_height, cost_micro_ccd, energy_cost,
			sender_account_index, family, subtype, success, events_json, reject_json)
		VALUES (
			(SELECT COALESCE(MAX(index) + 1, 0) FROM transactions),
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		RETURNING index`,
		t.Hash[:], t.BlockHeight, t.CostMicroCCD.String(), t.EnergyCost,
		t.SenderAccountIndex, t.Family, t.Subtype, t.Success, t.EventsJSON, t.RejectJSON,
	).Scan(&idx)
	if err != nil {
		return 0, fmt.Errorf("store: insert transaction %x: %w", t.Hash, err)
	}
	return types.TransactionIndex(idx), nil
}

// InsertContractRejectTransaction appends a per-contract dense counter row
// for a rejected call against that contract (§8 scenario 2).
func (s *Store) InsertContractRejectTransaction(ctx context.Context, tx *sqlx.Tx, addr types.ContractAddress, txIndex types.TransactionIndex) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO contract_reject_transactions (contract_index, contract_subindex, index, tx_index)
		VALUES ($1, $2,
			(SELECT COALESCE(MAX(index) + 1, 0) FROM contract_reject_transactions
			 WHERE contract_index = $1 AND contract_subindex = $2),
			$3)`,
		addr.Index, addr.SubIndex, txIndex)
	if err != nil {
		return fmt.Errorf("store: insert contract reject transaction for %s: %w", addr, err)
	}
	return nil
}

// TransactionsCount returns count(transactions) = max(index) + 1 (§3
// density invariant), without a table scan.
func (s *Store) TransactionsCount(ctx context.Context) (uint64, error) {
	var max *int64
	if err := s.db.GetContext(ctx, &max, `SELECT MAX(index) FROM transactions`); err != nil {
		return 0, fmt.Errorf("store: transactions count: %w", err)
	}
	if max == nil {
		return 0, nil
	}
	return uint64(*max) + 1, nil
}

// Transaction fetches a transaction by hash.
func (s *Store) Transaction(ctx context.Context, hash [32]byte) (*types.Transaction, error) {
	var row transactionRow
	err := s.db.GetContext(ctx, &row, `
		SELECT index, hash, block_height, cost_micro_ccd, energy_cost,
			sender_account_index, family, subtype, success, events_json, reject_json
		FROM transactions WHERE hash = $1`, hash[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %x", ErrTransactionNotFound, hash)
	}
	return row.toDomain(), nil
}

type transactionRow struct {
	Index              int64   `db:"index"`
	Hash               []byte  `db:"hash"`
	BlockHeight        int64   `db:"block_height"`
	CostMicroCCD       string  `db:"cost_micro_ccd"`
	EnergyCost         int64   `db:"energy_cost"`
	SenderAccountIndex *int64  `db:"sender_account_index"`
	Family             int     `db:"family"`
	Subtype            string  `db:"subtype"`
	Success            bool    `db:"success"`
	EventsJSON         []byte  `db:"events_json"`
	RejectJSON         []byte  `db:"reject_json"`
}

func (r transactionRow) toDomain() *types.Transaction {
	t := &types.Transaction{
		Index:       types.TransactionIndex(r.Index),
		BlockHeight: types.BlockHeight(r.BlockHeight),
		EnergyCost:  uint64(r.EnergyCost),
		Family:      types.TransactionFamily(r.Family),
		Subtype:     r.Subtype,
		Success:     r.Success,
		EventsJSON:  r.EventsJSON,
		RejectJSON:  r.RejectJSON,
	}
	copy(t.Hash[:], r.Hash)
	if cost, ok := new(big.Int).SetString(r.CostMicroCCD, 10); ok {
		t.CostMicroCCD = hexutil.Big(*cost)
	}
	if r.SenderAccountIndex != nil {
		a := types.AccountIndex(*r.SenderAccountIndex)
		t.SenderAccountIndex = &a
	}
	return t
}
