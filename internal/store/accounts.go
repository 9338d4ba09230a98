package store

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jmoiron/sqlx"

	"github.com/concordium/ccdscan-go/internal/types"
)

// InsertAccount creates a new dense-indexed account row (§3 Account).
func (s *Store) InsertAccount(ctx context.Context, tx *sqlx.Tx, addr types.CanonicalAddress, address types.AccountAddress, createdBy *types.TransactionIndex) (types.AccountIndex, error) {
	var idx int64
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO accounts (index, canonical_address, address, amount, created_by_tx_index)
		VALUES ((SELECT COALESCE(MAX(index) + 1, 0) FROM accounts), $1, $2, 0, $3)
		RETURNING index`,
		addr[:], string(address), createdBy,
	).Scan(&idx)
	if err != nil {
		return 0, fmt.Errorf("store: insert account %s: %w", address, err)
	}
	return types.AccountIndex(idx), nil
}

// AdjustBalance applies a signed delta to an account's balance and bumps
// its transaction-affecting counter, asserting exactly one row is
// affected -- the update targets a primary key so it can never hit zero or
// more than one row (§4.3 step 5).
func (s *Store) AdjustBalance(ctx context.Context, tx *sqlx.Tx, idx types.AccountIndex, deltaMicroCCD string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts SET amount = amount + $2::NUMERIC, num_txs = num_txs + 1
		WHERE index = $1`, idx, deltaMicroCCD)
	if err != nil {
		return fmt.Errorf("store: adjust balance for account %d: %w", idx, err)
	}
	n, _ := res.RowsAffected()
	return assertRows(n, 1, 1, fmt.Sprintf("adjust balance for account %d", idx))
}

// InsertStatement appends one account-statement row. Callers must call
// this only after the corresponding AdjustBalance so balance_after
// reflects the post-event balance (§4.3 "ordering and monotonicity
// rules"). A zero-delta balance change must not call this at all (§4.2
// rule 5).
func (s *Store) InsertStatement(ctx context.Context, tx *sqlx.Tx, idx types.AccountIndex, blockHeight types.BlockHeight, txIndex *types.TransactionIndex, entryType types.StatementEntryType, deltaMicroCCD string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO account_statements (account_index, index, block_height, tx_index, entry_type, amount, balance_after)
		VALUES ($1,
			(SELECT COALESCE(MAX(index) + 1, 0) FROM account_statements WHERE account_index = $1),
			$2, $3, $4, $5::NUMERIC,
			(SELECT amount FROM accounts WHERE index = $1))`,
		idx, blockHeight, txIndex, entryType, deltaMicroCCD)
	if err != nil {
		return fmt.Errorf("store: insert statement for account %d: %w", idx, err)
	}
	return nil
}

// SetDelegationTarget retargets an account's delegation, or clears it when
// target is nil (passive pool). The update is asserted to affect exactly
// one row; there is no relaxed form for an account that does not exist.
func (s *Store) SetDelegationTarget(ctx context.Context, tx *sqlx.Tx, idx types.AccountIndex, target *types.BakerID) error {
	res, err := tx.ExecContext(ctx, `UPDATE accounts SET delegated_target_baker_id = $2 WHERE index = $1`, idx, target)
	if err != nil {
		return fmt.Errorf("store: set delegation target for account %d: %w", idx, err)
	}
	n, _ := res.RowsAffected()
	return assertRows(n, 1, 1, fmt.Sprintf("set delegation target for account %d", idx))
}

// SetDelegationRestakeEarnings sets or clears the restake-earnings flag.
// nil means the account is not currently delegating (§3 Account
// invariant).
func (s *Store) SetDelegationRestakeEarnings(ctx context.Context, tx *sqlx.Tx, idx types.AccountIndex, restake *bool) error {
	res, err := tx.ExecContext(ctx, `UPDATE accounts SET delegated_restake_earnings = $2 WHERE index = $1`, idx, restake)
	if err != nil {
		return fmt.Errorf("store: set delegation restake flag for account %d: %w", idx, err)
	}
	n, _ := res.RowsAffected()
	return assertRows(n, 1, 1, fmt.Sprintf("set delegation restake flag for account %d", idx))
}

// SetDelegatedStake updates the stake amount an account has delegated;
// stake-amount changes are a separate event from retargeting (§8 scenario
// 3: "D's delegated_stake unchanged -- stake amount is a separate event").
func (s *Store) SetDelegatedStake(ctx context.Context, tx *sqlx.Tx, idx types.AccountIndex, amountMicroCCD string) error {
	res, err := tx.ExecContext(ctx, `UPDATE accounts SET delegated_stake = $2::NUMERIC WHERE index = $1`, idx, amountMicroCCD)
	if err != nil {
		return fmt.Errorf("store: set delegated stake for account %d: %w", idx, err)
	}
	n, _ := res.RowsAffected()
	return assertRows(n, 1, 1, fmt.Sprintf("set delegated stake for account %d", idx))
}

// MoveDelegatorsToPassivePool clears delegated_target_baker_id for every
// account currently targeting bakerID, as the first sub-operation of
// expanding a BakerRemoved event (§4.2 rule 4, §8 scenario 4). The number
// of rows affected is the delegator count and is legitimately unbounded,
// so no row-count assertion applies here.
func (s *Store) MoveDelegatorsToPassivePool(ctx context.Context, tx *sqlx.Tx, bakerID types.BakerID) (int64, error) {
	res, err := tx.ExecContext(ctx, `UPDATE accounts SET delegated_target_baker_id = NULL WHERE delegated_target_baker_id = $1`, bakerID)
	if err != nil {
		return 0, fmt.Errorf("store: move delegators off validator %d: %w", bakerID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// AccountByAddress resolves a canonical account row by its textual
// address.
func (s *Store) AccountByAddress(ctx context.Context, addr types.AccountAddress) (*types.Account, error) {
	var row accountRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM accounts WHERE address = $1`, string(addr)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return row.toDomain(), nil
}

// AccountIndexByCanonical resolves an account's dense index from its
// canonical address, the form CIS-2/PLT event bytes carry on the wire
// (§3 Account: every alias of an account maps to the same
// CanonicalAddress).
func (s *Store) AccountIndexByCanonical(ctx context.Context, tx *sqlx.Tx, addr types.CanonicalAddress) (types.AccountIndex, error) {
	var idx int64
	err := tx.QueryRowxContext(ctx, `SELECT index FROM accounts WHERE canonical_address = $1`, addr[:]).Scan(&idx)
	if err != nil {
		return 0, fmt.Errorf("%w: canonical %x", ErrAccountNotFound, addr)
	}
	return types.AccountIndex(idx), nil
}

// AccountsActive returns the dense count of accounts (§3 density
// invariant: count = max(index) + 1).
func (s *Store) AccountsActive(ctx context.Context) (uint64, error) {
	var max *int64
	if err := s.db.GetContext(ctx, &max, `SELECT MAX(index) FROM accounts`); err != nil {
		return 0, fmt.Errorf("store: accounts active: %w", err)
	}
	if max == nil {
		return 0, nil
	}
	return uint64(*max) + 1, nil
}

type accountRow struct {
	Index                    int64   `db:"index"`
	CanonicalAddress         []byte  `db:"canonical_address"`
	Address                  string  `db:"address"`
	Amount                   string  `db:"amount"`
	NumTxs                   int64   `db:"num_txs"`
	CreatedByTxIndex         *int64  `db:"created_by_tx_index"`
	DelegatedStake           string  `db:"delegated_stake"`
	DelegatedTargetBakerID   *int64  `db:"delegated_target_baker_id"`
	DelegatedRestakeEarnings *bool   `db:"delegated_restake_earnings"`
}

func (r accountRow) toDomain() *types.Account {
	a := &types.Account{
		Index:                     types.AccountIndex(r.Index),
		Address:                   types.AccountAddress(r.Address),
		NumTxs:                    uint64(r.NumTxs),
		DelegationRestakeEarnings: r.DelegatedRestakeEarnings,
	}
	copy(a.CanonicalAddress[:], r.CanonicalAddress)
	if r.CreatedByTxIndex != nil {
		t := types.TransactionIndex(*r.CreatedByTxIndex)
		a.CreatedByTxIndex = &t
	}
	if r.DelegatedTargetBakerID != nil {
		b := types.BakerID(*r.DelegatedTargetBakerID)
		a.DelegatedTargetBakerID = &b
	}
	if amt, ok := new(big.Int).SetString(r.Amount, 10); ok {
		a.Amount = hexutil.Big(*amt)
	}
	if stake, ok := new(big.Int).SetString(r.DelegatedStake, 10); ok {
		a.DelegatedStake = hexutil.Big(*stake)
	}
	return a
}
