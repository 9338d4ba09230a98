package indexer

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/concordium/ccdscan-go/internal/store"
	"github.com/concordium/ccdscan-go/internal/types"
)

// The constructors below build the common Operation shapes preprocess.go
// assembles into PreparedBlock/PreparedTransaction plans. Keeping them
// here lets preprocess.go read as a sequence of "what happened" decisions
// rather than inline SQL-call plumbing.

// balanceChangeOp applies a signed balance delta and its account
// statement together, in the order the committer must preserve: balance
// first, so the statement's balance_after reflects the new total (§4.3
// ordering rule). A zero delta is the caller's responsibility to skip
// entirely (§4.2 rule 5).
func balanceChangeOp(account types.AccountIndex, blockHeight types.BlockHeight, entryType types.StatementEntryType, deltaMicroCCD string) Operation {
	return OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
		if err := st.AdjustBalance(ctx, tx, account, deltaMicroCCD); err != nil {
			return err
		}
		return st.InsertStatement(ctx, tx, account, blockHeight, nil, entryType, deltaMicroCCD)
	})
}

// balanceChangeWithTxOp is balanceChangeOp for a balance change caused by
// a specific transaction (transfers, fees), recording txIndex on the
// statement row.
func balanceChangeWithTxOp(account types.AccountIndex, blockHeight types.BlockHeight, txIndex types.TransactionIndex, entryType types.StatementEntryType, deltaMicroCCD string) Operation {
	return OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
		if err := st.AdjustBalance(ctx, tx, account, deltaMicroCCD); err != nil {
			return err
		}
		return st.InsertStatement(ctx, tx, account, blockHeight, &txIndex, entryType, deltaMicroCCD)
	})
}

// retargetDelegationOp expands one delegation-target change into the
// paired account-row update and the corresponding pool's denormalized sum
// update (§4.3 "validator pool stake is a denormalized sum").
func retargetDelegationOp(account types.AccountIndex, oldTarget, newTarget *types.BakerID, stake string) []Operation {
	return []Operation{
		OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
			return st.SetDelegationTarget(ctx, tx, account, newTarget)
		}),
		OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
			return st.AdjustPoolStake(ctx, tx, oldTarget, "-"+stake, -1)
		}),
		OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
			return st.AdjustPoolStake(ctx, tx, newTarget, stake, 1)
		}),
	}
}

// restakeDelegationStakeOp expands a delegated-stake-amount change (a
// separate event from retargeting, §8 scenario 3) into the account row
// update and the pool sum delta.
func restakeDelegationStakeOp(account types.AccountIndex, target *types.BakerID, newStake, stakeDelta string) []Operation {
	return []Operation{
		OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
			return st.SetDelegatedStake(ctx, tx, account, newStake)
		}),
		OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
			return st.AdjustPoolStake(ctx, tx, target, stakeDelta, 0)
		}),
	}
}

// removeValidatorOps expands a BakerRemoved event: move its delegators to
// the passive pool, then remove the validator row (§4.2 rule 4, §8
// scenario 4). The delegator move must run first -- deleting the
// validator row first would leave delegator rows pointing at a baker id
// that no longer exists.
func removeValidatorOps(id types.BakerID) []Operation {
	return []Operation{
		OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
			_, err := st.MoveDelegatorsToPassivePool(ctx, tx, id)
			return err
		}),
		OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
			return st.RemoveValidator(ctx, tx, id)
		}),
	}
}

// clearPrimedForSuspensionOp clears the primed flag on the block's own
// baker and every quorum-certificate signatory (§4.2 rule 7).
func clearPrimedForSuspensionOp(ids []types.BakerID) Operation {
	return OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
		return st.ClearPrimedForSuspensionBulk(ctx, tx, ids)
	})
}

// replacePaydaySnapshotOp performs the full snapshot-table replace for a
// payday block (§4.2 rule 6, §8 scenario 5).
func replacePaydaySnapshotOp(height types.BlockHeight, snapshots []types.PaydaySnapshot) Operation {
	return OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
		return st.ReplacePaydaySnapshot(ctx, tx, height, snapshots)
	})
}
