package indexer

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/concordium/ccdscan-go/internal/store"
	"github.com/concordium/ccdscan-go/internal/types"
)

// transferOps expands a simple account-to-account transfer into balance
// changes and statements on both sides (§3 Transaction, §4.2).
func transferOps(blockHeight types.BlockHeight, idx types.TransactionIndex, t *transferEffect) []Operation {
	return []Operation{
		balanceChangeWithTxOp(t.from, blockHeight, idx, types.StatementTransferOut, "-"+t.amount),
		balanceChangeWithTxOp(t.to, blockHeight, idx, types.StatementTransferIn, t.amount),
	}
}

// scheduledTransferOps expands a scheduled transfer: the sender's balance
// moves immediately (it is locked, not spent by the recipient, but is no
// longer the sender's to use), and each release is recorded for the sweep
// in commit.go step 6 to later collect.
func scheduledTransferOps(blockHeight types.BlockHeight, idx types.TransactionIndex, t *scheduledTransferEffect) []Operation {
	var total string
	for _, r := range t.releases {
		total = addDecimal(total, types.DecimalString(r.Amount))
	}

	ops := []Operation{
		balanceChangeWithTxOp(t.from, blockHeight, idx, types.StatementScheduledReleaseOut, "-"+total),
	}
	for _, r := range t.releases {
		r := r
		ops = append(ops, OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
			return st.InsertScheduledRelease(ctx, tx, t.to, idx, msToTime(r.ReleaseTime), types.DecimalString(r.Amount))
		}))
	}
	return ops
}

// delegationRestakeOp expands a restake-earnings flag change (§3 Account
// invariant: the flag is nil iff the account does not delegate).
func delegationRestakeOp(account types.AccountIndex, restake bool) Operation {
	return OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
		return st.SetDelegationRestakeEarnings(ctx, tx, account, &restake)
	})
}

// bakerConfigureOps expands a baker-configure transaction: validator
// creation, commission changes, and the self-suspend/resume pair.
func bakerConfigureOps(idx types.TransactionIndex, c *bakerConfigureEffect) []Operation {
	var ops []Operation

	if c.isNew {
		ops = append(ops, OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
			return st.InsertValidator(ctx, tx, c.id, c.stake, c.restake, c.openStatus)
		}))
	}

	if c.feeCommission != nil || c.bakingRewardCommission != nil || c.finalizationCommission != nil {
		fee, baking, final := derefOr(c.feeCommission, 0), derefOr(c.bakingRewardCommission, 0), derefOr(c.finalizationCommission, 0)
		ops = append(ops, OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
			return st.SetCommissionRates(ctx, tx, c.id, fee, baking, final)
		}))
	}

	if c.suspend {
		ops = append(ops, OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
			return st.SetSelfSuspended(ctx, tx, c.id, idx)
		}))
	}
	if c.resume {
		ops = append(ops, OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
			return st.ClearSuspension(ctx, tx, c.id)
		}))
	}

	return ops
}

// contractInitOps expands a successful contract-init transaction: the new
// contract row plus its founding module link (§3 Smart-contract module:
// append-only linkage list; its first row is the init).
func contractInitOps(idx types.TransactionIndex, c *contractInitEffect) []Operation {
	return []Operation{
		OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
			return st.InsertContract(ctx, tx, c.address, c.module, c.initName, idx)
		}),
		OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
			return st.AppendModuleLink(ctx, tx, c.module, c.address, types.LinkAdded, idx)
		}),
	}
}

func moduleDeployedOp(idx types.TransactionIndex, m *moduleDeployedEffect) Operation {
	return OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
		return st.InsertModule(ctx, tx, m.ref, m.schema, idx)
	})
}

func derefOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
