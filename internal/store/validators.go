package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/concordium/ccdscan-go/internal/types"
)

// InsertValidator creates a new validator row, id equal to its owning
// account's index (§3 Validator).
func (s *Store) InsertValidator(ctx context.Context, tx *sqlx.Tx, id types.BakerID, stakedAmount string, restake bool, open types.OpenStatus) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO bakers (id, staked_amount, restake_earnings, open_status,
			transaction_fee_commission, baking_reward_commission, finalization_reward_commission)
		VALUES ($1, $2::NUMERIC, $3, $4, 0, 0, 0)`,
		id, stakedAmount, restake, open)
	if err != nil {
		return fmt.Errorf("store: insert validator %d: %w", id, err)
	}
	return nil
}

// RemoveValidator deletes a validator row. Callers must have already
// moved its delegators to the passive pool (§4.2 rule 4, §8 scenario 4).
func (s *Store) RemoveValidator(ctx context.Context, tx *sqlx.Tx, id types.BakerID) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM bakers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: remove validator %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if err := assertRows(n, 1, 1, fmt.Sprintf("remove validator %d", id)); err != nil {
		return err
	}
	s.cache.InvalidateValidator(id)
	return nil
}

// AdjustPoolStake is the denormalized-sum update every delegator
// stake/target change must also perform (§4.3): when target is nil
// (passive pool) the update is legitimately a no-op, so the assertion
// uses the 0..=1 form.
func (s *Store) AdjustPoolStake(ctx context.Context, tx *sqlx.Tx, target *types.BakerID, stakeDelta string, delegatorCountDelta int) error {
	if target == nil {
		return nil
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE bakers SET pool_total_staked = pool_total_staked + $2::NUMERIC,
			pool_delegator_count = pool_delegator_count + $3
		WHERE id = $1`,
		*target, stakeDelta, delegatorCountDelta)
	if err != nil {
		return fmt.Errorf("store: adjust pool stake for validator %d: %w", *target, err)
	}
	n, _ := res.RowsAffected()
	if err := assertRows(n, 0, 1, fmt.Sprintf("adjust pool stake for validator %d", *target)); err != nil {
		return err
	}
	s.cache.InvalidateValidator(*target)
	return nil
}

// SetCommissionRates updates a validator's three commission fractions.
func (s *Store) SetCommissionRates(ctx context.Context, tx *sqlx.Tx, id types.BakerID, fee, baking, finalization float64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE bakers SET transaction_fee_commission = $2, baking_reward_commission = $3,
			finalization_reward_commission = $4
		WHERE id = $1`, id, fee, baking, finalization)
	if err != nil {
		return fmt.Errorf("store: set commission rates for validator %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if err := assertRows(n, 1, 1, fmt.Sprintf("set commission rates for validator %d", id)); err != nil {
		return err
	}
	s.cache.InvalidateValidator(id)
	return nil
}

// --- suspension state machine (§4.3) ---
//
//   Active --primed_event--> Primed
//   Primed --block-by-baker/QC-signatory--> Active
//   Primed --inactive_suspended_event--> Inactive
//   Active --self_suspended_event--> SelfSuspended
//   SelfSuspended --resumed_event--> Active
//
// All transitions below are single-row updates asserted to affect exactly
// one row.

func (s *Store) SetPrimedForSuspension(ctx context.Context, tx *sqlx.Tx, id types.BakerID, atHeight types.BlockHeight) error {
	return s.suspensionUpdate(ctx, tx, id,
		`UPDATE bakers SET primed_for_suspension_at_height = $2,
			self_suspended_tx_index = NULL, inactive_suspended_at_height = NULL
		 WHERE id = $1`, atHeight)
}

func (s *Store) ClearPrimedForSuspension(ctx context.Context, tx *sqlx.Tx, id types.BakerID) error {
	return s.suspensionUpdate(ctx, tx, id,
		`UPDATE bakers SET primed_for_suspension_at_height = NULL WHERE id = $1`)
}

func (s *Store) SetInactiveSuspended(ctx context.Context, tx *sqlx.Tx, id types.BakerID, atHeight types.BlockHeight) error {
	return s.suspensionUpdate(ctx, tx, id,
		`UPDATE bakers SET inactive_suspended_at_height = $2, primed_for_suspension_at_height = NULL
		 WHERE id = $1`, atHeight)
}

func (s *Store) SetSelfSuspended(ctx context.Context, tx *sqlx.Tx, id types.BakerID, txIndex types.TransactionIndex) error {
	return s.suspensionUpdate(ctx, tx, id,
		`UPDATE bakers SET self_suspended_tx_index = $2 WHERE id = $1`, txIndex)
}

func (s *Store) ClearSuspension(ctx context.Context, tx *sqlx.Tx, id types.BakerID) error {
	return s.suspensionUpdate(ctx, tx, id,
		`UPDATE bakers SET self_suspended_tx_index = NULL, inactive_suspended_at_height = NULL,
			primed_for_suspension_at_height = NULL
		 WHERE id = $1`)
}

func (s *Store) suspensionUpdate(ctx context.Context, tx *sqlx.Tx, id types.BakerID, query string, args ...interface{}) error {
	res, err := tx.ExecContext(ctx, query, append([]interface{}{id}, args...)...)
	if err != nil {
		return fmt.Errorf("store: suspension transition for validator %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if err := assertRows(n, 1, 1, fmt.Sprintf("suspension transition for validator %d", id)); err != nil {
		return err
	}
	s.cache.InvalidateValidator(id)
	return nil
}

// ClearPrimedForSuspensionBulk clears the primed-for-suspension flag on a
// set of validators in one statement: the block's baker and every
// signatory of the block's quorum certificate (§4.2 rule 7). Zero rows
// matching is legal (none of them were primed).
func (s *Store) ClearPrimedForSuspensionBulk(ctx context.Context, tx *sqlx.Tx, ids []types.BakerID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE bakers SET primed_for_suspension_at_height = NULL WHERE id = ANY($1)`, idsToInt64(ids))
	if err != nil {
		return fmt.Errorf("store: bulk-clear primed-for-suspension: %w", err)
	}
	for _, id := range ids {
		s.cache.InvalidateValidator(id)
	}
	return nil
}

func idsToInt64(ids []types.BakerID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

// ReplacePaydaySnapshot fully replaces the commission-rate and
// lottery-power snapshot tables with the given rows; the previous
// snapshot is discarded (§3 Payday snapshot, §4.2 rule 6, §8 scenario 5).
func (s *Store) ReplacePaydaySnapshot(ctx context.Context, tx *sqlx.Tx, height types.BlockHeight, snapshots []types.PaydaySnapshot) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM payday_pool_commission_snapshots`); err != nil {
		return fmt.Errorf("store: clear payday snapshot: %w", err)
	}

	for _, snap := range snapshots {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO payday_pool_commission_snapshots
				(baker_id, payday_block_height, transaction_fee_commission,
				 baking_reward_commission, finalization_reward_commission,
				 lottery_power, effective_stake)
			VALUES ($1, $2, $3, $4, $5, $6, $7::NUMERIC)`,
			snap.BakerID, height, snap.TransactionFee, snap.BakingReward,
			snap.FinalizationReward, snap.LotteryPower, types.DecimalString(snap.EffectiveStake))
		if err != nil {
			return fmt.Errorf("store: insert payday snapshot for validator %d: %w", snap.BakerID, err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE current_chain_parameters SET last_payday_block_height = $1`, height)
	if err != nil {
		return fmt.Errorf("store: advance last payday block height: %w", err)
	}
	n, _ := res.RowsAffected()
	return assertRows(n, 1, 1, "advance last payday block height")
}
