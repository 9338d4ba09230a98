package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/concordium/ccdscan-go/internal/types"
)

// BlockRow is one row to insert for a block, computed by the preprocessor
// and handed to the committer unchanged (§4.2, §4.3 step 3).
type BlockRow struct {
	Height                     types.BlockHeight
	Hash                       types.BlockHash
	SlotTime                   time.Time
	BakerID                    *types.BakerID
	LastFinalized              types.BlockHash
	TotalAmount                string // numeric literal, pre-formatted by the preprocessor
	TotalStakedAmount          string
	CumulativeTransactionCount uint64
}

// InsertBlocks bulk-inserts a batch's block rows using one array-valued
// INSERT, and computes each row's block_time as slot_time - prev_slot_time
// against the running context (§4.3 step 3). prevSlotTime is the context's
// last block slot time going into this batch; it is updated in place as
// rows are consumed, mirroring the committer's "mutate the clone" rule.
func (s *Store) InsertBlocks(ctx context.Context, tx *sqlx.Tx, rows []BlockRow, prevSlotTime *time.Time) error {
	if len(rows) == 0 {
		return nil
	}

	heights := make([]int64, len(rows))
	hashes := make([][]byte, len(rows))
	slotTimes := make([]time.Time, len(rows))
	bakers := make([]*int64, len(rows))
	blockTimesMs := make([]int64, len(rows))
	totalAmounts := make([]string, len(rows))
	totalStaked := make([]string, len(rows))
	cumTxCounts := make([]int64, len(rows))

	for i, r := range rows {
		heights[i] = int64(r.Height)
		h := r.Hash
		hashes[i] = h[:]
		slotTimes[i] = r.SlotTime

		if r.BakerID != nil {
			v := int64(*r.BakerID)
			bakers[i] = &v
		}

		blockTimesMs[i] = r.SlotTime.Sub(*prevSlotTime).Milliseconds()
		*prevSlotTime = r.SlotTime

		totalAmounts[i] = r.TotalAmount
		totalStaked[i] = r.TotalStakedAmount
		cumTxCounts[i] = int64(r.CumulativeTransactionCount)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO blocks (height, hash, slot_time, block_time_ms, baker_id,
			cumulative_transaction_count, cumulative_finalization_time_ms,
			total_amount, total_staked_amount)
		SELECT * FROM UNNEST(
			$1::BIGINT[], $2::BYTEA[], $3::TIMESTAMPTZ[], $4::BIGINT[], $5::BIGINT[],
			$6::BIGINT[], $7::BIGINT[], $8::NUMERIC[], $9::NUMERIC[]
		)`,
		pq.Array(heights), pq.Array(hashes), pq.Array(slotTimes), pq.Array(blockTimesMs), pq.Array(bakers),
		pq.Array(cumTxCounts), pq.Array(zeros(len(rows))), pq.Array(totalAmounts), pq.Array(totalStaked))
	if err != nil {
		return fmt.Errorf("store: insert blocks: %w", err)
	}
	return nil
}

// RecordFinalizer records that blockHeight's last_finalized pointer
// referenced finalizedUpTo; if it differs from the live context's
// last_finalized_hash, a finalizer row is implied (§4.3 step 4). Call only
// for blocks whose last_finalized changed. startingCumulativeMs is the
// running context's cumulative finalization time going into this call, so
// the window aggregate continues across batches instead of restarting at
// zero; it returns the new running total for the committer to carry
// forward onto its context clone.
func (s *Store) RecordFinalizer(ctx context.Context, tx *sqlx.Tx, finalizerHeight types.BlockHeight, finalizedUpTo types.BlockHeight, startingCumulativeMs int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE blocks SET finalization_time_ms = EXTRACT(EPOCH FROM (
				(SELECT slot_time FROM blocks WHERE height = $1) - blocks.slot_time
			)) * 1000,
			finalized_by = $1
		WHERE height <= $2 AND finalization_time_ms IS NULL`,
		finalizerHeight, finalizedUpTo)
	if err != nil {
		return 0, fmt.Errorf("store: record finalizer at %d: %w", finalizerHeight, err)
	}
	n, _ := res.RowsAffected()
	if err := assertRows(n, 0, int64(finalizedUpTo)+1, "record finalizer"); err != nil {
		return 0, err
	}
	return s.advanceCumulativeFinalizationTime(ctx, tx, finalizerHeight, finalizedUpTo, startingCumulativeMs)
}

// advanceCumulativeFinalizationTime updates cumulative_finalization_time
// for every newly finalized row (those RecordFinalizer just marked as
// finalized by finalizerHeight) in height order, as a window aggregate
// starting from startingMs (the preceding batch's running total, §4.3
// step 4), and returns the new total.
func (s *Store) advanceCumulativeFinalizationTime(ctx context.Context, tx *sqlx.Tx, finalizerHeight, upTo types.BlockHeight, startingMs int64) (int64, error) {
	var newTotal int64
	err := tx.QueryRowxContext(ctx, `
		WITH ordered AS (
			SELECT height, finalization_time_ms,
				$2::BIGINT + SUM(finalization_time_ms) OVER (ORDER BY height) AS running
			FROM blocks
			WHERE height <= $1 AND finalized_by = $3
		),
		updated AS (
			UPDATE blocks b
			SET cumulative_finalization_time_ms = ordered.running
			FROM ordered
			WHERE b.height = ordered.height
			RETURNING b.height, b.cumulative_finalization_time_ms
		)
		SELECT COALESCE(MAX(cumulative_finalization_time_ms), $2) FROM updated`,
		upTo, startingMs, finalizerHeight).Scan(&newTotal)
	if err != nil {
		return 0, fmt.Errorf("store: advance cumulative finalization time up to %d: %w", upTo, err)
	}
	return newTotal, nil
}

// DeleteExpiredScheduledReleases sweeps every scheduled release with
// release_time <= slotTime, regardless of whether the current block's own
// transactions add new ones -- new additions happen before the sweep
// (§4.3 step 6, §8 scenario 6).
func (s *Store) DeleteExpiredScheduledReleases(ctx context.Context, tx *sqlx.Tx, slotTime time.Time) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM scheduled_releases WHERE release_time <= $1`, slotTime)
	if err != nil {
		return fmt.Errorf("store: sweep expired scheduled releases: %w", err)
	}
	return nil
}

// LatestProcessingState reads back the last committed block's height and
// running counters, letting the indexer binary resume traversal at
// last_indexed_height + 1 and seed a fresh BlockProcessingContext without
// replaying history (§4.1). found is false for an empty chain, in which
// case the caller starts from height 0 with a zero-value context.
//
// The returned context's LastFinalizedHash is left at its zero value: the
// real value is only needed to skip a redundant RecordFinalizer call, and
// that call is already a no-op (assertRows(0, n) is satisfied) when every
// row at or below the referenced height is already finalized.
func (s *Store) LatestProcessingState(ctx context.Context) (height types.BlockHeight, found bool, cumulativeTxCount uint64, slotTime time.Time, cumulativeFinalizationMs int64, err error) {
	var row struct {
		Height                     int64     `db:"height"`
		SlotTime                   time.Time `db:"slot_time"`
		CumulativeTransactionCount int64     `db:"cumulative_transaction_count"`
		CumulativeFinalizationTime int64     `db:"cumulative_finalization_time_ms"`
	}
	err = s.db.GetContext(ctx, &row, `
		SELECT height, slot_time, cumulative_transaction_count, cumulative_finalization_time_ms
		FROM blocks ORDER BY height DESC LIMIT 1`)
	if err == sql.ErrNoRows {
		return 0, false, 0, time.Time{}, 0, nil
	}
	if err != nil {
		return 0, false, 0, time.Time{}, 0, fmt.Errorf("store: latest processing state: %w", err)
	}
	return types.BlockHeight(row.Height), true, uint64(row.CumulativeTransactionCount), row.SlotTime, row.CumulativeFinalizationTime, nil
}

// BlockHeightByHash resolves a finalization pointer's target height within
// the committer's own transaction, so RecordFinalizer can be called with
// the height it expects (§4.3 step 4).
func (s *Store) BlockHeightByHash(ctx context.Context, tx *sqlx.Tx, hash types.BlockHash) (types.BlockHeight, error) {
	var height int64
	err := tx.QueryRowxContext(ctx, `SELECT height FROM blocks WHERE hash = $1`, hash[:]).Scan(&height)
	if err != nil {
		return 0, fmt.Errorf("%w: %x", ErrBlockNotFound, hash)
	}
	return types.BlockHeight(height), nil
}

func zeros(n int) []int64 { return make([]int64, n) }
