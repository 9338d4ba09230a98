package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/concordium/ccdscan-go/internal/logger"
	"github.com/concordium/ccdscan-go/internal/store"
)

// Committer is the §4.3 commit pipeline: it applies one batch of
// PreparedBlocks to the store inside a single transaction, mutating only a
// clone of its running BlockProcessingContext so a rolled-back batch never
// corrupts the context a retried batch would otherwise see.
type Committer struct {
	st    *store.Store
	log   logger.Logger
	state *BlockProcessingContext
}

// NewCommitter builds a Committer starting from initial, normally read back
// from the store at startup (the context derived from the last committed
// block, or the zero value for a fresh chain).
func NewCommitter(st *store.Store, initial *BlockProcessingContext, log logger.Logger) *Committer {
	if initial == nil {
		initial = &BlockProcessingContext{}
	}
	return &Committer{st: st, log: log, state: initial}
}

// Commit applies batch as one transaction (§4.3 steps 1-7). It is the
// callback Traversal.Run invokes for each contiguous run of prepared
// blocks; a non-nil error here is the step-5 invariant violation or any
// other store failure, and aborts the whole batch.
func (c *Committer) Commit(ctx context.Context, batch []*PreparedBlock) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := c.st.BeginBatch(ctx)
	if err != nil {
		return err
	}

	clone := c.state.Clone()
	if err := c.applyBatch(ctx, tx, clone, batch); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.log.Warningf("indexer: commit: rollback after failed batch at height %d also failed: %v", batch[0].Height, rbErr)
		}
		return fmt.Errorf("indexer: commit batch starting at height %d: %w", batch[0].Height, err)
	}

	for _, b := range batch {
		if _, err := tx.ExecContext(ctx, "SELECT pg_notify('new_block', $1)", fmt.Sprintf("%d", b.Height)); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				c.log.Warningf("indexer: commit: rollback after failed notify at height %d also failed: %v", b.Height, rbErr)
			}
			return fmt.Errorf("indexer: commit batch starting at height %d: %w", batch[0].Height, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("indexer: commit batch starting at height %d: %w", batch[0].Height, err)
	}

	c.state = clone
	c.log.Debugf("indexer: committed %d block(s) up to height %d", len(batch), batch[len(batch)-1].Height)
	return nil
}

// applyBatch is steps 3-6 of §4.3, run inside the open transaction.
func (c *Committer) applyBatch(ctx context.Context, tx *sqlx.Tx, clone *BlockProcessingContext, batch []*PreparedBlock) error {
	if clone.LastBlockSlotTime == nil {
		// First block ever committed: its own slot time stands in for the
		// predecessor's, so block_time is zero (§3 Block: "zero for the
		// genesis block").
		t := batch[0].SlotTime
		clone.LastBlockSlotTime = &t
	}

	rows := make([]store.BlockRow, 0, len(batch))
	cumTx := clone.CumulativeTransactionCount
	for _, b := range batch {
		cumTx += uint64(len(b.Transactions))
		rows = append(rows, store.BlockRow{
			Height:                     b.Height,
			Hash:                       b.Hash,
			SlotTime:                   b.SlotTime,
			BakerID:                    b.BakerID,
			LastFinalized:              b.LastFinalized,
			TotalAmount:                b.TotalAmount,
			TotalStakedAmount:          b.TotalStakedAmount,
			CumulativeTransactionCount: cumTx,
		})
	}

	if err := c.st.InsertBlocks(ctx, tx, rows, clone.LastBlockSlotTime); err != nil {
		return err
	}
	clone.CumulativeTransactionCount = cumTx

	for _, b := range batch {
		for _, pt := range b.Transactions {
			idx, err := c.st.InsertTransaction(ctx, tx, pt.Transaction)
			if err != nil {
				return err
			}
			for _, op := range pt.BuildOps(idx) {
				if err := op.Apply(ctx, tx, c.st); err != nil {
					return err
				}
			}
		}

		for _, op := range b.BlockOps {
			if err := op.Apply(ctx, tx, c.st); err != nil {
				return err
			}
		}

		if b.LastFinalized != clone.LastFinalizedHash {
			finalizedHeight, err := c.st.BlockHeightByHash(ctx, tx, b.LastFinalized)
			if err != nil {
				return err
			}
			startingMs := clone.CumulativeFinalizationTime.Milliseconds()
			newTotalMs, err := c.st.RecordFinalizer(ctx, tx, b.Height, finalizedHeight, startingMs)
			if err != nil {
				return err
			}
			clone.LastFinalizedHash = b.LastFinalized
			clone.CumulativeFinalizationTime = time.Duration(newTotalMs) * time.Millisecond
		}

		if err := c.st.DeleteExpiredScheduledReleases(ctx, tx, b.SlotTime); err != nil {
			return err
		}
	}

	return nil
}

// State returns the committer's current context, for the indexer binary to
// report progress (e.g. the next height to resume traversal from is
// computed by the caller from the last committed block's height, not from
// this context).
func (c *Committer) State() BlockProcessingContext {
	return *c.state
}
