// Package indexer implements the traversal/preprocess/commit pipeline:
// a pool of node-bound preprocessors turns raw finalized blocks into
// PreparedBlock plans, and a single committer applies batches of those
// plans to internal/store inside one transaction each.
package indexer

import (
	"time"

	"github.com/concordium/ccdscan-go/internal/types"
)

// BlockProcessingContext is the small piece of cross-block state the
// committer must carry forward between batches: the last finalized hash,
// the previous block's slot time (to compute the next block_time), and
// the cumulative counters used by window aggregates. It is cloned per
// batch and mutated only on the clone, the same copy-on-write discipline
// the teacher's miner environment.copy() uses around its own in-flight
// working state.
type BlockProcessingContext struct {
	LastFinalizedHash          types.BlockHash
	LastBlockSlotTime          *time.Time
	CumulativeTransactionCount uint64
	CumulativeFinalizationTime time.Duration
}

// Clone returns a deep-enough copy for a batch attempt: the only
// reference field is LastBlockSlotTime, copied by value through a fresh
// pointer so the clone's mutations never alias the original.
func (c *BlockProcessingContext) Clone() *BlockProcessingContext {
	clone := *c
	if c.LastBlockSlotTime != nil {
		t := *c.LastBlockSlotTime
		clone.LastBlockSlotTime = &t
	}
	return &clone
}
