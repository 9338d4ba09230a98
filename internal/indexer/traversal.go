package indexer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/concordium/ccdscan-go/internal/logger"
	"github.com/concordium/ccdscan-go/internal/node"
	"github.com/concordium/ccdscan-go/internal/types"
)

// Traversal runs the outer loop of §4.1: up to maxParallel preprocessor
// tasks pull heights from a shared cursor, each running preprocess against
// whatever endpoint the pool currently judges healthiest. Their results are
// reordered back into strict ascending height order and handed to the
// committer in batches of at most maxBatch.
type Traversal struct {
	pool *node.Pool
	log  logger.Logger

	maxParallel           int
	maxBatch              int
	maxSuccessiveFailures int
	maxBehind             time.Duration
}

// NewTraversal builds a Traversal bound to an endpoint pool. maxBehind is
// the node_max_behind health guard passed to every Pool.Acquire call.
func NewTraversal(pool *node.Pool, maxParallel, maxBatch, maxSuccessiveFailures int, maxBehind time.Duration, log logger.Logger) *Traversal {
	return &Traversal{
		pool:                  pool,
		log:                   log,
		maxParallel:           maxParallel,
		maxBatch:              maxBatch,
		maxSuccessiveFailures: maxSuccessiveFailures,
		maxBehind:             maxBehind,
	}
}

type blockResult struct {
	height types.BlockHeight
	block  *PreparedBlock
}

// Run streams PreparedBlocks starting at startHeight into batches of at
// most t.maxBatch, passing each batch to commit in order. It returns when
// ctx is cancelled (nil error) or when t.maxSuccessiveFailures is reached
// without any height making progress (§4.1 Failure).
func (t *Traversal) Run(ctx context.Context, startHeight types.BlockHeight, commit func(ctx context.Context, batch []*PreparedBlock) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	work := make(chan types.BlockHeight, t.maxParallel)
	retry := make(chan types.BlockHeight, t.maxParallel)
	results := make(chan blockResult, t.maxBatch)

	var successiveFailures int32

	g, gctx := errgroup.WithContext(ctx)

	// dispatcher: hands out the next unassigned height, giving retried
	// heights priority over fresh ones so a flaky endpoint never starves a
	// height that is already behind.
	g.Go(func() error {
		next := startHeight
		for {
			select {
			case h := <-retry:
				select {
				case work <- h:
				case <-gctx.Done():
					return nil
				}
				continue
			default:
			}

			select {
			case h := <-retry:
				select {
				case work <- h:
				case <-gctx.Done():
					return nil
				}
			case work <- next:
				next++
			case <-gctx.Done():
				return nil
			}
		}
	})

	for i := 0; i < t.maxParallel; i++ {
		g.Go(func() error {
			for {
				var height types.BlockHeight
				select {
				case height = <-work:
				case <-gctx.Done():
					return nil
				}

				block, err := t.preprocessOne(gctx, height)
				if err != nil {
					n := atomic.AddInt32(&successiveFailures, 1)
					if int(n) >= t.maxSuccessiveFailures {
						return fmt.Errorf("indexer: traversal: %d successive failures without progress, last at height %d: %w", n, height, err)
					}
					t.log.Warningf("indexer: traversal: preprocess %d failed, requeueing: %v", height, err)
					select {
					case retry <- height:
					case <-gctx.Done():
						return nil
					}
					continue
				}
				atomic.StoreInt32(&successiveFailures, 0)

				select {
				case results <- blockResult{height: height, block: block}:
				case <-gctx.Done():
					return nil
				}
			}
		})
	}

	g.Go(func() error {
		err := t.reorderAndCommit(gctx, startHeight, results, commit)
		cancel()
		return err
	})

	return g.Wait()
}

func (t *Traversal) preprocessOne(ctx context.Context, height types.BlockHeight) (*PreparedBlock, error) {
	ep, err := t.pool.Acquire(ctx, t.maxBehind)
	if err != nil {
		return nil, fmt.Errorf("acquire endpoint: %w", err)
	}

	block, err := preprocess(ctx, ep, height)
	if err != nil {
		ep.RecordFailure()
		const perEndpointFailureBudget = 5
		if ep.Failures() >= perEndpointFailureBudget {
			t.pool.Exclude(ep)
		}
		return nil, err
	}
	ep.RecordSuccess()
	return block, nil
}

// reorderAndCommit is the priority reorder buffer of §4.1: it holds
// out-of-order arrivals in a map keyed by height and releases a
// contiguous run starting at the next expected height into a batch of at
// most t.maxBatch, as soon as either the batch is full or no further
// contiguous progress is currently possible.
func (t *Traversal) reorderAndCommit(ctx context.Context, startHeight types.BlockHeight, results <-chan blockResult, commit func(context.Context, []*PreparedBlock) error) error {
	pending := map[types.BlockHeight]*PreparedBlock{}
	next := startHeight
	var batch []*PreparedBlock

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := commit(ctx, batch)
		batch = batch[:0]
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return flush()
		case r, ok := <-results:
			if !ok {
				return flush()
			}

			pending[r.height] = r.block
			for {
				b, ok := pending[next]
				if !ok {
					break
				}
				batch = append(batch, b)
				delete(pending, next)
				next++
				if len(batch) >= t.maxBatch {
					if err := flush(); err != nil {
						return err
					}
				}
			}

			if err := flush(); err != nil {
				return err
			}
		}
	}
}
