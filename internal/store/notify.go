package store

import (
	"context"
	"strconv"

	"github.com/concordium/ccdscan-go/internal/types"
)

// ListenNewBlocks subscribes to the new_block channel the committer notifies
// on at the end of every committed transaction (internal/indexer/commit.go),
// and returns a channel of block heights as they are committed. Since
// Postgres only delivers a transactional NOTIFY once its transaction
// commits, a height read off this channel is always already visible to a
// subsequent query on the same connection pool.
//
// The returned channel is closed, and the underlying connection released,
// when ctx is done.
func (s *Store) ListenNewBlocks(ctx context.Context) (<-chan types.BlockHeight, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(ctx, "LISTEN new_block"); err != nil {
		conn.Release()
		return nil, err
	}

	heights := make(chan types.BlockHeight, 16)
	go func() {
		defer conn.Release()
		defer close(heights)
		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				return
			}
			h, err := strconv.ParseUint(notification.Payload, 10, 64)
			if err != nil {
				s.log.Warningf("store: listen new_block: bad payload %q: %v", notification.Payload, err)
				continue
			}
			select {
			case heights <- types.BlockHeight(h):
			case <-ctx.Done():
				return
			}
		}
	}()

	return heights, nil
}
