package resolvers

import (
	"context"
	"sync"

	"github.com/concordium/ccdscan-go/internal/types"
)

// blockFeed fans newly committed blocks out to every active onBlock
// subscriber. The API process calls PublishBlock for each block the
// indexer reports committed; its subscription resolvers each hold one subscribe()
// channel for as long as their client stays connected.
type blockFeed struct {
	mu   sync.Mutex
	subs map[chan *types.Block]struct{}
}

func newBlockFeed() *blockFeed {
	return &blockFeed{subs: make(map[chan *types.Block]struct{})}
}

// subscribe registers a new subscriber channel, unregistered automatically
// when ctx is done.
func (f *blockFeed) subscribe(ctx context.Context) <-chan *types.Block {
	ch := make(chan *types.Block, 16)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, ch)
		f.mu.Unlock()
		close(ch)
	}()

	return ch
}

// publish fans b out to every live subscriber, dropping it for any
// subscriber whose channel is currently full rather than blocking the
// notification loop that feeds it on a slow GraphQL client.
func (f *blockFeed) publish(b *types.Block) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- b:
		default:
		}
	}
}
