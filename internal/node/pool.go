package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/concordium/ccdscan-go/internal/logger"
	"github.com/concordium/ccdscan-go/internal/types"
)

// Pool manages a list of configured endpoints and hands out a healthy one
// to each preprocessor task, implementing the failover policy of §4.1:
// a preprocessor failure increments that endpoint's counter and the
// traversal layer moves the task to the next endpoint.
type Pool struct {
	mu        sync.Mutex
	endpoints []*Endpoint
	next      int

	genesisHash types.BlockHash
	log         logger.Logger
}

// NewPool dials every configured endpoint, establishing the first
// successfully dialed endpoint's genesis hash as the expected network for
// the rest.
func NewPool(ctx context.Context, cfgs []EndpointConfig, log logger.Logger) (*Pool, error) {
	p := &Pool{log: log}

	for _, cfg := range cfgs {
		var expected *types.BlockHash
		if p.genesisHash != (types.BlockHash{}) {
			expected = &p.genesisHash
		}

		ep, err := Dial(ctx, cfg, expected, log)
		if err != nil {
			log.Warningf("node pool: skipping endpoint %s: %v", cfg.Address, err)
			continue
		}

		if p.genesisHash == (types.BlockHash{}) {
			info, infoErr := ep.consensusInfo(ctx)
			if infoErr == nil {
				p.genesisHash = info.GenesisHash
			}
		}

		p.endpoints = append(p.endpoints, ep)
	}

	if len(p.endpoints) == 0 {
		return nil, fmt.Errorf("node pool: %w", ErrNoHealthyEndpoint)
	}
	return p, nil
}

// Acquire returns the next endpoint in round-robin order, skipping any
// that report TooFarBehind against maxBehind (§4.1 Health guards: "pushing
// load to a healthier peer"). A maxBehind of zero or less skips that
// check.
func (p *Pool) Acquire(ctx context.Context, maxBehind time.Duration) (*Endpoint, error) {
	p.mu.Lock()
	endpoints := make([]*Endpoint, len(p.endpoints))
	copy(endpoints, p.endpoints)
	start := p.next
	p.mu.Unlock()

	n := len(endpoints)
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		ep := endpoints[idx]

		if maxBehind > 0 {
			behind, err := ep.TooFarBehind(ctx, maxBehind)
			if err != nil || behind {
				continue
			}
		}

		p.mu.Lock()
		p.next = (idx + 1) % n
		p.mu.Unlock()
		return ep, nil
	}
	return nil, ErrNoHealthyEndpoint
}

// Exclude removes an endpoint from rotation after it has exceeded its
// local failure budget (the traversal layer still tracks the aggregate
// successive-failure count K across all endpoints separately).
func (p *Pool) Exclude(ep *Endpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, e := range p.endpoints {
		if e == ep {
			p.endpoints = append(p.endpoints[:i], p.endpoints[i+1:]...)
			p.log.Warningf("node pool: excluded endpoint %s after repeated failures", e.cfg.Address)
			break
		}
	}
}

// Len reports the number of endpoints currently in rotation.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}

// Close closes every endpoint connection.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ep := range p.endpoints {
		_ = ep.Close()
	}
}

// GenesisHash returns the network's genesis hash as established by the
// first successfully dialed endpoint.
func (p *Pool) GenesisHash() types.BlockHash { return p.genesisHash }
