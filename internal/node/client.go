/*
Package node implements the bridge to one or more Concordium full nodes over
gRPC v2 (§6 Upstream).

Mirroring the teacher's rpc.FtmBridge, this package never leaks wire types
past its own boundary: every method returns types from internal/types, not
protobuf messages. Unlike the teacher, a single logical Bridge here fans out
over a configurable list of node endpoints (§4.1) rather than one local IPC
socket, because the indexer must be able to fail an unhealthy node over to
the next.
*/
package node

//go:generate protoc --go_out=./pb --go-grpc_out=./pb -I ./proto concordium/v2/concordium.proto

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/concordium/concordium-go-sdk/v2/pb"

	"github.com/concordium/ccdscan-go/internal/logger"
	"github.com/concordium/ccdscan-go/internal/types"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// EndpointConfig describes one configured node endpoint and its health
// guards (§4.1 Health guards).
type EndpointConfig struct {
	Address        string
	UseTLS         bool
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
	RateLimit      float64 // requests per second
	MaxInFlight    int
}

// Endpoint wraps one dialed connection plus its health-guard state.
type Endpoint struct {
	cfg    EndpointConfig
	conn   *grpc.ClientConn
	client pb.QueriesClient

	limiter  *rate.Limiter
	inFlight chan struct{}

	// failures counts successive failures observed on this endpoint since
	// its last success, for the traversal layer's failover policy (§4.1).
	failures int
}

// Dial connects to the endpoint and verifies the genesis hash matches
// expectedGenesisHash, unless expectedGenesisHash is the zero value (first
// endpoint dialed establishes the expectation for the rest).
func Dial(ctx context.Context, cfg EndpointConfig, expectedGenesisHash *types.BlockHash, log logger.Logger) (*Endpoint, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	var creds credentials.TransportCredentials
	if cfg.UseTLS {
		creds = credentials.NewTLS(&tls.Config{})
	} else {
		creds = insecure.NewCredentials()
	}

	conn, err := grpc.DialContext(dialCtx, cfg.Address,
		grpc.WithTransportCredentials(creds),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("node: dial %s: %w", cfg.Address, err)
	}

	ep := &Endpoint{
		cfg:      cfg,
		conn:     conn,
		client:   pb.NewQueriesClient(conn),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)+1),
		inFlight: make(chan struct{}, cfg.MaxInFlight),
	}

	info, err := ep.consensusInfo(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if expectedGenesisHash != nil && *expectedGenesisHash != (types.BlockHash{}) && info.GenesisHash != *expectedGenesisHash {
		conn.Close()
		log.Errorf("node %s: %v", cfg.Address, ErrWrongNetwork)
		return nil, ErrWrongNetwork
	}

	return ep, nil
}

// Close releases the underlying connection.
func (e *Endpoint) Close() error {
	return e.conn.Close()
}

// acquire applies the rate limiter and in-flight cap, returning a release
// function. It blocks on the rate limiter (Wait), but returns
// ErrRateLimited immediately if the in-flight cap is already saturated --
// matching the "reject rather than queue forever" guidance of §4.1.
func (e *Endpoint) acquire(ctx context.Context) (func(), error) {
	select {
	case e.inFlight <- struct{}{}:
	default:
		return nil, ErrRateLimited
	}
	if err := e.limiter.Wait(ctx); err != nil {
		<-e.inFlight
		return nil, err
	}
	return func() { <-e.inFlight }, nil
}

func (e *Endpoint) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.RequestTimeout)
}

// ConsensusInfo is the subset of get_consensus_info used by health checks
// and traversal.
type ConsensusInfo struct {
	GenesisHash            types.BlockHash
	LastFinalizedHeight    types.BlockHeight
	LastFinalizedBlockHash types.BlockHash
	LastFinalizedTime      time.Time
}

func (e *Endpoint) consensusInfo(ctx context.Context) (*ConsensusInfo, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	resp, err := e.client.GetConsensusInfo(cctx, &pb.Empty{})
	if err != nil {
		return nil, fmt.Errorf("node: GetConsensusInfo: %w", err)
	}
	return decodeConsensusInfo(resp), nil
}

// TooFarBehind reports whether the endpoint's last finalized slot time
// trails wall clock by more than maxBehind (§4.1 Health guards).
func (e *Endpoint) TooFarBehind(ctx context.Context, maxBehind time.Duration) (bool, error) {
	info, err := e.consensusInfo(ctx)
	if err != nil {
		return false, err
	}
	return time.Since(info.LastFinalizedTime) > maxBehind, nil
}

// RecordFailure and RecordSuccess track the successive-failure counter the
// traversal layer uses to decide when to move on to the next endpoint
// (§4.1 Failure).
func (e *Endpoint) RecordFailure() int { e.failures++; return e.failures }
func (e *Endpoint) RecordSuccess()     { e.failures = 0 }
func (e *Endpoint) Failures() int      { return e.failures }
