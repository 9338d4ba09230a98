// Command indexer runs the traversal/preprocess/commit pipeline of §4: it
// follows a Concordium node's finalized blocks and maintains the derived
// state tables the API server reads.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/concordium/ccdscan-go/internal/config"
	"github.com/concordium/ccdscan-go/internal/indexer"
	"github.com/concordium/ccdscan-go/internal/logger"
	"github.com/concordium/ccdscan-go/internal/node"
	"github.com/concordium/ccdscan-go/internal/store"
	"github.com/concordium/ccdscan-go/internal/types"
)

func main() {
	fs := pflag.NewFlagSet("indexer", pflag.ExitOnError)
	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logger.New("indexer", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.PostgresDSN, log.Module("store"))
	if err != nil {
		log.Critical(err)
		os.Exit(1)
	}
	defer st.Close()

	pool, err := node.NewPool(ctx, endpointConfigs(cfg), log.Module("node"))
	if err != nil {
		log.Critical(err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Migrate {
		if err := st.Migrate(ctx, pool, log.Module("migrations")); err != nil {
			log.Critical(err)
			os.Exit(1)
		}
	} else if err := st.RequireUpToDate(ctx); err != nil {
		log.Critical(err)
		os.Exit(1)
	}

	startHeight, state, err := resume(ctx, st, log)
	if err != nil {
		log.Critical(err)
		os.Exit(1)
	}

	committer := indexer.NewCommitter(st, state, log.Module("committer"))
	traversal := indexer.NewTraversal(pool,
		cfg.MaxParallelBlockPreprocessors,
		cfg.MaxProcessingBatch,
		cfg.MaxSuccessiveFailures,
		cfg.NodeMaxBehind,
		log.Module("traversal"))

	log.Noticef("indexer: starting traversal at height %d against %d endpoint(s)", startHeight, pool.Len())
	if err := traversal.Run(ctx, startHeight, committer.Commit); err != nil {
		log.Critical(err)
		os.Exit(1)
	}
	log.Notice("indexer: shutting down")
}

// resume reads back the last committed block so traversal picks up at
// last_indexed_height + 1 instead of replaying the chain (§4.1).
func resume(ctx context.Context, st *store.Store, log logger.Logger) (types.BlockHeight, *indexer.BlockProcessingContext, error) {
	height, found, cumTx, slotTime, cumFinalMs, err := st.LatestProcessingState(ctx)
	if err != nil {
		return 0, nil, err
	}
	if !found {
		log.Notice("indexer: empty chain, starting at height 0")
		return 0, &indexer.BlockProcessingContext{}, nil
	}

	t := slotTime
	state := &indexer.BlockProcessingContext{
		LastBlockSlotTime:          &t,
		CumulativeTransactionCount: cumTx,
		CumulativeFinalizationTime: time.Duration(cumFinalMs) * time.Millisecond,
	}
	log.Noticef("indexer: resuming at height %d", height+1)
	return height + 1, state, nil
}

func endpointConfigs(cfg *config.Config) []node.EndpointConfig {
	out := make([]node.EndpointConfig, 0, len(cfg.NodeEndpoints))
	for _, raw := range cfg.NodeEndpoints {
		addr := raw
		useTLS := false
		if strings.HasPrefix(addr, "tls://") {
			useTLS = true
			addr = strings.TrimPrefix(addr, "tls://")
		}
		out = append(out, node.EndpointConfig{
			Address:        addr,
			UseTLS:         useTLS,
			RequestTimeout: cfg.NodeRequestTimeout,
			ConnectTimeout: cfg.NodeConnectTimeout,
			RateLimit:      cfg.NodeRequestRateLimit,
			MaxInFlight:    cfg.NodeRequestConcurrencyLimit,
		})
	}
	return out
}
