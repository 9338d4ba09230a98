// Command api serves the read-only GraphQL query surface of §6 over the
// tables the indexer maintains.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/concordium/ccdscan-go/internal/config"
	"github.com/concordium/ccdscan-go/internal/graphql"
	"github.com/concordium/ccdscan-go/internal/logger"
	"github.com/concordium/ccdscan-go/internal/store"
)

// shutdownGrace bounds how long in-flight requests get to finish before
// the process exits on SIGTERM/SIGINT.
const shutdownGrace = 10 * time.Second

func main() {
	fs := pflag.NewFlagSet("api", pflag.ExitOnError)
	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logger.New("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.PostgresDSN, log.Module("store"))
	if err != nil {
		log.Critical(err)
		os.Exit(1)
	}
	defer st.Close()

	// The API process never runs migrations itself; it only refuses to
	// serve against a schema it wasn't built for (§4.5 "API service"
	// startup mode).
	if err := st.RequireAPICompatible(ctx); err != nil {
		log.Critical(err)
		os.Exit(1)
	}

	schema, root, err := graphql.NewSchema(st, cfg, log.Module("graphql"))
	if err != nil {
		log.Critical(err)
		os.Exit(1)
	}

	newBlocks, err := st.ListenNewBlocks(ctx)
	if err != nil {
		log.Critical(err)
		os.Exit(1)
	}
	go func() {
		for height := range newBlocks {
			b, err := st.BlockByHeight(ctx, height)
			if err != nil {
				log.Warningf("api: onBlock: fetch height %d: %v", height, err)
				continue
			}
			root.PublishBlock(b)
		}
	}()

	handler := graphql.NewHandler(schema, []string{"*"})

	srv := &http.Server{
		Addr:    cfg.APIListenAddr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warningf("api: graceful shutdown: %v", err)
		}
	}()

	log.Noticef("api: listening on %s", cfg.APIListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Critical(err)
		os.Exit(1)
	}
	log.Notice("api: shut down")
}
