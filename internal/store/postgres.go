/*
Package store implements the Postgres persistence layer: the derived-state
tables of §3, the batched commit primitives of §4.3, and the schema
migration engine of §4.5.

It takes the role of the teacher's internal/repository/db.MongoDbBridge,
generalized from a document store to a relational one, and of its
internal/repository/cache.MemBridge, generalized from Opera epoch/account
caching to hot-row caching of chain parameters and the active validator
set.
*/
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/concordium/ccdscan-go/internal/logger"
)

// Store is the persistence facade used by both the indexer's committer and
// the API's resolvers.
type Store struct {
	db    *sqlx.DB     // query-path: typed row scanning
	pool  *pgxpool.Pool // LISTEN connections for new-block notifications
	cache *Cache
	log   logger.Logger
}

// Open connects to Postgres twice -- once through database/sql (via sqlx,
// for all query/exec work, including the array-valued block inserts of
// §4.3 step 3) and once through a pgx pool (which ListenNewBlocks uses to
// hold its LISTEN connection) -- mirroring the
// teacher's pattern of keeping RPC/DB/cache as separate bridges behind one
// facade.
func Open(ctx context.Context, dsn string, log logger.Logger) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect sqlx: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: connect pgxpool: %w", err)
	}

	cache, err := NewCache(log)
	if err != nil {
		db.Close()
		pool.Close()
		return nil, fmt.Errorf("store: init cache: %w", err)
	}

	return &Store{db: db, pool: pool, cache: cache, log: log}, nil
}

// Close releases both connections.
func (s *Store) Close() error {
	s.pool.Close()
	return s.db.Close()
}

// BeginBatch opens one transaction for a whole commit batch (§4.3 step 1,
// §5 Locking discipline: every batch is one SERIALIZABLE-equivalent
// transaction).
func (s *Store) BeginBatch(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin batch transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE"); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("store: set isolation level: %w", err)
	}
	return tx, nil
}

// Pool exposes the pgx pool, the one ListenNewBlocks takes its LISTEN
// connection from.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Cache exposes the hot-row cache to the committer and API resolvers.
func (s *Store) Cache() *Cache { return s.cache }
