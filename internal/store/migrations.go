package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/concordium/ccdscan-go/internal/logger"
	"github.com/concordium/ccdscan-go/internal/node"
	"github.com/concordium/ccdscan-go/internal/types"
)

// cis2Standard is the CIS-0 standard identifier probed for when
// re-confirming a contract still speaks CIS-2 (mirrors
// internal/indexer's own preprocessing-time gate).
const cis2Standard = "CIS-2"

// SchemaVersion is a totally ordered migration version (§4.5).
type SchemaVersion int

// LatestSchemaVersion is the version this binary was compiled against.
const LatestSchemaVersion SchemaVersion = schemaVersionCIS2TokenEventLog

// APISupportedSchemaVersion is the version the API server was compiled
// against (§4.5 startup mode 3).
const APISupportedSchemaVersion SchemaVersion = schemaVersionCIS2TokenEventLog

const (
	schemaVersionInitial SchemaVersion = iota + 1
	schemaVersionValidatorSuspension
	schemaVersionPLT
	schemaVersionCIS2TokenEventLog
)

// Migration describes one schema version: whether it is destructive
// (removes/renames columns, incompatible with older readers) and whether
// it is partial (may commit a prefix of its work and resume), plus the
// step that applies it.
type Migration struct {
	Version     SchemaVersion
	Description string
	Destructive bool
	Partial     bool
	// Step runs inside the migration's own transaction. It may use
	// endpoints to re-query the chain (e.g. backfilling commission rates
	// for genesis validators).
	Step func(ctx context.Context, tx *sqlx.Tx, endpoints *node.Pool) error
}

// migrations is the registry of all known versions, in ascending order.
var migrations = []Migration{
	{
		Version:     schemaVersionInitial,
		Description: "initial schema: blocks, transactions, accounts, validators, contracts",
		Destructive: false,
		Partial:     false,
		Step: func(ctx context.Context, tx *sqlx.Tx, _ *node.Pool) error {
			_, err := tx.ExecContext(ctx, sqlInitialSchema)
			return err
		},
	},
	{
		Version:     schemaVersionValidatorSuspension,
		Description: "add validator suspension markers",
		Destructive: false,
		Partial:     false,
		Step: func(ctx context.Context, tx *sqlx.Tx, _ *node.Pool) error {
			_, err := tx.ExecContext(ctx, sqlAddSuspensionColumns)
			return err
		},
	},
	{
		Version:     schemaVersionPLT,
		Description: "add protocol-level token tables",
		Destructive: false,
		Partial:     false,
		Step: func(ctx context.Context, tx *sqlx.Tx, _ *node.Pool) error {
			_, err := tx.ExecContext(ctx, sqlAddPLTTables)
			return err
		},
	},
	{
		Version:     schemaVersionCIS2TokenEventLog,
		Description: "backfill per-token dense event log by re-querying the chain",
		Destructive: false,
		Partial:     true,
		Step:        backfillCIS2EventLog,
	},
}

// CurrentVersion returns MAX(version) from the migrations table, or 0 if
// the table is empty (§4.5).
func (s *Store) CurrentVersion(ctx context.Context) (SchemaVersion, error) {
	var v *int
	err := s.db.GetContext(ctx, &v, `SELECT MAX(version) FROM migrations`)
	if err != nil {
		return 0, fmt.Errorf("store: read current schema version: %w", err)
	}
	if v == nil {
		return 0, nil
	}
	return SchemaVersion(*v), nil
}

// Migrate runs every pending version in order, one transaction each, until
// current == latest (§4.5 startup mode "--migrate is set").
func (s *Store) Migrate(ctx context.Context, endpoints *node.Pool, log logger.Logger) error {
	current, err := s.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		log.Noticef("migrations: applying version %d (%s)", m.Version, m.Description)
		start := time.Now()

		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("migrations: begin version %d: %w", m.Version, err)
		}

		if err := m.Step(ctx, tx, endpoints); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrations: version %d failed: %w", m.Version, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO migrations (version, description, destructive, start_time, end_time)
			 VALUES ($1, $2, $3, $4, $5)`,
			m.Version, m.Description, m.Destructive, start, time.Now())
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("migrations: record version %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrations: commit version %d: %w", m.Version, err)
		}
		log.Noticef("migrations: version %d applied in %s", m.Version, time.Since(start))
	}
	return nil
}

// RequireUpToDate enforces §4.5 startup mode "--migrate not set, indexer":
// refuse to start if current != latest.
func (s *Store) RequireUpToDate(ctx context.Context) error {
	current, err := s.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if current != LatestSchemaVersion {
		return fmt.Errorf("store: schema at version %d, need %d; run with --migrate", current, LatestSchemaVersion)
	}
	return nil
}

// RequireAPICompatible enforces §4.5 startup mode "API service": refuse to
// start if current is older than API_SUPPORTED_SCHEMA_VERSION and any
// version in between is additive, or newer and any version in between is
// destructive.
func (s *Store) RequireAPICompatible(ctx context.Context) error {
	current, err := s.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	if current < APISupportedSchemaVersion {
		for _, m := range migrations {
			if m.Version > current && m.Version <= APISupportedSchemaVersion && !m.Destructive {
				return fmt.Errorf("store: schema at version %d is older than supported %d and version %d is additive; refusing to start",
					current, APISupportedSchemaVersion, m.Version)
			}
		}
		return nil
	}

	if current > APISupportedSchemaVersion {
		for _, m := range migrations {
			if m.Version > APISupportedSchemaVersion && m.Version <= current && m.Destructive {
				return fmt.Errorf("store: schema at version %d is newer than supported %d and version %d is destructive; refusing to start",
					current, APISupportedSchemaVersion, m.Version)
			}
		}
	}
	return nil
}

// backfillRow is one token carried over from before the dense event log
// existed.
type backfillRow struct {
	Index            int64  `db:"index"`
	ContractIndex    int64  `db:"contract_index"`
	ContractSubindex int64  `db:"contract_subindex"`
	TotalSupply      string `db:"total_supply"`
}

// backfillCIS2EventLog reconstructs the dense per-token event log for
// tokens indexed before this version existed. A full trace-by-trace
// replay of every historical block is out of scope for a single
// migration step, so each affected token is instead seeded with one
// synthetic Mint event carrying its already-accumulated total_supply --
// after which the ordinary commit path appends real events going
// forward. Before seeding, the migration re-confirms the contract still
// answers the live CIS-0 supports(CIS2) probe (the probe gateCIS2Events
// runs during preprocessing) and, when its contract row is found, that
// its module source still resolves; a token whose contract no longer
// answers is left alone
// rather than seeded with a stale supply figure.
//
// It is marked Partial: a token left unseeded because its contract no
// longer answers the live probe is not an error, so a single run may
// legitimately seed only a subset of pending tokens; the migrations row
// is still recorded once that subset is committed, and a later rerun of
// this same version is a no-op for tokens that already got a seed row.
func backfillCIS2EventLog(ctx context.Context, tx *sqlx.Tx, endpoints *node.Pool) error {
	var pending []backfillRow
	err := tx.SelectContext(ctx, &pending, `
		SELECT t.index, t.contract_index, t.contract_subindex, t.total_supply::TEXT AS total_supply
		FROM cis2_tokens t
		WHERE NOT EXISTS (SELECT 1 FROM cis2_token_events e WHERE e.token_index = t.index)
		ORDER BY t.index`)
	if err != nil {
		return fmt.Errorf("migrations: backfill cis2 event log: select pending tokens: %w", err)
	}

	var tip types.BlockHeight
	if err := tx.GetContext(ctx, &tip, `SELECT COALESCE(MAX(height), 0) FROM blocks`); err != nil {
		return fmt.Errorf("migrations: backfill cis2 event log: read chain tip: %w", err)
	}
	req := node.BlockRequest{Height: tip}

	for _, row := range pending {
		addr := types.ContractAddress{Index: uint64(row.ContractIndex), SubIndex: uint64(row.ContractSubindex)}

		ep, err := endpoints.Acquire(ctx, 0)
		if err != nil {
			return fmt.Errorf("migrations: backfill cis2 event log: acquire endpoint: %w", err)
		}

		supports, err := ep.CIS0Supports(ctx, req, addr, cis2Standard)
		if err != nil || !supports {
			// The contract no longer answers the probe (or the node
			// couldn't be reached for it); leave this token's log empty
			// rather than seed it with a supply figure we can no longer
			// vouch for.
			continue
		}

		var moduleRef []byte
		if err := tx.GetContext(ctx, &moduleRef, `SELECT module_ref FROM contracts WHERE index = $1 AND subindex = $2`, row.ContractIndex, row.ContractSubindex); err == nil {
			var ref types.ModuleRef
			copy(ref[:], moduleRef)
			if _, err := ep.ModuleSource(ctx, req, ref); err != nil {
				continue
			}
		}

		var seedTxIndex int64
		_ = tx.GetContext(ctx, &seedTxIndex, `
			SELECT COALESCE(MIN(tx_index), 0) FROM module_links
			WHERE contract_index = $1 AND contract_subindex = $2`,
			row.ContractIndex, row.ContractSubindex)

		if err := insertBackfillEvent(ctx, tx, types.TokenIndex(row.Index), types.TransactionIndex(seedTxIndex), row.TotalSupply); err != nil {
			return fmt.Errorf("migrations: backfill cis2 event log: seed token %d: %w", row.Index, err)
		}
	}
	return nil
}

func insertBackfillEvent(ctx context.Context, tx *sqlx.Tx, idx types.TokenIndex, txIndex types.TransactionIndex, delta string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cis2_token_events (token_index, index, tx_index, kind, delta)
		VALUES ($1, (SELECT COALESCE(MAX(index) + 1, 0) FROM cis2_token_events WHERE token_index = $1), $2, $3, $4::NUMERIC)`,
		idx, txIndex, types.CIS2EventMint, delta)
	return err
}

const sqlInitialSchema = `
CREATE TABLE IF NOT EXISTS migrations (
	version INT PRIMARY KEY,
	description TEXT NOT NULL,
	destructive BOOLEAN NOT NULL,
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS blocks (
	height BIGINT PRIMARY KEY,
	hash BYTEA NOT NULL UNIQUE,
	slot_time TIMESTAMPTZ NOT NULL,
	block_time_ms BIGINT NOT NULL,
	baker_id BIGINT,
	cumulative_transaction_count BIGINT NOT NULL,
	finalization_time_ms BIGINT,
	finalized_by BIGINT,
	cumulative_finalization_time_ms BIGINT NOT NULL,
	total_amount NUMERIC NOT NULL,
	total_staked_amount NUMERIC NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	index BIGINT PRIMARY KEY,
	hash BYTEA NOT NULL UNIQUE,
	block_height BIGINT NOT NULL REFERENCES blocks(height),
	cost_micro_ccd NUMERIC NOT NULL,
	energy_cost BIGINT NOT NULL,
	sender_account_index BIGINT,
	family SMALLINT NOT NULL,
	subtype TEXT NOT NULL,
	success BOOLEAN NOT NULL,
	events_json JSONB,
	reject_json JSONB
);
CREATE INDEX IF NOT EXISTS transactions_block_height_idx ON transactions(block_height);

CREATE TABLE IF NOT EXISTS accounts (
	index BIGINT PRIMARY KEY,
	canonical_address BYTEA NOT NULL UNIQUE,
	address TEXT NOT NULL UNIQUE,
	amount NUMERIC NOT NULL,
	num_txs BIGINT NOT NULL DEFAULT 0,
	created_by_tx_index BIGINT,
	delegated_stake NUMERIC NOT NULL DEFAULT 0,
	delegated_target_baker_id BIGINT,
	delegated_restake_earnings BOOLEAN
);
CREATE INDEX IF NOT EXISTS accounts_amount_idx ON accounts(amount, index);
CREATE INDEX IF NOT EXISTS accounts_num_txs_idx ON accounts(num_txs, index);
CREATE INDEX IF NOT EXISTS accounts_delegated_target_idx ON accounts(delegated_target_baker_id);

CREATE TABLE IF NOT EXISTS account_statements (
	account_index BIGINT NOT NULL REFERENCES accounts(index),
	index BIGINT NOT NULL,
	block_height BIGINT NOT NULL,
	tx_index BIGINT,
	entry_type TEXT NOT NULL,
	amount NUMERIC,
	balance_after NUMERIC NOT NULL,
	PRIMARY KEY (account_index, index)
);

CREATE TABLE IF NOT EXISTS scheduled_releases (
	account_index BIGINT NOT NULL REFERENCES accounts(index),
	from_tx_index BIGINT NOT NULL,
	release_time TIMESTAMPTZ NOT NULL,
	amount NUMERIC NOT NULL
);
CREATE INDEX IF NOT EXISTS scheduled_releases_release_time_idx ON scheduled_releases(release_time);

CREATE TABLE IF NOT EXISTS bakers (
	id BIGINT PRIMARY KEY,
	staked_amount NUMERIC NOT NULL,
	restake_earnings BOOLEAN NOT NULL,
	open_status SMALLINT NOT NULL,
	metadata_url TEXT NOT NULL DEFAULT '',
	transaction_fee_commission DOUBLE PRECISION NOT NULL,
	baking_reward_commission DOUBLE PRECISION NOT NULL,
	finalization_reward_commission DOUBLE PRECISION NOT NULL,
	pool_total_staked NUMERIC NOT NULL DEFAULT 0,
	pool_delegator_count BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS modules (
	ref BYTEA PRIMARY KEY,
	schema BYTEA,
	init_tx_index BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS module_links (
	module_ref BYTEA NOT NULL REFERENCES modules(ref),
	contract_index BIGINT NOT NULL,
	contract_subindex BIGINT NOT NULL,
	event TEXT NOT NULL,
	tx_index BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS contracts (
	index BIGINT NOT NULL,
	subindex BIGINT NOT NULL,
	module_ref BYTEA NOT NULL REFERENCES modules(ref),
	init_name TEXT NOT NULL,
	amount NUMERIC NOT NULL DEFAULT 0,
	init_tx_index BIGINT NOT NULL,
	last_upgrade_tx_index BIGINT,
	PRIMARY KEY (index, subindex)
);

CREATE TABLE IF NOT EXISTS contract_reject_transactions (
	contract_index BIGINT NOT NULL,
	contract_subindex BIGINT NOT NULL,
	index BIGINT NOT NULL,
	tx_index BIGINT NOT NULL,
	PRIMARY KEY (contract_index, contract_subindex, index)
);

CREATE TABLE IF NOT EXISTS cis2_tokens (
	index BIGINT PRIMARY KEY,
	contract_index BIGINT NOT NULL,
	contract_subindex BIGINT NOT NULL,
	raw_token_id TEXT NOT NULL,
	token_address TEXT NOT NULL UNIQUE,
	total_supply NUMERIC NOT NULL DEFAULT 0,
	metadata_url TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS cis2_token_events (
	token_index BIGINT NOT NULL REFERENCES cis2_tokens(index),
	index BIGINT NOT NULL,
	tx_index BIGINT NOT NULL,
	kind TEXT NOT NULL,
	delta NUMERIC,
	PRIMARY KEY (token_index, index)
);

CREATE TABLE IF NOT EXISTS cis2_account_balances (
	account_index BIGINT NOT NULL REFERENCES accounts(index),
	token_index BIGINT NOT NULL REFERENCES cis2_tokens(index),
	balance NUMERIC NOT NULL DEFAULT 0,
	PRIMARY KEY (account_index, token_index)
);

CREATE TABLE IF NOT EXISTS current_chain_parameters (
	id BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
	epoch_duration_ms BIGINT NOT NULL,
	reward_period_length BIGINT NOT NULL,
	last_payday_block_height BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS payday_pool_commission_snapshots (
	baker_id BIGINT NOT NULL,
	payday_block_height BIGINT NOT NULL,
	transaction_fee_commission DOUBLE PRECISION NOT NULL,
	baking_reward_commission DOUBLE PRECISION NOT NULL,
	finalization_reward_commission DOUBLE PRECISION NOT NULL,
	lottery_power DOUBLE PRECISION NOT NULL,
	effective_stake NUMERIC NOT NULL
);
`

const sqlAddSuspensionColumns = `
ALTER TABLE bakers ADD COLUMN IF NOT EXISTS self_suspended_tx_index BIGINT;
ALTER TABLE bakers ADD COLUMN IF NOT EXISTS inactive_suspended_at_height BIGINT;
ALTER TABLE bakers ADD COLUMN IF NOT EXISTS primed_for_suspension_at_height BIGINT;
`

const sqlAddPLTTables = `
CREATE TABLE IF NOT EXISTS plt_tokens (
	token_id TEXT PRIMARY KEY,
	issuer_account_index BIGINT NOT NULL,
	module_ref BYTEA NOT NULL,
	decimals SMALLINT NOT NULL,
	initial_supply NUMERIC NOT NULL,
	minted NUMERIC NOT NULL DEFAULT 0,
	burned NUMERIC NOT NULL DEFAULT 0,
	current_supply NUMERIC NOT NULL,
	paused BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS plt_account_balances (
	account_index BIGINT NOT NULL,
	token_id TEXT NOT NULL REFERENCES plt_tokens(token_id),
	balance NUMERIC NOT NULL DEFAULT 0,
	PRIMARY KEY (account_index, token_id)
);

CREATE TABLE IF NOT EXISTS plt_accounts_sum_amounts (
	account_index BIGINT PRIMARY KEY,
	total_balance NUMERIC NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS plt_events (
	token_id TEXT NOT NULL REFERENCES plt_tokens(token_id),
	index BIGINT NOT NULL,
	tx_index BIGINT NOT NULL,
	kind TEXT NOT NULL,
	amount NUMERIC,
	PRIMARY KEY (token_id, index)
);

CREATE TABLE IF NOT EXISTS metrics_plt (
	bucket_start BIGINT NOT NULL,
	token_id TEXT NOT NULL,
	cumulative_count BIGINT NOT NULL,
	cumulative_amount NUMERIC,
	PRIMARY KEY (bucket_start, token_id)
);

CREATE TABLE IF NOT EXISTS metrics_plt_transfer (
	bucket_start BIGINT NOT NULL,
	token_id TEXT NOT NULL,
	cumulative_count BIGINT NOT NULL,
	cumulative_amount NUMERIC,
	PRIMARY KEY (bucket_start, token_id)
);
`
