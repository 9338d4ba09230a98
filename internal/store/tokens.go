package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/concordium/ccdscan-go/internal/types"
)

// UpsertCIS2Token finds or creates the token row for (contract,
// raw_token_id), returning its dense index. TokenAddress uniquely derives
// from the pair (§3 CIS-2 token).
func (s *Store) UpsertCIS2Token(ctx context.Context, tx *sqlx.Tx, addr types.ContractAddress, rawTokenID, tokenAddress string) (types.TokenIndex, error) {
	var idx int64
	err := tx.QueryRowxContext(ctx, `SELECT index FROM cis2_tokens WHERE token_address = $1`, tokenAddress).Scan(&idx)
	if err == nil {
		return types.TokenIndex(idx), nil
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO cis2_tokens (index, contract_index, contract_subindex, raw_token_id, token_address)
		VALUES ((SELECT COALESCE(MAX(index) + 1, 0) FROM cis2_tokens), $1, $2, $3, $4)
		RETURNING index`,
		addr.Index, addr.SubIndex, rawTokenID, tokenAddress,
	).Scan(&idx)
	if err != nil {
		return 0, fmt.Errorf("store: upsert cis2 token %s: %w", tokenAddress, err)
	}
	return types.TokenIndex(idx), nil
}

// AdjustCIS2Supply applies a signed delta to a token's total supply. The
// value is signed and unclamped: contracts that burn more than they
// minted are accepted as-is (§9 design notes).
func (s *Store) AdjustCIS2Supply(ctx context.Context, tx *sqlx.Tx, idx types.TokenIndex, delta string) error {
	res, err := tx.ExecContext(ctx, `UPDATE cis2_tokens SET total_supply = total_supply + $2::NUMERIC WHERE index = $1`, idx, delta)
	if err != nil {
		return fmt.Errorf("store: adjust cis2 supply for token %d: %w", idx, err)
	}
	n, _ := res.RowsAffected()
	return assertRows(n, 1, 1, fmt.Sprintf("adjust cis2 supply for token %d", idx))
}

// SetCIS2Metadata updates a token's metadata URL.
func (s *Store) SetCIS2Metadata(ctx context.Context, tx *sqlx.Tx, idx types.TokenIndex, url string) error {
	res, err := tx.ExecContext(ctx, `UPDATE cis2_tokens SET metadata_url = $2 WHERE index = $1`, idx, url)
	if err != nil {
		return fmt.Errorf("store: set cis2 metadata for token %d: %w", idx, err)
	}
	n, _ := res.RowsAffected()
	return assertRows(n, 1, 1, fmt.Sprintf("set cis2 metadata for token %d", idx))
}

// InsertCIS2TokenEvent appends a dense, per-token event row (§4.2 rule 2).
func (s *Store) InsertCIS2TokenEvent(ctx context.Context, tx *sqlx.Tx, idx types.TokenIndex, txIndex types.TransactionIndex, kind types.CIS2TokenEventKind, delta *string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cis2_token_events (token_index, index, tx_index, kind, delta)
		VALUES ($1, (SELECT COALESCE(MAX(index) + 1, 0) FROM cis2_token_events WHERE token_index = $1), $2, $3, $4::NUMERIC)`,
		idx, txIndex, kind, delta)
	if err != nil {
		return fmt.Errorf("store: insert cis2 token event for token %d: %w", idx, err)
	}
	return nil
}

// AdjustCIS2AccountBalance upserts a signed balance delta for one
// (account, token) pair.
func (s *Store) AdjustCIS2AccountBalance(ctx context.Context, tx *sqlx.Tx, account types.AccountIndex, token types.TokenIndex, delta string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cis2_account_balances (account_index, token_index, balance)
		VALUES ($1, $2, $3::NUMERIC)
		ON CONFLICT (account_index, token_index)
		DO UPDATE SET balance = cis2_account_balances.balance + EXCLUDED.balance`,
		account, token, delta)
	if err != nil {
		return fmt.Errorf("store: adjust cis2 balance (account %d, token %d): %w", account, token, err)
	}
	return nil
}
