package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/concordium/ccdscan-go/internal/types"
)

// InsertPLT creates a new protocol-level token row (§3 Protocol-Level
// Token).
func (s *Store) InsertPLT(ctx context.Context, tx *sqlx.Tx, p types.PLT) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO plt_tokens (token_id, issuer_account_index, module_ref, decimals,
			initial_supply, minted, burned, current_supply, paused)
		VALUES ($1, $2, $3, $4, $5::NUMERIC, 0, 0, $5::NUMERIC, FALSE)`,
		p.TokenID, p.Issuer, p.ModuleRef[:], p.Decimals, p.InitialSupply.String())
	if err != nil {
		return fmt.Errorf("store: insert plt %s: %w", p.TokenID, err)
	}
	return nil
}

// ApplyPLTMint records a mint: increments minted and current_supply.
func (s *Store) ApplyPLTMint(ctx context.Context, tx *sqlx.Tx, tokenID string, amount string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE plt_tokens SET minted = minted + $2::NUMERIC, current_supply = current_supply + $2::NUMERIC
		WHERE token_id = $1`, tokenID, amount)
	if err != nil {
		return fmt.Errorf("store: apply plt mint %s: %w", tokenID, err)
	}
	n, _ := res.RowsAffected()
	return assertRows(n, 1, 1, fmt.Sprintf("apply plt mint %s", tokenID))
}

// ApplyPLTBurn records a burn: increments burned, decrements
// current_supply. Unclamped, same rationale as CIS-2 (§9).
func (s *Store) ApplyPLTBurn(ctx context.Context, tx *sqlx.Tx, tokenID string, amount string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE plt_tokens SET burned = burned + $2::NUMERIC, current_supply = current_supply - $2::NUMERIC
		WHERE token_id = $1`, tokenID, amount)
	if err != nil {
		return fmt.Errorf("store: apply plt burn %s: %w", tokenID, err)
	}
	n, _ := res.RowsAffected()
	return assertRows(n, 1, 1, fmt.Sprintf("apply plt burn %s", tokenID))
}

// SetPLTPaused toggles a PLT's paused flag.
func (s *Store) SetPLTPaused(ctx context.Context, tx *sqlx.Tx, tokenID string, paused bool) error {
	res, err := tx.ExecContext(ctx, `UPDATE plt_tokens SET paused = $2 WHERE token_id = $1`, tokenID, paused)
	if err != nil {
		return fmt.Errorf("store: set plt paused %s: %w", tokenID, err)
	}
	n, _ := res.RowsAffected()
	return assertRows(n, 1, 1, fmt.Sprintf("set plt paused %s", tokenID))
}

// TransferPLT moves balance between two accounts atomically and maintains
// the plt_accounts_sum_amounts summary table used by unique-holder metrics
// (§4.3: "combined upsert that also maintains a summary table").
func (s *Store) TransferPLT(ctx context.Context, tx *sqlx.Tx, tokenID string, from, to types.AccountIndex, amount string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO plt_account_balances (account_index, token_id, balance)
		VALUES ($1, $2, (0 - $3::NUMERIC))
		ON CONFLICT (account_index, token_id) DO UPDATE
		SET balance = plt_account_balances.balance - $3::NUMERIC`,
		from, tokenID, amount); err != nil {
		return fmt.Errorf("store: plt transfer debit %s: %w", tokenID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO plt_account_balances (account_index, token_id, balance)
		VALUES ($1, $2, $3::NUMERIC)
		ON CONFLICT (account_index, token_id) DO UPDATE
		SET balance = plt_account_balances.balance + $3::NUMERIC`,
		to, tokenID, amount); err != nil {
		return fmt.Errorf("store: plt transfer credit %s: %w", tokenID, err)
	}

	for _, acc := range []types.AccountIndex{from, to} {
		if err := s.refreshPLTAccountSum(ctx, tx, acc); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) refreshPLTAccountSum(ctx context.Context, tx *sqlx.Tx, acc types.AccountIndex) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO plt_accounts_sum_amounts (account_index, total_balance)
		VALUES ($1, (SELECT COALESCE(SUM(balance), 0) FROM plt_account_balances WHERE account_index = $1))
		ON CONFLICT (account_index) DO UPDATE
		SET total_balance = (SELECT COALESCE(SUM(balance), 0) FROM plt_account_balances WHERE account_index = $1)`,
		acc)
	if err != nil {
		return fmt.Errorf("store: refresh plt account sum for %d: %w", acc, err)
	}
	return nil
}

// InsertPLTEvent appends one plt_events row.
func (s *Store) InsertPLTEvent(ctx context.Context, tx *sqlx.Tx, tokenID string, txIndex types.TransactionIndex, kind types.PLTEventKind, amount *string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO plt_events (token_id, index, tx_index, kind, amount)
		VALUES ($1, (SELECT COALESCE(MAX(index) + 1, 0) FROM plt_events WHERE token_id = $1), $2, $3, $4::NUMERIC)`,
		tokenID, txIndex, kind, amount)
	if err != nil {
		return fmt.Errorf("store: insert plt event %s: %w", tokenID, err)
	}
	return nil
}

// MergeMetricsBucket applies the insert-or-merge-with-GREATEST idiom so
// out-of-order or retried writes cannot decrease a monotonic cumulative
// counter (§4.3, §9: metrics_plt / metrics_plt_transfer).
func (s *Store) MergeMetricsBucket(ctx context.Context, tx *sqlx.Tx, kind types.MetricsKind, tokenID string, bucketStart int64, countDelta uint64, amountDelta string) error {
	table := string(kind)
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (bucket_start, token_id, cumulative_count, cumulative_amount)
		VALUES ($1, $2, $3, $4::NUMERIC)
		ON CONFLICT (bucket_start, token_id) DO UPDATE
		SET cumulative_count = GREATEST(%s.cumulative_count, EXCLUDED.cumulative_count),
			cumulative_amount = GREATEST(%s.cumulative_amount, EXCLUDED.cumulative_amount)`,
		table, table, table),
		bucketStart, tokenID, countDelta, amountDelta)
	if err != nil {
		return fmt.Errorf("store: merge metrics bucket %s/%s: %w", kind, tokenID, err)
	}
	return nil
}
