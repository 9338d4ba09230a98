package store

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jmoiron/sqlx"

	"github.com/concordium/ccdscan-go/internal/types"
)

// InsertScheduledRelease records one (release-time, amount) pair created
// by a scheduled transfer (§3 Scheduled release). The matching balance
// adjustment and statement row are separate calls; this just appends the
// release-schedule entry that DeleteExpiredScheduledReleases later sweeps.
func (s *Store) InsertScheduledRelease(ctx context.Context, tx *sqlx.Tx, account types.AccountIndex, fromTx types.TransactionIndex, releaseTime time.Time, amountMicroCCD string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO scheduled_releases (account_index, from_tx_index, release_time, amount)
		VALUES ($1, $2, $3, $4::NUMERIC)`,
		account, fromTx, releaseTime, amountMicroCCD)
	if err != nil {
		return fmt.Errorf("store: insert scheduled release for account %d: %w", account, err)
	}
	return nil
}

// ScheduledReleasesForAccount returns every still-pending release owned by
// an account, ordered by release time.
func (s *Store) ScheduledReleasesForAccount(ctx context.Context, account types.AccountIndex) ([]types.ScheduledRelease, error) {
	var rows []scheduledReleaseRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT account_index, from_tx_index, release_time, amount
		FROM scheduled_releases WHERE account_index = $1 ORDER BY release_time ASC`, account)
	if err != nil {
		return nil, fmt.Errorf("store: scheduled releases for account %d: %w", account, err)
	}
	out := make([]types.ScheduledRelease, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

type scheduledReleaseRow struct {
	AccountIndex int64     `db:"account_index"`
	FromTxIndex  int64     `db:"from_tx_index"`
	ReleaseTime  time.Time `db:"release_time"`
	Amount       string    `db:"amount"`
}

func (r scheduledReleaseRow) toDomain() types.ScheduledRelease {
	sr := types.ScheduledRelease{
		AccountIndex: types.AccountIndex(r.AccountIndex),
		FromTxIndex:  types.TransactionIndex(r.FromTxIndex),
		ReleaseTime:  r.ReleaseTime.UnixMilli(),
	}
	if amt, ok := new(big.Int).SetString(r.Amount, 10); ok {
		sr.Amount = hexutil.Big(*amt)
	}
	return sr
}
