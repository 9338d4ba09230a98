package store

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/concordium/ccdscan-go/internal/pagination"
	"github.com/concordium/ccdscan-go/internal/types"
)

// This file holds the read path the API's resolvers call: single-row
// lookups by key, and the cursor-paginated connections of §4.4 over the
// tables §3 defines. Every connection here is keyed on one unique bigint
// column of its table (a dense index or height, a validator id, or a
// contract's init_tx_index), so a cursor is always just that column's raw
// value (pagination.AscendingI64).

// cursorBounds turns a validated pagination.Request into a SQL comparison
// and bind value against the collection's key column, plus the direction
// rows must be fetched in so LIMIT takes the right end of the window
// (§4.4: "after"/first scans forward, "before"/last scans backward from
// the tail and the caller re-reverses to ascending order).
func cursorBounds(req pagination.Request, configLimit int32) (cmp string, value int64, hasValue bool, limit int32, fromEnd bool, err error) {
	if err = req.Validate(); err != nil {
		return
	}
	limit, fromEnd = req.Limit(configLimit)

	cursorStr := req.After
	if fromEnd {
		cursorStr = req.Before
	}
	if cursorStr == nil {
		if fromEnd {
			return "<", 0, false, limit, true, nil
		}
		return ">", 0, false, limit, false, nil
	}

	c, decErr := pagination.Decode(pagination.AscendingI64, *cursorStr)
	if decErr != nil {
		err = decErr
		return
	}
	if fromEnd {
		return "<", c.Value(), true, limit, true, nil
	}
	return ">", c.Value(), true, limit, false, nil
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func msToDuration(ms int64) time.Duration { return time.Duration(ms) * time.Millisecond }

func parseBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

func parseHexutilBig(s string) hexutil.Big {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		v = new(big.Int)
	}
	return hexutil.Big(*v)
}

// --- Blocks ---

// BlockByHeight fetches a single block by its dense height key.
func (s *Store) BlockByHeight(ctx context.Context, height types.BlockHeight) (*types.Block, error) {
	var row blockRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM blocks WHERE height = $1`, height)
	if err != nil {
		return nil, fmt.Errorf("%w: height %d", ErrBlockNotFound, height)
	}
	return row.toDomain(), nil
}

// BlockByHash fetches a single block by its hash.
func (s *Store) BlockByHash(ctx context.Context, hash types.BlockHash) (*types.Block, error) {
	var row blockRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM blocks WHERE hash = $1`, hash[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %x", ErrBlockNotFound, hash)
	}
	return row.toDomain(), nil
}

// LatestBlock fetches the highest block committed so far.
func (s *Store) LatestBlock(ctx context.Context) (*types.Block, error) {
	var row blockRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM blocks ORDER BY height DESC LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("%w: no blocks indexed yet", ErrBlockNotFound)
	}
	return row.toDomain(), nil
}

// BlocksConnection pages over every block in height order (§4.4).
func (s *Store) BlocksConnection(ctx context.Context, req pagination.Request, configLimit int32) (pagination.Connection[types.Block], error) {
	cmp, value, hasValue, limit, fromEnd, err := cursorBounds(req, configLimit)
	if err != nil {
		return pagination.Connection[types.Block]{}, err
	}

	order := "ASC"
	if fromEnd {
		order = "DESC"
	}

	var rows []blockRow
	if hasValue {
		q := fmt.Sprintf(`SELECT * FROM blocks WHERE height %s $1 ORDER BY height %s LIMIT $2`, cmp, order)
		err = s.db.SelectContext(ctx, &rows, q, value, limit)
	} else {
		q := fmt.Sprintf(`SELECT * FROM blocks ORDER BY height %s LIMIT $1`, order)
		err = s.db.SelectContext(ctx, &rows, q, limit)
	}
	if err != nil {
		return pagination.Connection[types.Block]{}, fmt.Errorf("store: blocks connection: %w", err)
	}
	if fromEnd {
		reverse(rows)
	}

	extremes, total, err := s.blocksExtremes(ctx)
	if err != nil {
		return pagination.Connection[types.Block]{}, err
	}

	nodes := make([]types.Block, len(rows))
	cursors := make([]pagination.Cursor, len(rows))
	for i, r := range rows {
		nodes[i] = *r.toDomain()
		cursors[i] = pagination.NewI64(pagination.AscendingI64, r.Height)
	}
	return pagination.BuildConnection(nodes, cursors, total, extremes), nil
}

func (s *Store) blocksExtremes(ctx context.Context) (pagination.Extremes, int64, error) {
	var res struct {
		Min   *int64 `db:"min"`
		Max   *int64 `db:"max"`
		Count int64  `db:"count"`
	}
	if err := s.db.GetContext(ctx, &res, `SELECT MIN(height) AS min, MAX(height) AS max, COUNT(*) AS count FROM blocks`); err != nil {
		return pagination.Extremes{}, 0, fmt.Errorf("store: blocks extremes: %w", err)
	}
	if res.Min == nil {
		return pagination.Extremes{}, 0, nil
	}
	return pagination.Extremes{
		Min: pagination.NewI64(pagination.AscendingI64, *res.Min),
		Max: pagination.NewI64(pagination.AscendingI64, *res.Max),
	}, res.Count, nil
}

type blockRow struct {
	Height                     int64     `db:"height"`
	Hash                       []byte    `db:"hash"`
	SlotTime                   time.Time `db:"slot_time"`
	BlockTimeMs                int64     `db:"block_time_ms"`
	BakerID                    *int64    `db:"baker_id"`
	CumulativeTransactionCount int64     `db:"cumulative_transaction_count"`
	FinalizationTimeMs         *int64    `db:"finalization_time_ms"`
	FinalizedBy                *int64    `db:"finalized_by"`
	CumulativeFinalizationTime int64     `db:"cumulative_finalization_time_ms"`
	TotalAmount                string    `db:"total_amount"`
	TotalStakedAmount          string    `db:"total_staked_amount"`
}

func (r blockRow) toDomain() *types.Block {
	b := &types.Block{
		Height:                     types.BlockHeight(r.Height),
		SlotTime:                   r.SlotTime,
		BlockTime:                  msToDuration(r.BlockTimeMs),
		CumulativeTransactionCount: uint64(r.CumulativeTransactionCount),
		CumulativeFinalizationTime: msToDuration(r.CumulativeFinalizationTime),
		TotalAmount:                parseHexutilBig(r.TotalAmount),
		TotalStakedAmount:          parseHexutilBig(r.TotalStakedAmount),
	}
	copy(b.Hash[:], r.Hash)
	if r.BakerID != nil {
		id := types.BakerID(*r.BakerID)
		b.BakerID = &id
	}
	if r.FinalizationTimeMs != nil {
		d := msToDuration(*r.FinalizationTimeMs)
		b.FinalizationTime = &d
	}
	if r.FinalizedBy != nil {
		h := types.BlockHeight(*r.FinalizedBy)
		b.FinalizedBy = &h
	}
	return b
}

// --- Transactions ---

// TransactionsConnection pages over every transaction in global index
// order (§4.4).
func (s *Store) TransactionsConnection(ctx context.Context, req pagination.Request, configLimit int32) (pagination.Connection[types.Transaction], error) {
	return s.transactionsWindow(ctx, req, configLimit, false, 0)
}

// TransactionsByAccountConnection pages over only the transactions a given
// account sent (sender_account_index), still ordered by global transaction
// index. Transactions that credit or otherwise affect the account without
// it being the sender are not included.
func (s *Store) TransactionsByAccountConnection(ctx context.Context, account types.AccountIndex, req pagination.Request, configLimit int32) (pagination.Connection[types.Transaction], error) {
	return s.transactionsWindow(ctx, req, configLimit, true, int64(account))
}

const transactionSelectCols = `index, hash, block_height, cost_micro_ccd, energy_cost,
	sender_account_index, family, subtype, success, events_json, reject_json`

func (s *Store) transactionsWindow(ctx context.Context, req pagination.Request, configLimit int32, byAccount bool, account int64) (pagination.Connection[types.Transaction], error) {
	cmp, value, hasValue, limit, fromEnd, err := cursorBounds(req, configLimit)
	if err != nil {
		return pagination.Connection[types.Transaction]{}, err
	}

	order := "ASC"
	if fromEnd {
		order = "DESC"
	}

	var rows []transactionRow
	switch {
	case byAccount && hasValue:
		q := fmt.Sprintf(`SELECT %s FROM transactions WHERE sender_account_index = $1 AND index %s $2
			ORDER BY index %s LIMIT $3`, transactionSelectCols, cmp, order)
		err = s.db.SelectContext(ctx, &rows, q, account, value, limit)
	case byAccount:
		q := fmt.Sprintf(`SELECT %s FROM transactions WHERE sender_account_index = $1
			ORDER BY index %s LIMIT $2`, transactionSelectCols, order)
		err = s.db.SelectContext(ctx, &rows, q, account, limit)
	case hasValue:
		q := fmt.Sprintf(`SELECT %s FROM transactions WHERE index %s $1
			ORDER BY index %s LIMIT $2`, transactionSelectCols, cmp, order)
		err = s.db.SelectContext(ctx, &rows, q, value, limit)
	default:
		q := fmt.Sprintf(`SELECT %s FROM transactions ORDER BY index %s LIMIT $1`, transactionSelectCols, order)
		err = s.db.SelectContext(ctx, &rows, q, limit)
	}
	if err != nil {
		return pagination.Connection[types.Transaction]{}, fmt.Errorf("store: transactions connection: %w", err)
	}
	if fromEnd {
		reverse(rows)
	}

	extremes, total, err := s.transactionsExtremes(ctx, byAccount, account)
	if err != nil {
		return pagination.Connection[types.Transaction]{}, err
	}

	nodes := make([]types.Transaction, len(rows))
	cursors := make([]pagination.Cursor, len(rows))
	for i, r := range rows {
		nodes[i] = *r.toDomain()
		cursors[i] = pagination.NewI64(pagination.AscendingI64, r.Index)
	}
	return pagination.BuildConnection(nodes, cursors, total, extremes), nil
}

func (s *Store) transactionsExtremes(ctx context.Context, byAccount bool, account int64) (pagination.Extremes, int64, error) {
	var res struct {
		Min   *int64 `db:"min"`
		Max   *int64 `db:"max"`
		Count int64  `db:"count"`
	}
	var err error
	if byAccount {
		err = s.db.GetContext(ctx, &res, `SELECT MIN(index) AS min, MAX(index) AS max, COUNT(*) AS count
			FROM transactions WHERE sender_account_index = $1`, account)
	} else {
		err = s.db.GetContext(ctx, &res, `SELECT MIN(index) AS min, MAX(index) AS max, COUNT(*) AS count FROM transactions`)
	}
	if err != nil {
		return pagination.Extremes{}, 0, fmt.Errorf("store: transactions extremes: %w", err)
	}
	if res.Min == nil {
		return pagination.Extremes{}, 0, nil
	}
	return pagination.Extremes{
		Min: pagination.NewI64(pagination.AscendingI64, *res.Min),
		Max: pagination.NewI64(pagination.AscendingI64, *res.Max),
	}, res.Count, nil
}

type transactionRow struct {
	Index              int64  `db:"index"`
	Hash               []byte `db:"hash"`
	BlockHeight        int64  `db:"block_height"`
	CostMicroCCD       string `db:"cost_micro_ccd"`
	EnergyCost         int64  `db:"energy_cost"`
	SenderAccountIndex *int64 `db:"sender_account_index"`
	Family             int    `db:"family"`
	Subtype            string `db:"subtype"`
	Success            bool   `db:"success"`
	EventsJSON         []byte `db:"events_json"`
	RejectJSON         []byte `db:"reject_json"`
}

func (r transactionRow) toDomain() *types.Transaction {
	t := &types.Transaction{
		Index:        types.TransactionIndex(r.Index),
		BlockHeight:  types.BlockHeight(r.BlockHeight),
		CostMicroCCD: parseHexutilBig(r.CostMicroCCD),
		EnergyCost:   uint64(r.EnergyCost),
		Family:       types.TransactionFamily(r.Family),
		Subtype:      r.Subtype,
		Success:      r.Success,
		EventsJSON:   r.EventsJSON,
		RejectJSON:   r.RejectJSON,
	}
	copy(t.Hash[:], r.Hash)
	if r.SenderAccountIndex != nil {
		a := types.AccountIndex(*r.SenderAccountIndex)
		t.SenderAccountIndex = &a
	}
	return t
}

// TransactionsInBlock fetches every transaction belonging to one block, in
// index order, unpaginated -- block detail views list a block's own
// transactions in full rather than through a Connection (§6).
func (s *Store) TransactionsInBlock(ctx context.Context, height types.BlockHeight) ([]types.Transaction, error) {
	var rows []transactionRow
	q := fmt.Sprintf(`SELECT %s FROM transactions WHERE block_height = $1 ORDER BY index ASC`, transactionSelectCols)
	if err := s.db.SelectContext(ctx, &rows, q, height); err != nil {
		return nil, fmt.Errorf("store: transactions in block %d: %w", height, err)
	}
	out := make([]types.Transaction, len(rows))
	for i, r := range rows {
		out[i] = *r.toDomain()
	}
	return out, nil
}

// --- Accounts ---

// AccountByIndex fetches a single account by its dense primary key.
func (s *Store) AccountByIndex(ctx context.Context, idx types.AccountIndex) (*types.Account, error) {
	var row accountRow
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM accounts WHERE index = $1`, idx); err != nil {
		return nil, fmt.Errorf("%w: index %d", ErrAccountNotFound, idx)
	}
	return row.toDomain(), nil
}

// AccountsConnection pages over every account in dense index order.
func (s *Store) AccountsConnection(ctx context.Context, req pagination.Request, configLimit int32) (pagination.Connection[types.Account], error) {
	cmp, value, hasValue, limit, fromEnd, err := cursorBounds(req, configLimit)
	if err != nil {
		return pagination.Connection[types.Account]{}, err
	}

	order := "ASC"
	if fromEnd {
		order = "DESC"
	}

	var rows []accountRow
	if hasValue {
		q := fmt.Sprintf(`SELECT * FROM accounts WHERE index %s $1 ORDER BY index %s LIMIT $2`, cmp, order)
		err = s.db.SelectContext(ctx, &rows, q, value, limit)
	} else {
		q := fmt.Sprintf(`SELECT * FROM accounts ORDER BY index %s LIMIT $1`, order)
		err = s.db.SelectContext(ctx, &rows, q, limit)
	}
	if err != nil {
		return pagination.Connection[types.Account]{}, fmt.Errorf("store: accounts connection: %w", err)
	}
	if fromEnd {
		reverse(rows)
	}

	var res struct {
		Min   *int64 `db:"min"`
		Max   *int64 `db:"max"`
		Count int64  `db:"count"`
	}
	if err := s.db.GetContext(ctx, &res, `SELECT MIN(index) AS min, MAX(index) AS max, COUNT(*) AS count FROM accounts`); err != nil {
		return pagination.Connection[types.Account]{}, fmt.Errorf("store: accounts extremes: %w", err)
	}
	var extremes pagination.Extremes
	if res.Min != nil {
		extremes = pagination.Extremes{
			Min: pagination.NewI64(pagination.AscendingI64, *res.Min),
			Max: pagination.NewI64(pagination.AscendingI64, *res.Max),
		}
	}

	nodes := make([]types.Account, len(rows))
	cursors := make([]pagination.Cursor, len(rows))
	for i, r := range rows {
		nodes[i] = *r.toDomain()
		cursors[i] = pagination.NewI64(pagination.AscendingI64, r.Index)
	}
	return pagination.BuildConnection(nodes, cursors, res.Count, extremes), nil
}

// --- Validators ---

// ValidatorByID fetches one validator, consulting the hot-row cache first
// (§4.3 denormalized pool accumulators change often, rows are small).
func (s *Store) ValidatorByID(ctx context.Context, id types.BakerID) (*types.Validator, error) {
	if v := s.cache.PullValidator(id); v != nil {
		return v, nil
	}
	var row validatorRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM bakers WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrValidatorNotFound, id)
	}
	v := row.toDomain()
	_ = s.cache.PushValidator(v)
	return v, nil
}

// ValidatorsConnection pages over every validator in id order.
func (s *Store) ValidatorsConnection(ctx context.Context, req pagination.Request, configLimit int32) (pagination.Connection[types.Validator], error) {
	cmp, value, hasValue, limit, fromEnd, err := cursorBounds(req, configLimit)
	if err != nil {
		return pagination.Connection[types.Validator]{}, err
	}

	order := "ASC"
	if fromEnd {
		order = "DESC"
	}

	var rows []validatorRow
	if hasValue {
		q := fmt.Sprintf(`SELECT * FROM bakers WHERE id %s $1 ORDER BY id %s LIMIT $2`, cmp, order)
		err = s.db.SelectContext(ctx, &rows, q, value, limit)
	} else {
		q := fmt.Sprintf(`SELECT * FROM bakers ORDER BY id %s LIMIT $1`, order)
		err = s.db.SelectContext(ctx, &rows, q, limit)
	}
	if err != nil {
		return pagination.Connection[types.Validator]{}, fmt.Errorf("store: validators connection: %w", err)
	}
	if fromEnd {
		reverse(rows)
	}

	var res struct {
		Min   *int64 `db:"min"`
		Max   *int64 `db:"max"`
		Count int64  `db:"count"`
	}
	if err := s.db.GetContext(ctx, &res, `SELECT MIN(id) AS min, MAX(id) AS max, COUNT(*) AS count FROM bakers`); err != nil {
		return pagination.Connection[types.Validator]{}, fmt.Errorf("store: validators extremes: %w", err)
	}
	var extremes pagination.Extremes
	if res.Min != nil {
		extremes = pagination.Extremes{
			Min: pagination.NewI64(pagination.AscendingI64, *res.Min),
			Max: pagination.NewI64(pagination.AscendingI64, *res.Max),
		}
	}

	nodes := make([]types.Validator, len(rows))
	cursors := make([]pagination.Cursor, len(rows))
	for i, r := range rows {
		v := r.toDomain()
		_ = s.cache.PushValidator(v)
		nodes[i] = *v
		cursors[i] = pagination.NewI64(pagination.AscendingI64, int64(r.ID))
	}
	return pagination.BuildConnection(nodes, cursors, res.Count, extremes), nil
}

type validatorRow struct {
	ID                            int64   `db:"id"`
	StakedAmount                  string  `db:"staked_amount"`
	RestakeEarnings               bool    `db:"restake_earnings"`
	OpenStatus                    int     `db:"open_status"`
	MetadataURL                   string  `db:"metadata_url"`
	TransactionFeeCommission      float64 `db:"transaction_fee_commission"`
	BakingRewardCommission        float64 `db:"baking_reward_commission"`
	FinalizationRewardCommission  float64 `db:"finalization_reward_commission"`
	PoolTotalStaked               string  `db:"pool_total_staked"`
	PoolDelegatorCount            int64   `db:"pool_delegator_count"`
	SelfSuspendedTxIndex          *int64  `db:"self_suspended_tx_index"`
	InactiveSuspendedAtHeight     *int64  `db:"inactive_suspended_at_height"`
	PrimedForSuspensionAtHeight   *int64  `db:"primed_for_suspension_at_height"`
}

func (r validatorRow) toDomain() *types.Validator {
	v := &types.Validator{
		ID:                 types.BakerID(r.ID),
		StakedAmount:       parseHexutilBig(r.StakedAmount),
		RestakeEarnings:    r.RestakeEarnings,
		OpenStatus:         types.OpenStatus(r.OpenStatus),
		MetadataURL:        r.MetadataURL,
		TransactionFee:     r.TransactionFeeCommission,
		BakingReward:       r.BakingRewardCommission,
		FinalizationReward: r.FinalizationRewardCommission,
		PoolTotalStaked:    parseHexutilBig(r.PoolTotalStaked),
		PoolDelegatorCount: uint64(r.PoolDelegatorCount),
	}
	if r.SelfSuspendedTxIndex != nil {
		t := types.TransactionIndex(*r.SelfSuspendedTxIndex)
		v.SelfSuspendedTxIndex = &t
	}
	if r.InactiveSuspendedAtHeight != nil {
		h := types.BlockHeight(*r.InactiveSuspendedAtHeight)
		v.InactiveSuspendedAtHeight = &h
	}
	if r.PrimedForSuspensionAtHeight != nil {
		h := types.BlockHeight(*r.PrimedForSuspensionAtHeight)
		v.PrimedForSuspensionAtHeight = &h
	}
	return v
}

// ValidatorsCount returns the number of active validators.
func (s *Store) ValidatorsCount(ctx context.Context) (uint64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM bakers`); err != nil {
		return 0, fmt.Errorf("store: validators count: %w", err)
	}
	return uint64(n), nil
}

// --- Modules & contracts ---

// ModuleByRef fetches a module's metadata.
func (s *Store) ModuleByRef(ctx context.Context, ref types.ModuleRef) (*types.Module, error) {
	var row struct {
		Ref         []byte `db:"ref"`
		Schema      []byte `db:"schema"`
		InitTxIndex int64  `db:"init_tx_index"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT * FROM modules WHERE ref = $1`, ref[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, ref)
	}
	m := &types.Module{Schema: row.Schema, InitTxIndex: types.TransactionIndex(row.InitTxIndex)}
	copy(m.Ref[:], row.Ref)
	return m, nil
}

// ModuleLinks returns a module's full append-only linkage history, in
// insertion order (§3 Smart-contract module).
func (s *Store) ModuleLinks(ctx context.Context, ref types.ModuleRef) ([]types.ModuleLink, error) {
	var rows []struct {
		ContractIndex    int64  `db:"contract_index"`
		ContractSubindex int64  `db:"contract_subindex"`
		Event            string `db:"event"`
		TxIndex          int64  `db:"tx_index"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT contract_index, contract_subindex, event, tx_index
		FROM module_links WHERE module_ref = $1 ORDER BY tx_index ASC`, ref[:])
	if err != nil {
		return nil, fmt.Errorf("store: module links for %s: %w", ref, err)
	}
	out := make([]types.ModuleLink, len(rows))
	for i, r := range rows {
		out[i] = types.ModuleLink{
			ModuleRef: ref,
			Contract:  types.ContractAddress{Index: uint64(r.ContractIndex), SubIndex: uint64(r.ContractSubindex)},
			Event:     types.LinkEvent(r.Event),
			TxIndex:   types.TransactionIndex(r.TxIndex),
		}
	}
	return out, nil
}

// ContractsConnection pages over every contract instance, ordered by
// init_tx_index -- a monotonically assigned (not dense) creation order that
// serves as a stable single-column sort key for a table whose real
// primary key is the compound (index, subindex) pair.
func (s *Store) ContractsConnection(ctx context.Context, req pagination.Request, configLimit int32) (pagination.Connection[types.Contract], error) {
	cmp, value, hasValue, limit, fromEnd, err := cursorBounds(req, configLimit)
	if err != nil {
		return pagination.Connection[types.Contract]{}, err
	}

	order := "ASC"
	if fromEnd {
		order = "DESC"
	}

	var rows []contractRow
	if hasValue {
		q := fmt.Sprintf(`SELECT * FROM contracts WHERE init_tx_index %s $1 ORDER BY init_tx_index %s LIMIT $2`, cmp, order)
		err = s.db.SelectContext(ctx, &rows, q, value, limit)
	} else {
		q := fmt.Sprintf(`SELECT * FROM contracts ORDER BY init_tx_index %s LIMIT $1`, order)
		err = s.db.SelectContext(ctx, &rows, q, limit)
	}
	if err != nil {
		return pagination.Connection[types.Contract]{}, fmt.Errorf("store: contracts connection: %w", err)
	}
	if fromEnd {
		reverse(rows)
	}

	var res struct {
		Min   *int64 `db:"min"`
		Max   *int64 `db:"max"`
		Count int64  `db:"count"`
	}
	if err := s.db.GetContext(ctx, &res, `SELECT MIN(init_tx_index) AS min, MAX(init_tx_index) AS max, COUNT(*) AS count FROM contracts`); err != nil {
		return pagination.Connection[types.Contract]{}, fmt.Errorf("store: contracts extremes: %w", err)
	}
	var extremes pagination.Extremes
	if res.Min != nil {
		extremes = pagination.Extremes{
			Min: pagination.NewI64(pagination.AscendingI64, *res.Min),
			Max: pagination.NewI64(pagination.AscendingI64, *res.Max),
		}
	}

	nodes := make([]types.Contract, len(rows))
	cursors := make([]pagination.Cursor, len(rows))
	for i, r := range rows {
		nodes[i] = *r.toDomain()
		cursors[i] = pagination.NewI64(pagination.AscendingI64, r.InitTxIndex)
	}
	return pagination.BuildConnection(nodes, cursors, res.Count, extremes), nil
}

// --- CIS-2 tokens ---

// CIS2TokenByAddress fetches one token by its derived token address.
func (s *Store) CIS2TokenByAddress(ctx context.Context, tokenAddress string) (*types.CIS2Token, error) {
	var row cis2TokenRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM cis2_tokens WHERE token_address = $1`, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("store: cis2 token %s not found: %w", tokenAddress, err)
	}
	return row.toDomain(), nil
}

// CIS2TokensByContractConnection pages over a contract's tokens, ordered
// by their dense index.
func (s *Store) CIS2TokensByContractConnection(ctx context.Context, addr types.ContractAddress, req pagination.Request, configLimit int32) (pagination.Connection[types.CIS2Token], error) {
	cmp, value, hasValue, limit, fromEnd, err := cursorBounds(req, configLimit)
	if err != nil {
		return pagination.Connection[types.CIS2Token]{}, err
	}

	order := "ASC"
	if fromEnd {
		order = "DESC"
	}

	var rows []cis2TokenRow
	if hasValue {
		q := fmt.Sprintf(`SELECT * FROM cis2_tokens WHERE contract_index = $1 AND contract_subindex = $2 AND index %s $3
			ORDER BY index %s LIMIT $4`, cmp, order)
		err = s.db.SelectContext(ctx, &rows, q, addr.Index, addr.SubIndex, value, limit)
	} else {
		q := fmt.Sprintf(`SELECT * FROM cis2_tokens WHERE contract_index = $1 AND contract_subindex = $2
			ORDER BY index %s LIMIT $3`, order)
		err = s.db.SelectContext(ctx, &rows, q, addr.Index, addr.SubIndex, limit)
	}
	if err != nil {
		return pagination.Connection[types.CIS2Token]{}, fmt.Errorf("store: cis2 tokens by contract: %w", err)
	}
	if fromEnd {
		reverse(rows)
	}

	var res struct {
		Min   *int64 `db:"min"`
		Max   *int64 `db:"max"`
		Count int64  `db:"count"`
	}
	err = s.db.GetContext(ctx, &res, `SELECT MIN(index) AS min, MAX(index) AS max, COUNT(*) AS count
		FROM cis2_tokens WHERE contract_index = $1 AND contract_subindex = $2`, addr.Index, addr.SubIndex)
	if err != nil {
		return pagination.Connection[types.CIS2Token]{}, fmt.Errorf("store: cis2 tokens extremes: %w", err)
	}
	var extremes pagination.Extremes
	if res.Min != nil {
		extremes = pagination.Extremes{
			Min: pagination.NewI64(pagination.AscendingI64, *res.Min),
			Max: pagination.NewI64(pagination.AscendingI64, *res.Max),
		}
	}

	nodes := make([]types.CIS2Token, len(rows))
	cursors := make([]pagination.Cursor, len(rows))
	for i, r := range rows {
		nodes[i] = *r.toDomain()
		cursors[i] = pagination.NewI64(pagination.AscendingI64, r.Index)
	}
	return pagination.BuildConnection(nodes, cursors, res.Count, extremes), nil
}

type cis2TokenRow struct {
	Index            int64  `db:"index"`
	ContractIndex    int64  `db:"contract_index"`
	ContractSubindex int64  `db:"contract_subindex"`
	RawTokenID       string `db:"raw_token_id"`
	TokenAddress     string `db:"token_address"`
	TotalSupply      string `db:"total_supply"`
	MetadataURL      string `db:"metadata_url"`
}

func (r cis2TokenRow) toDomain() *types.CIS2Token {
	return &types.CIS2Token{
		Index:        types.TokenIndex(r.Index),
		Contract:     types.ContractAddress{Index: uint64(r.ContractIndex), SubIndex: uint64(r.ContractSubindex)},
		RawTokenID:   r.RawTokenID,
		TokenAddress: r.TokenAddress,
		TotalSupply:  parseBig(r.TotalSupply),
		MetadataURL:  r.MetadataURL,
	}
}

// CIS2AccountBalance fetches one (account, token) balance row, zero if
// absent (a zero balance is never written explicitly).
func (s *Store) CIS2AccountBalance(ctx context.Context, account types.AccountIndex, token types.TokenIndex) (*big.Int, error) {
	var balance string
	err := s.db.GetContext(ctx, &balance, `SELECT balance FROM cis2_account_balances WHERE account_index = $1 AND token_index = $2`, account, token)
	if err != nil {
		return new(big.Int), nil
	}
	return parseBig(balance), nil
}

// --- Protocol-level tokens ---

// PLTByID fetches one protocol-level token by its chain-level id.
func (s *Store) PLTByID(ctx context.Context, tokenID string) (*types.PLT, error) {
	var row pltRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM plt_tokens WHERE token_id = $1`, tokenID)
	if err != nil {
		return nil, fmt.Errorf("store: plt %s not found: %w", tokenID, err)
	}
	return row.toDomain(), nil
}

// PLTs pages over every protocol-level token by token id -- PLTs have no
// dense integer index, so this is a simple keyset page over the unique
// token_id column rather than a pagination.Connection.
func (s *Store) PLTs(ctx context.Context, after *string, limit int32) ([]types.PLT, error) {
	var rows []pltRow
	var err error
	if after != nil {
		err = s.db.SelectContext(ctx, &rows,
			`SELECT * FROM plt_tokens WHERE token_id > $1 ORDER BY token_id ASC LIMIT $2`, *after, limit)
	} else {
		err = s.db.SelectContext(ctx, &rows, `SELECT * FROM plt_tokens ORDER BY token_id ASC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("store: plts: %w", err)
	}
	out := make([]types.PLT, len(rows))
	for i, r := range rows {
		out[i] = *r.toDomain()
	}
	return out, nil
}

type pltRow struct {
	TokenID       string `db:"token_id"`
	IssuerIndex   int64  `db:"issuer_account_index"`
	ModuleRef     []byte `db:"module_ref"`
	Decimals      int16  `db:"decimals"`
	InitialSupply string `db:"initial_supply"`
	Minted        string `db:"minted"`
	Burned        string `db:"burned"`
	CurrentSupply string `db:"current_supply"`
	Paused        bool   `db:"paused"`
}

func (r pltRow) toDomain() *types.PLT {
	p := &types.PLT{
		TokenID:       r.TokenID,
		Issuer:        types.AccountIndex(r.IssuerIndex),
		Decimals:      uint8(r.Decimals),
		Paused:        r.Paused,
		InitialSupply: parseBig(r.InitialSupply),
		Minted:        parseBig(r.Minted),
		Burned:        parseBig(r.Burned),
		CurrentSupply: parseBig(r.CurrentSupply),
	}
	copy(p.ModuleRef[:], r.ModuleRef)
	return p
}

// PLTAccountBalance fetches one (account, token) PLT balance, zero if
// absent.
func (s *Store) PLTAccountBalance(ctx context.Context, account types.AccountIndex, tokenID string) (*big.Int, error) {
	var balance string
	err := s.db.GetContext(ctx, &balance, `SELECT balance FROM plt_account_balances WHERE account_index = $1 AND token_id = $2`, account, tokenID)
	if err != nil {
		return new(big.Int), nil
	}
	return parseBig(balance), nil
}

// ChainParameters fetches the single-row chain parameters table,
// consulting the hot-row cache first.
func (s *Store) ChainParameters(ctx context.Context) (*types.ChainParameters, error) {
	if p := s.cache.PullChainParameters(); p != nil {
		return p, nil
	}
	var row struct {
		EpochDurationMs       int64 `db:"epoch_duration_ms"`
		RewardPeriodLength    int64 `db:"reward_period_length"`
		LastPaydayBlockHeight int64 `db:"last_payday_block_height"`
	}
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM current_chain_parameters`); err != nil {
		return nil, fmt.Errorf("store: chain parameters: %w", err)
	}
	p := &types.ChainParameters{
		EpochDurationMillis:   uint64(row.EpochDurationMs),
		RewardPeriodLength:    uint64(row.RewardPeriodLength),
		LastPaydayBlockHeight: types.BlockHeight(row.LastPaydayBlockHeight),
	}
	_ = s.cache.PushChainParameters(p)
	return p, nil
}
