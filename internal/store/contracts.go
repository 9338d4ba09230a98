package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/concordium/ccdscan-go/internal/types"
)

// InsertModule records a new smart-contract module (§3 Smart-contract
// module).
func (s *Store) InsertModule(ctx context.Context, tx *sqlx.Tx, ref types.ModuleRef, schema []byte, initTx types.TransactionIndex) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO modules (ref, schema, init_tx_index) VALUES ($1, $2, $3)`,
		ref[:], schema, initTx)
	if err != nil {
		return fmt.Errorf("store: insert module %s: %w", ref, err)
	}
	return nil
}

// InsertContract creates a new contract instance row.
func (s *Store) InsertContract(ctx context.Context, tx *sqlx.Tx, addr types.ContractAddress, moduleRef types.ModuleRef, initName string, initTx types.TransactionIndex) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO contracts (index, subindex, module_ref, init_name, amount, init_tx_index)
		VALUES ($1, $2, $3, $4, 0, $5)`,
		addr.Index, addr.SubIndex, moduleRef[:], initName, initTx)
	if err != nil {
		return fmt.Errorf("store: insert contract %s: %w", addr, err)
	}
	return nil
}

// AppendModuleLink appends one linkage row (§3: "an append-only list").
func (s *Store) AppendModuleLink(ctx context.Context, tx *sqlx.Tx, ref types.ModuleRef, addr types.ContractAddress, event types.LinkEvent, txIndex types.TransactionIndex) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO module_links (module_ref, contract_index, contract_subindex, event, tx_index)
		VALUES ($1, $2, $3, $4, $5)`,
		ref[:], addr.Index, addr.SubIndex, event, txIndex)
	if err != nil {
		return fmt.Errorf("store: append module link %s/%s: %w", ref, addr, err)
	}
	return nil
}

// RelinkContract performs a module upgrade's paired link-removed /
// link-added rows and bumps the contract's last_upgrade_transaction_index
// in one call (§4.2 rule 3).
func (s *Store) RelinkContract(ctx context.Context, tx *sqlx.Tx, addr types.ContractAddress, oldModule, newModule types.ModuleRef, txIndex types.TransactionIndex) error {
	if err := s.AppendModuleLink(ctx, tx, oldModule, addr, types.LinkRemoved, txIndex); err != nil {
		return err
	}
	if err := s.AppendModuleLink(ctx, tx, newModule, addr, types.LinkAdded, txIndex); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE contracts SET module_ref = $3, last_upgrade_tx_index = $4
		WHERE index = $1 AND subindex = $2`,
		addr.Index, addr.SubIndex, newModule[:], txIndex)
	if err != nil {
		return fmt.Errorf("store: relink contract %s: %w", addr, err)
	}
	n, _ := res.RowsAffected()
	return assertRows(n, 1, 1, fmt.Sprintf("relink contract %s", addr))
}

// AdjustContractBalance applies a signed CCD delta to a contract
// instance's balance, e.g. from an Update/Transfer trace event.
func (s *Store) AdjustContractBalance(ctx context.Context, tx *sqlx.Tx, addr types.ContractAddress, deltaMicroCCD string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE contracts SET amount = amount + $3::NUMERIC WHERE index = $1 AND subindex = $2`,
		addr.Index, addr.SubIndex, deltaMicroCCD)
	if err != nil {
		return fmt.Errorf("store: adjust contract balance %s: %w", addr, err)
	}
	n, _ := res.RowsAffected()
	return assertRows(n, 1, 1, fmt.Sprintf("adjust contract balance %s", addr))
}

// Contract fetches one contract instance by address.
func (s *Store) Contract(ctx context.Context, addr types.ContractAddress) (*types.Contract, error) {
	var row contractRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM contracts WHERE index = $1 AND subindex = $2`, addr.Index, addr.SubIndex)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, addr)
	}
	return row.toDomain(), nil
}

type contractRow struct {
	Index              int64  `db:"index"`
	Subindex           int64  `db:"subindex"`
	ModuleRef          []byte `db:"module_ref"`
	InitName           string `db:"init_name"`
	Amount             string `db:"amount"`
	InitTxIndex        int64  `db:"init_tx_index"`
	LastUpgradeTxIndex *int64 `db:"last_upgrade_tx_index"`
}

func (r contractRow) toDomain() *types.Contract {
	c := &types.Contract{
		Address:     types.ContractAddress{Index: uint64(r.Index), SubIndex: uint64(r.Subindex)},
		InitName:    r.InitName,
		InitTxIndex: types.TransactionIndex(r.InitTxIndex),
	}
	copy(c.ModuleRef[:], r.ModuleRef)
	if r.LastUpgradeTxIndex != nil {
		t := types.TransactionIndex(*r.LastUpgradeTxIndex)
		c.LastUpgradeTxIndex = &t
	}
	return c
}
