package resolvers

import (
	"github.com/concordium/ccdscan-go/internal/pagination"
	"github.com/concordium/ccdscan-go/internal/store"
	"github.com/concordium/ccdscan-go/internal/types"
)

var openStatusNames = map[types.OpenStatus]string{
	types.OpenForAll:    "OpenForAll",
	types.ClosedForNew:  "ClosedForNew",
	types.ClosedForAll:  "ClosedForAll",
}

var suspensionStateNames = map[types.SuspensionState]string{
	types.SuspensionActive:   "Active",
	types.SuspensionPrimed:   "Primed",
	types.SuspensionInactive: "Inactive",
	types.SuspensionSelf:     "SelfSuspended",
}

// Validator is the resolvable wrapper around types.Validator.
type Validator struct {
	st *store.Store
	types.Validator
}

func newValidator(v *types.Validator, st *store.Store) *Validator {
	return &Validator{st: st, Validator: *v}
}

func (v *Validator) Id() Long                     { return Long(v.Validator.ID) }
func (v *Validator) StakedAmount() BigInt         { return NewBigIntFromHex(v.Validator.StakedAmount) }
func (v *Validator) RestakeEarnings() bool        { return v.Validator.RestakeEarnings }
func (v *Validator) OpenStatus() string           { return openStatusNames[v.Validator.OpenStatus] }
func (v *Validator) MetadataUrl() string          { return v.Validator.MetadataURL }
func (v *Validator) TransactionFeeCommission() float64 { return v.Validator.TransactionFee }
func (v *Validator) BakingRewardCommission() float64   { return v.Validator.BakingReward }
func (v *Validator) FinalizationRewardCommission() float64 {
	return v.Validator.FinalizationReward
}
func (v *Validator) PoolTotalStaked() BigInt { return NewBigIntFromHex(v.Validator.PoolTotalStaked) }
func (v *Validator) PoolDelegatorCount() Long { return Long(v.Validator.PoolDelegatorCount) }

func (v *Validator) SuspensionState() string {
	return suspensionStateNames[v.Validator.State()]
}

// validatorList wraps a pagination.Connection[types.Validator].
type validatorList struct {
	conn pagination.Connection[types.Validator]
	st   *store.Store
}

func newValidatorList(conn pagination.Connection[types.Validator], st *store.Store) *validatorList {
	return &validatorList{conn: conn, st: st}
}

func (l *validatorList) Edges() []*validatorEdge {
	out := make([]*validatorEdge, len(l.conn.Edges))
	for i, e := range l.conn.Edges {
		out[i] = &validatorEdge{cursor: Cursor(e.Cursor), node: newValidator(&e.Node, l.st)}
	}
	return out
}

func (l *validatorList) TotalCount() Long   { return Long(l.conn.TotalCount) }
func (l *validatorList) PageInfo() pageInfo { return pageInfo{l.conn.PageInfo} }

type validatorEdge struct {
	cursor Cursor
	node   *Validator
}

func (e *validatorEdge) Cursor() Cursor   { return e.cursor }
func (e *validatorEdge) Node() *Validator { return e.node }
