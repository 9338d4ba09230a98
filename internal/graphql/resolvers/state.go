package resolvers

import (
	"context"

	"github.com/concordium/ccdscan-go/internal/store"
	"github.com/concordium/ccdscan-go/internal/types"
)

// currentState backs the CurrentState summary field, gathering a handful
// of counts and the chain tip in one resolver rather than forcing clients
// to issue five separate round trips.
type currentState struct {
	st               *store.Store
	lastBlock        *types.Block
	blockCount       uint64
	txCount          uint64
	accountCount     uint64
	validatorCount   uint64
	chainParameters  *types.ChainParameters
}

func newCurrentState(ctx context.Context, st *store.Store) (*currentState, error) {
	cs := &currentState{st: st}

	if b, err := st.LatestBlock(ctx); err == nil {
		cs.lastBlock = b
		cs.blockCount = uint64(b.Height) + 1
	}

	if n, err := st.TransactionsCount(ctx); err == nil {
		cs.txCount = n
	}
	if n, err := st.AccountsActive(ctx); err == nil {
		cs.accountCount = n
	}
	if n, err := st.ValidatorsCount(ctx); err == nil {
		cs.validatorCount = n
	}
	if p, err := st.ChainParameters(ctx); err == nil {
		cs.chainParameters = p
	} else {
		cs.chainParameters = &types.ChainParameters{}
	}

	return cs, nil
}

func (cs *currentState) LastBlock() *Block {
	if cs.lastBlock == nil {
		return nil
	}
	return newBlock(cs.lastBlock, cs.st)
}

func (cs *currentState) BlockCount() Long       { return Long(cs.blockCount) }
func (cs *currentState) TransactionCount() Long { return Long(cs.txCount) }
func (cs *currentState) AccountCount() Long     { return Long(cs.accountCount) }
func (cs *currentState) ValidatorCount() Long   { return Long(cs.validatorCount) }

func (cs *currentState) ChainParameters() *chainParameters {
	return &chainParameters{*cs.chainParameters}
}

type chainParameters struct {
	types.ChainParameters
}

func (p *chainParameters) EpochDurationMs() Long {
	return Long(p.ChainParameters.EpochDurationMillis)
}
func (p *chainParameters) RewardPeriodLength() Long {
	return Long(p.ChainParameters.RewardPeriodLength)
}
func (p *chainParameters) LastPaydayBlockHeight() Long {
	return Long(p.ChainParameters.LastPaydayBlockHeight)
}
