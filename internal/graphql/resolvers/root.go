package resolvers

import (
	"context"

	"github.com/concordium/ccdscan-go/internal/config"
	"github.com/concordium/ccdscan-go/internal/logger"
	"github.com/concordium/ccdscan-go/internal/pagination"
	"github.com/concordium/ccdscan-go/internal/store"
	"github.com/concordium/ccdscan-go/internal/types"
)

// Root is the GraphQL root resolver every Query/Subscription field
// dispatches through, mirroring the teacher's rootResolver: a thin struct
// embedding the store facade and a logger, with every field method
// delegating straight into the store.
type Root struct {
	st  *store.Store
	cfg *config.Config
	log logger.Logger

	blockFeed *blockFeed
}

// New builds the root resolver.
func New(st *store.Store, cfg *config.Config, log logger.Logger) *Root {
	return &Root{st: st, cfg: cfg, log: log, blockFeed: newBlockFeed()}
}

// connectionArgs is the (first, after, last, before) argument shape every
// list field in the schema takes (§4.4, §6).
type connectionArgs struct {
	First  *int32
	After  *Cursor
	Last   *int32
	Before *Cursor
}

func (a connectionArgs) toRequest() pagination.Request {
	req := pagination.Request{First: a.First, Last: a.Last}
	if a.After != nil {
		s := string(*a.After)
		req.After = &s
	}
	if a.Before != nil {
		s := string(*a.Before)
		req.Before = &s
	}
	return req
}

// pageInfo converts a pagination.PageInfo into its GraphQL-facing
// ListPageInfo shape (first/last/hasNext/hasPrevious).
type pageInfo struct{ p pagination.PageInfo }

func (pi pageInfo) First() *Cursor {
	if pi.p.StartCursor == nil {
		return nil
	}
	c := Cursor(*pi.p.StartCursor)
	return &c
}

func (pi pageInfo) Last() *Cursor {
	if pi.p.EndCursor == nil {
		return nil
	}
	c := Cursor(*pi.p.EndCursor)
	return &c
}

func (pi pageInfo) HasNext() bool     { return pi.p.HasNextPage }
func (pi pageInfo) HasPrevious() bool { return pi.p.HasPreviousPage }

// State resolves the CurrentState summary field.
func (r *Root) State(ctx context.Context) (*currentState, error) {
	return newCurrentState(ctx, r.st)
}

// Account resolves an account by its Base58Check address.
func (r *Root) Account(ctx context.Context, args struct{ Address string }) (*Account, error) {
	a, err := r.st.AccountByAddress(ctx, types.AccountAddress(args.Address))
	if err != nil {
		return nil, err
	}
	return newAccount(a, r.st), nil
}

// Accounts pages over every account.
func (r *Root) Accounts(ctx context.Context, args connectionArgs) (*accountList, error) {
	conn, err := r.st.AccountsConnection(ctx, args.toRequest(), r.cfg.ConnectionLimit("accounts"))
	if err != nil {
		return nil, err
	}
	return newAccountList(conn, r.st), nil
}

// Block resolves a single block: by height, by hash, or the most recent
// one if neither argument is given.
func (r *Root) Block(ctx context.Context, args struct {
	Height *Long
	Hash   *Hash
}) (*Block, error) {
	var (
		b   *types.Block
		err error
	)
	switch {
	case args.Height != nil:
		b, err = r.st.BlockByHeight(ctx, types.BlockHeight(*args.Height))
	case args.Hash != nil:
		b, err = r.st.BlockByHash(ctx, types.BlockHash(*args.Hash))
	default:
		b, err = r.st.LatestBlock(ctx)
	}
	if err != nil {
		return nil, err
	}
	return newBlock(b, r.st), nil
}

// Blocks pages over every block.
func (r *Root) Blocks(ctx context.Context, args connectionArgs) (*blockList, error) {
	conn, err := r.st.BlocksConnection(ctx, args.toRequest(), r.cfg.ConnectionLimit("blocks"))
	if err != nil {
		return nil, err
	}
	return newBlockList(conn, r.st), nil
}

// Transaction resolves a single transaction by hash.
func (r *Root) Transaction(ctx context.Context, args struct{ Hash Hash }) (*Transaction, error) {
	t, err := r.st.Transaction(ctx, [32]byte(args.Hash))
	if err != nil {
		return nil, err
	}
	return newTransaction(t, r.st), nil
}

// Transactions pages over every transaction.
func (r *Root) Transactions(ctx context.Context, args connectionArgs) (*transactionList, error) {
	conn, err := r.st.TransactionsConnection(ctx, args.toRequest(), r.cfg.ConnectionLimit("transactions"))
	if err != nil {
		return nil, err
	}
	return newTransactionList(conn, r.st), nil
}

// Validator resolves a single validator by baker id.
func (r *Root) Validator(ctx context.Context, args struct{ Id Long }) (*Validator, error) {
	v, err := r.st.ValidatorByID(ctx, types.BakerID(args.Id))
	if err != nil {
		return nil, err
	}
	return newValidator(v, r.st), nil
}

// Validators pages over every validator.
func (r *Root) Validators(ctx context.Context, args connectionArgs) (*validatorList, error) {
	conn, err := r.st.ValidatorsConnection(ctx, args.toRequest(), r.cfg.ConnectionLimit("validators"))
	if err != nil {
		return nil, err
	}
	return newValidatorList(conn, r.st), nil
}

// Contract resolves a single contract instance by its (index, subIndex)
// address.
func (r *Root) Contract(ctx context.Context, args struct{ Index, SubIndex Long }) (*Contract, error) {
	addr := types.ContractAddress{Index: uint64(args.Index), SubIndex: uint64(args.SubIndex)}
	c, err := r.st.Contract(ctx, addr)
	if err != nil {
		return nil, err
	}
	return newContract(c, r.st), nil
}

// Contracts pages over every contract instance.
func (r *Root) Contracts(ctx context.Context, args connectionArgs) (*contractList, error) {
	conn, err := r.st.ContractsConnection(ctx, args.toRequest(), r.cfg.ConnectionLimit("contracts"))
	if err != nil {
		return nil, err
	}
	return newContractList(conn, r.st), nil
}

// Module resolves a smart-contract module by its reference hash.
func (r *Root) Module(ctx context.Context, args struct{ Ref Hash }) (*Module, error) {
	ref := types.ModuleRef(args.Ref)
	m, err := r.st.ModuleByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	return newModule(m, r.st), nil
}

// Cis2Token resolves a CIS-2 token by its derived token address.
func (r *Root) Cis2Token(ctx context.Context, args struct{ TokenAddress string }) (*cis2Token, error) {
	t, err := r.st.CIS2TokenByAddress(ctx, args.TokenAddress)
	if err != nil {
		return nil, err
	}
	return newCIS2Token(t, r.st), nil
}

// Plt resolves a protocol-level token by its chain-level id.
func (r *Root) Plt(ctx context.Context, args struct{ TokenId string }) (*plt, error) {
	p, err := r.st.PLTByID(ctx, args.TokenId)
	if err != nil {
		return nil, err
	}
	return newPLT(p, r.st), nil
}

// Plts pages over every protocol-level token, keyed by token id rather
// than through the Connection wrapper (§9: PLTs have no dense integer
// index to build a stable Connection cursor on).
func (r *Root) Plts(ctx context.Context, args struct {
	First *int32
	After *string
}) ([]*plt, error) {
	limit := r.cfg.ConnectionLimit("tokens")
	if args.First != nil {
		limit = *args.First
		if max := r.cfg.ConnectionLimit("tokens"); limit > max {
			limit = max
		}
	}
	rows, err := r.st.PLTs(ctx, args.After, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*plt, len(rows))
	for i := range rows {
		out[i] = newPLT(&rows[i], r.st)
	}
	return out, nil
}

// OnBlock resolves the onBlock subscription, streaming each block the
// committer commits as it commits it (§6: subscriptions support).
func (r *Root) OnBlock(ctx context.Context) <-chan *Block {
	raw := r.blockFeed.subscribe(ctx)
	out := make(chan *Block)
	go func() {
		defer close(out)
		for b := range raw {
			select {
			case out <- newBlock(b, r.st):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// PublishBlock feeds a newly committed block to every active onBlock
// subscriber. cmd/api calls this for each new-block notification the
// indexer's committer sends through Postgres, so the API process stays in
// sync without polling.
func (r *Root) PublishBlock(b *types.Block) {
	r.blockFeed.publish(b)
}
