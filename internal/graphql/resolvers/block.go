package resolvers

import (
	"context"

	"github.com/concordium/ccdscan-go/internal/pagination"
	"github.com/concordium/ccdscan-go/internal/store"
	"github.com/concordium/ccdscan-go/internal/types"
)

// Block is the resolvable wrapper around types.Block.
type Block struct {
	st *store.Store
	types.Block
}

func newBlock(b *types.Block, st *store.Store) *Block {
	return &Block{st: st, Block: *b}
}

func (b *Block) Height() Long { return Long(b.Block.Height) }
func (b *Block) Hash() Hash   { return Hash(b.Block.Hash) }
func (b *Block) SlotTime() Long {
	return Long(b.Block.SlotTime.UnixMilli())
}
func (b *Block) BlockTimeMs() Long { return Long(b.Block.BlockTime.Milliseconds()) }

// Baker resolves the validator that produced this block, nil for genesis.
func (b *Block) Baker(ctx context.Context) (*Validator, error) {
	if b.Block.BakerID == nil {
		return nil, nil
	}
	v, err := b.st.ValidatorByID(ctx, *b.Block.BakerID)
	if err != nil {
		return nil, nil
	}
	return newValidator(v, b.st), nil
}

func (b *Block) CumulativeTransactionCount() Long {
	return Long(b.Block.CumulativeTransactionCount)
}

func (b *Block) FinalizationTimeMs() *Long {
	if b.Block.FinalizationTime == nil {
		return nil
	}
	l := Long(b.Block.FinalizationTime.Milliseconds())
	return &l
}

func (b *Block) FinalizedBy() *Long {
	if b.Block.FinalizedBy == nil {
		return nil
	}
	l := Long(*b.Block.FinalizedBy)
	return &l
}

func (b *Block) CumulativeFinalizationTimeMs() Long {
	return Long(b.Block.CumulativeFinalizationTime.Milliseconds())
}

func (b *Block) TotalAmount() BigInt       { return NewBigIntFromHex(b.Block.TotalAmount) }
func (b *Block) TotalStakedAmount() BigInt { return NewBigIntFromHex(b.Block.TotalStakedAmount) }

// TransactionCount and Transactions both resolve a block's own
// transaction list through store.TransactionsInBlock, one unpaginated
// fetch of every transaction at this height -- blocks hold few enough
// transactions that this is acceptable (§6, block detail view).
func (b *Block) TransactionCount(ctx context.Context) (int32, error) {
	txs, err := b.fetchTransactions(ctx)
	if err != nil {
		return 0, err
	}
	return int32(len(txs)), nil
}

func (b *Block) Transactions(ctx context.Context) ([]*Transaction, error) {
	txs, err := b.fetchTransactions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Transaction, len(txs))
	for i := range txs {
		out[i] = newTransaction(&txs[i], b.st)
	}
	return out, nil
}

func (b *Block) fetchTransactions(ctx context.Context) ([]types.Transaction, error) {
	conn, err := b.st.TransactionsInBlock(ctx, b.Block.Height)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// blockList wraps a pagination.Connection[types.Block].
type blockList struct {
	conn pagination.Connection[types.Block]
	st   *store.Store
}

func newBlockList(conn pagination.Connection[types.Block], st *store.Store) *blockList {
	return &blockList{conn: conn, st: st}
}

func (l *blockList) Edges() []*blockEdge {
	out := make([]*blockEdge, len(l.conn.Edges))
	for i, e := range l.conn.Edges {
		out[i] = &blockEdge{cursor: Cursor(e.Cursor), node: newBlock(&e.Node, l.st)}
	}
	return out
}

func (l *blockList) TotalCount() Long   { return Long(l.conn.TotalCount) }
func (l *blockList) PageInfo() pageInfo { return pageInfo{l.conn.PageInfo} }

type blockEdge struct {
	cursor Cursor
	node   *Block
}

func (e *blockEdge) Cursor() Cursor { return e.cursor }
func (e *blockEdge) Node() *Block   { return e.node }
