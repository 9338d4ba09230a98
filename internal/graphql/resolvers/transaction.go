package resolvers

import (
	"context"

	"github.com/concordium/ccdscan-go/internal/pagination"
	"github.com/concordium/ccdscan-go/internal/store"
	"github.com/concordium/ccdscan-go/internal/types"
)

// transactionFamilyNames gives the §3 Transaction family enum its textual
// GraphQL representation.
var transactionFamilyNames = map[types.TransactionFamily]string{
	types.TransactionFamilyAccount:              "Account",
	types.TransactionFamilyChainUpdate:          "ChainUpdate",
	types.TransactionFamilyCredentialDeployment: "CredentialDeployment",
}

// Transaction is the resolvable wrapper around types.Transaction.
type Transaction struct {
	st *store.Store
	types.Transaction
}

func newTransaction(t *types.Transaction, st *store.Store) *Transaction {
	return &Transaction{st: st, Transaction: *t}
}

func (t *Transaction) Index() Long       { return Long(t.Transaction.Index) }
func (t *Transaction) Hash() Hash        { return Hash(t.Transaction.Hash) }
func (t *Transaction) BlockHeight() Long { return Long(t.Transaction.BlockHeight) }

func (t *Transaction) Block(ctx context.Context) (*Block, error) {
	b, err := t.st.BlockByHeight(ctx, t.Transaction.BlockHeight)
	if err != nil {
		return nil, err
	}
	return newBlock(b, t.st), nil
}

func (t *Transaction) CostMicroCcd() BigInt { return NewBigIntFromHex(t.Transaction.CostMicroCCD) }
func (t *Transaction) EnergyCost() Long     { return Long(t.Transaction.EnergyCost) }

func (t *Transaction) Sender(ctx context.Context) (*Account, error) {
	if t.Transaction.SenderAccountIndex == nil {
		return nil, nil
	}
	a, err := t.st.AccountByIndex(ctx, *t.Transaction.SenderAccountIndex)
	if err != nil {
		return nil, nil
	}
	return newAccount(a, t.st), nil
}

func (t *Transaction) Family() string  { return transactionFamilyNames[t.Transaction.Family] }
func (t *Transaction) Subtype() string { return t.Transaction.Subtype }
func (t *Transaction) Success() bool   { return t.Transaction.Success }

func (t *Transaction) EventsJson() *Bytes {
	if t.Transaction.EventsJSON == nil {
		return nil
	}
	b := Bytes(t.Transaction.EventsJSON)
	return &b
}

func (t *Transaction) RejectJson() *Bytes {
	if t.Transaction.RejectJSON == nil {
		return nil
	}
	b := Bytes(t.Transaction.RejectJSON)
	return &b
}

// transactionList wraps a pagination.Connection[types.Transaction].
type transactionList struct {
	conn pagination.Connection[types.Transaction]
	st   *store.Store
}

func newTransactionList(conn pagination.Connection[types.Transaction], st *store.Store) *transactionList {
	return &transactionList{conn: conn, st: st}
}

func (l *transactionList) Edges() []*transactionEdge {
	out := make([]*transactionEdge, len(l.conn.Edges))
	for i, e := range l.conn.Edges {
		out[i] = &transactionEdge{cursor: Cursor(e.Cursor), node: newTransaction(&e.Node, l.st)}
	}
	return out
}

func (l *transactionList) TotalCount() Long   { return Long(l.conn.TotalCount) }
func (l *transactionList) PageInfo() pageInfo { return pageInfo{l.conn.PageInfo} }

type transactionEdge struct {
	cursor Cursor
	node   *Transaction
}

func (e *transactionEdge) Cursor() Cursor     { return e.cursor }
func (e *transactionEdge) Node() *Transaction { return e.node }
