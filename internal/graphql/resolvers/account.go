package resolvers

import (
	"context"

	"github.com/concordium/ccdscan-go/internal/pagination"
	"github.com/concordium/ccdscan-go/internal/store"
	"github.com/concordium/ccdscan-go/internal/types"
)

// Account is the resolvable wrapper around types.Account, following the
// teacher's pattern of embedding the domain entity alongside the store
// handle needed to resolve its lazy relationship fields.
type Account struct {
	st *store.Store
	types.Account
}

func newAccount(a *types.Account, st *store.Store) *Account {
	return &Account{st: st, Account: *a}
}

func (a *Account) Index() Long     { return Long(a.Account.Index) }
func (a *Account) Address() string { return string(a.Account.Address) }
func (a *Account) Amount() BigInt  { return NewBigIntFromHex(a.Account.Amount) }
func (a *Account) TxCount() Long   { return Long(a.Account.NumTxs) }

func (a *Account) DelegatedStake() BigInt { return NewBigIntFromHex(a.Account.DelegatedStake) }

func (a *Account) DelegatedTargetBakerId() *Long {
	if a.Account.DelegatedTargetBakerID == nil {
		return nil
	}
	l := Long(*a.Account.DelegatedTargetBakerID)
	return &l
}

func (a *Account) Delegating() bool { return a.Account.Delegating() }

// Validator resolves the Validator owned by this account, if any -- an
// account index also serves as its validator's baker id (§3 Validator).
func (a *Account) Validator(ctx context.Context) (*Validator, error) {
	v, err := a.st.ValidatorByID(ctx, types.BakerID(a.Account.Index))
	if err != nil {
		return nil, nil
	}
	return newValidator(v, a.st), nil
}

// ScheduledReleases resolves every still-pending scheduled release owned
// by this account.
func (a *Account) ScheduledReleases(ctx context.Context) ([]*scheduledRelease, error) {
	rows, err := a.st.ScheduledReleasesForAccount(ctx, a.Account.Index)
	if err != nil {
		return nil, err
	}
	out := make([]*scheduledRelease, len(rows))
	for i := range rows {
		out[i] = &scheduledRelease{rows[i]}
	}
	return out, nil
}

// Transactions pages over every transaction this account sent; transactions
// that only credit or otherwise affect it are not included.
func (a *Account) Transactions(ctx context.Context, args connectionArgs) (*transactionList, error) {
	conn, err := a.st.TransactionsByAccountConnection(ctx, a.Account.Index, args.toRequest(), 50)
	if err != nil {
		return nil, err
	}
	return newTransactionList(conn, a.st), nil
}

type scheduledRelease struct {
	types.ScheduledRelease
}

func (s *scheduledRelease) ReleaseTime() Long { return Long(s.ScheduledRelease.ReleaseTime) }
func (s *scheduledRelease) Amount() BigInt    { return NewBigIntFromHex(s.ScheduledRelease.Amount) }

// accountList wraps a pagination.Connection[types.Account] in the
// schema's AccountList/AccountEdge shape.
type accountList struct {
	conn pagination.Connection[types.Account]
	st   *store.Store
}

func newAccountList(conn pagination.Connection[types.Account], st *store.Store) *accountList {
	return &accountList{conn: conn, st: st}
}

func (l *accountList) Edges() []*accountEdge {
	out := make([]*accountEdge, len(l.conn.Edges))
	for i, e := range l.conn.Edges {
		out[i] = &accountEdge{cursor: Cursor(e.Cursor), node: newAccount(&e.Node, l.st)}
	}
	return out
}

func (l *accountList) TotalCount() Long     { return Long(l.conn.TotalCount) }
func (l *accountList) PageInfo() pageInfo   { return pageInfo{l.conn.PageInfo} }

type accountEdge struct {
	cursor Cursor
	node   *Account
}

func (e *accountEdge) Cursor() Cursor  { return e.cursor }
func (e *accountEdge) Node() *Account  { return e.node }
