package resolvers

import (
	"context"
	"fmt"

	"github.com/concordium/ccdscan-go/internal/pagination"
	"github.com/concordium/ccdscan-go/internal/store"
	"github.com/concordium/ccdscan-go/internal/types"
)

// cis2Token is the resolvable wrapper around types.CIS2Token.
type cis2Token struct {
	st *store.Store
	types.CIS2Token
}

func newCIS2Token(t *types.CIS2Token, st *store.Store) *cis2Token {
	return &cis2Token{st: st, CIS2Token: *t}
}

func (t *cis2Token) Index() Long { return Long(t.CIS2Token.Index) }
func (t *cis2Token) ContractAddress() string {
	return fmt.Sprintf("<%d,%d>", t.CIS2Token.Contract.Index, t.CIS2Token.Contract.SubIndex)
}
func (t *cis2Token) RawTokenId() string   { return t.CIS2Token.RawTokenID }
func (t *cis2Token) TokenAddress() string { return t.CIS2Token.TokenAddress }
func (t *cis2Token) TotalSupply() BigInt  { return *NewBigInt(t.CIS2Token.TotalSupply) }
func (t *cis2Token) MetadataUrl() string  { return t.CIS2Token.MetadataURL }

// cis2TokenList wraps a pagination.Connection[types.CIS2Token].
type cis2TokenList struct {
	conn pagination.Connection[types.CIS2Token]
	st   *store.Store
}

func newCIS2TokenList(conn pagination.Connection[types.CIS2Token], st *store.Store) *cis2TokenList {
	return &cis2TokenList{conn: conn, st: st}
}

func (l *cis2TokenList) Edges() []*cis2TokenEdge {
	out := make([]*cis2TokenEdge, len(l.conn.Edges))
	for i, e := range l.conn.Edges {
		out[i] = &cis2TokenEdge{cursor: Cursor(e.Cursor), node: newCIS2Token(&e.Node, l.st)}
	}
	return out
}

func (l *cis2TokenList) TotalCount() Long   { return Long(l.conn.TotalCount) }
func (l *cis2TokenList) PageInfo() pageInfo { return pageInfo{l.conn.PageInfo} }

type cis2TokenEdge struct {
	cursor Cursor
	node   *cis2Token
}

func (e *cis2TokenEdge) Cursor() Cursor    { return e.cursor }
func (e *cis2TokenEdge) Node() *cis2Token { return e.node }

// plt is the resolvable wrapper around types.PLT.
type plt struct {
	st *store.Store
	types.PLT
}

func newPLT(p *types.PLT, st *store.Store) *plt {
	return &plt{st: st, PLT: *p}
}

func (p *plt) TokenId() string { return p.PLT.TokenID }

func (p *plt) Issuer(ctx context.Context) (*Account, error) {
	a, err := p.st.AccountByIndex(ctx, p.PLT.Issuer)
	if err != nil {
		return nil, err
	}
	return newAccount(a, p.st), nil
}

func (p *plt) ModuleRef() Hash       { return Hash(p.PLT.ModuleRef) }
func (p *plt) Decimals() int32       { return int32(p.PLT.Decimals) }
func (p *plt) InitialSupply() BigInt { return *NewBigInt(p.PLT.InitialSupply) }
func (p *plt) Minted() BigInt        { return *NewBigInt(p.PLT.Minted) }
func (p *plt) Burned() BigInt        { return *NewBigInt(p.PLT.Burned) }
func (p *plt) CurrentSupply() BigInt { return *NewBigInt(p.PLT.CurrentSupply) }
func (p *plt) Paused() bool          { return p.PLT.Paused }
