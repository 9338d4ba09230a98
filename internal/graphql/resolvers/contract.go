package resolvers

import (
	"context"
	"fmt"

	"github.com/concordium/ccdscan-go/internal/pagination"
	"github.com/concordium/ccdscan-go/internal/store"
	"github.com/concordium/ccdscan-go/internal/types"
)

// Contract is the resolvable wrapper around types.Contract.
type Contract struct {
	st *store.Store
	types.Contract
}

func newContract(c *types.Contract, st *store.Store) *Contract {
	return &Contract{st: st, Contract: *c}
}

func (c *Contract) Index() Long    { return Long(c.Contract.Address.Index) }
func (c *Contract) SubIndex() Long { return Long(c.Contract.Address.SubIndex) }
func (c *Contract) Address() string {
	return fmt.Sprintf("<%d,%d>", c.Contract.Address.Index, c.Contract.Address.SubIndex)
}
func (c *Contract) ModuleRef() Hash  { return Hash(c.Contract.ModuleRef) }
func (c *Contract) InitName() string { return c.Contract.InitName }
func (c *Contract) Amount() BigInt   { return NewBigIntFromHex(c.Contract.Amount) }
func (c *Contract) InitTxIndex() Long { return Long(c.Contract.InitTxIndex) }

func (c *Contract) LastUpgradeTxIndex() *Long {
	if c.Contract.LastUpgradeTxIndex == nil {
		return nil
	}
	l := Long(*c.Contract.LastUpgradeTxIndex)
	return &l
}

func (c *Contract) Module(ctx context.Context) (*Module, error) {
	m, err := c.st.ModuleByRef(ctx, c.Contract.ModuleRef)
	if err != nil {
		return nil, nil
	}
	return newModule(m, c.st), nil
}

func (c *Contract) Tokens(ctx context.Context, args connectionArgs) (*cis2TokenList, error) {
	conn, err := c.st.CIS2TokensByContractConnection(ctx, c.Contract.Address, args.toRequest(), 50)
	if err != nil {
		return nil, err
	}
	return newCIS2TokenList(conn, c.st), nil
}

// contractList wraps a pagination.Connection[types.Contract].
type contractList struct {
	conn pagination.Connection[types.Contract]
	st   *store.Store
}

func newContractList(conn pagination.Connection[types.Contract], st *store.Store) *contractList {
	return &contractList{conn: conn, st: st}
}

func (l *contractList) Edges() []*contractEdge {
	out := make([]*contractEdge, len(l.conn.Edges))
	for i, e := range l.conn.Edges {
		out[i] = &contractEdge{cursor: Cursor(e.Cursor), node: newContract(&e.Node, l.st)}
	}
	return out
}

func (l *contractList) TotalCount() Long   { return Long(l.conn.TotalCount) }
func (l *contractList) PageInfo() pageInfo { return pageInfo{l.conn.PageInfo} }

type contractEdge struct {
	cursor Cursor
	node   *Contract
}

func (e *contractEdge) Cursor() Cursor  { return e.cursor }
func (e *contractEdge) Node() *Contract { return e.node }

// Module is the resolvable wrapper around types.Module.
type Module struct {
	st *store.Store
	types.Module
}

func newModule(m *types.Module, st *store.Store) *Module {
	return &Module{st: st, Module: *m}
}

func (m *Module) Ref() Hash        { return Hash(m.Module.Ref) }
func (m *Module) HasSchema() bool  { return m.Module.Schema != nil }
func (m *Module) InitTxIndex() Long { return Long(m.Module.InitTxIndex) }

func (m *Module) Links(ctx context.Context) ([]*moduleLink, error) {
	links, err := m.st.ModuleLinks(ctx, m.Module.Ref)
	if err != nil {
		return nil, err
	}
	out := make([]*moduleLink, len(links))
	for i := range links {
		out[i] = &moduleLink{links[i]}
	}
	return out, nil
}

type moduleLink struct {
	types.ModuleLink
}

func (l *moduleLink) ContractAddress() string {
	return fmt.Sprintf("<%d,%d>", l.ModuleLink.Contract.Index, l.ModuleLink.Contract.SubIndex)
}
func (l *moduleLink) Event() string  { return string(l.ModuleLink.Event) }
func (l *moduleLink) TxIndex() Long  { return Long(l.ModuleLink.TxIndex) }
