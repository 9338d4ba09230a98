package types

import "math/big"

// CIS2Token is the §3 CIS-2 token entity. TotalSupply is signed to
// accommodate non-conformant contracts that burn more than they minted
// (§9 Design notes).
type CIS2Token struct {
	Index       TokenIndex
	Contract    ContractAddress
	RawTokenID  string // hex-encoded raw token id
	TokenAddress string // derived from (contract, raw token id)

	TotalSupply *big.Int
	MetadataURL string
}

// CIS2TokenEventKind tags a recognized CIS-2 event (§4.2 rule 2).
type CIS2TokenEventKind string

const (
	CIS2EventMint       CIS2TokenEventKind = "Mint"
	CIS2EventBurn       CIS2TokenEventKind = "Burn"
	CIS2EventTransfer   CIS2TokenEventKind = "Transfer"
	CIS2EventUpdateOperator CIS2TokenEventKind = "UpdateOperator"
	CIS2EventTokenMetadata  CIS2TokenEventKind = "TokenMetadata"
)

// CIS2TokenEvent is one row of a token's dense per-token event log.
type CIS2TokenEvent struct {
	TokenIndex TokenIndex
	Index      uint64 // dense, per-token
	TxIndex    TransactionIndex
	Kind       CIS2TokenEventKind
	Delta      *big.Int // signed amount delta, nil for non-amount events
}

// CIS2AccountBalance is one row per (account, token) (§3 CIS-2 account
// balance).
type CIS2AccountBalance struct {
	AccountIndex AccountIndex
	TokenIndex   TokenIndex
	Balance      *big.Int // signed
}

// PLTEventKind tags an entry of the plt_events table.
type PLTEventKind string

const (
	PLTEventMint   PLTEventKind = "Mint"
	PLTEventBurn   PLTEventKind = "Burn"
	PLTEventTransfer PLTEventKind = "Transfer"
	PLTEventModule PLTEventKind = "Module"
)

// PLT is the §3 Protocol-Level Token entity.
type PLT struct {
	TokenID   string
	Issuer    AccountIndex
	ModuleRef ModuleRef
	Decimals  uint8

	InitialSupply *big.Int
	Minted        *big.Int
	Burned        *big.Int
	// CurrentSupply is normalized: InitialSupply + Minted - Burned.
	CurrentSupply *big.Int
	Paused        bool
}

// PLTAccountBalance mirrors CIS2AccountBalance but is authoritative, not
// reconstructed from events (§3 Protocol-Level Token).
type PLTAccountBalance struct {
	AccountIndex AccountIndex
	TokenID      string
	Balance      *big.Int
}

// PLTEvent is one row of the plt_events table.
type PLTEvent struct {
	TokenID TokenID
	Index   uint64 // dense, per-token
	TxIndex TransactionIndex
	Kind    PLTEventKind
	Amount  *big.Int
}

// TokenID is the chain-level PLT token identifier (distinct from the
// dense CIS-2 TokenIndex).
type TokenID = string
