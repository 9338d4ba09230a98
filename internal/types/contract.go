package types

import "github.com/ethereum/go-ethereum/common/hexutil"

// Contract is the §3 Contract instance entity, keyed by (index, sub-index).
type Contract struct {
	Address ContractAddress

	ModuleRef ModuleRef
	InitName  string
	Amount    hexutil.Big

	InitTxIndex        TransactionIndex
	LastUpgradeTxIndex *TransactionIndex
}

// LinkEvent tags whether a contract was linked to, or unlinked from, a
// module (§3 Smart-contract module: append-only linkage list).
type LinkEvent string

const (
	LinkAdded   LinkEvent = "Added"
	LinkRemoved LinkEvent = "Removed"
)

// ModuleLink is one append-only row of a module's linkage history.
type ModuleLink struct {
	ModuleRef ModuleRef
	Contract  ContractAddress
	Event     LinkEvent
	TxIndex   TransactionIndex
}

// Module is the §3 Smart-contract module entity.
type Module struct {
	Ref ModuleRef
	// Schema is the optional embedded schema blob, nil if the module
	// carries none.
	Schema []byte

	InitTxIndex TransactionIndex
}

// MessageParsingStatus tags whether a RejectedReceive's parameter bytes
// were present at all. Decoding the parameter against the rejecting
// contract's module schema is not performed: that requires a full
// smart-contract-schema parser, which no dependency available to this
// indexer provides.
type MessageParsingStatus string

const (
	ParseEmptyMessage MessageParsingStatus = "EmptyMessage"
	ParseFailed       MessageParsingStatus = "Failed"
)

// RejectedReceiveReason is the decoded form of a RejectedReceive reject
// reason, serialized into Transaction.RejectJSON.
type RejectedReceiveReason struct {
	Contract      ContractAddress
	ReceiveName   string
	RejectCode    int32
	ParsingStatus MessageParsingStatus
}

// ContractRejectTransaction is one row of the per-contract dense counter
// of rejected calls against that contract (scenario 2, §8).
type ContractRejectTransaction struct {
	Contract ContractAddress
	Index    uint64 // dense, per-contract
	TxIndex  TransactionIndex
}
