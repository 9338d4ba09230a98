package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Block is the §3 Block entity.
type Block struct {
	Height BlockHeight
	Hash   BlockHash

	SlotTime time.Time
	// BlockTime is SlotTime minus the predecessor's SlotTime; zero for
	// the genesis block.
	BlockTime time.Duration

	// BakerID is nil only for the genesis block.
	BakerID *BakerID

	// CumulativeTransactionCount is the running total of transactions at
	// or before this block.
	CumulativeTransactionCount uint64

	// FinalizationTime is nil until a later block's last-finalized
	// pointer reaches this height or below (Glossary: Finalization time).
	FinalizationTime *time.Duration
	// FinalizedBy is the height of the block whose finalization proof
	// first covered this block.
	FinalizedBy *BlockHeight

	CumulativeFinalizationTime time.Duration

	TotalAmount       hexutil.Big
	TotalStakedAmount hexutil.Big
}

// TransactionFamily is one of the three categorized transaction families
// (§3 Transaction).
type TransactionFamily int

const (
	TransactionFamilyAccount TransactionFamily = iota
	TransactionFamilyChainUpdate
	TransactionFamilyCredentialDeployment
)

// Transaction is the §3 Transaction entity.
type Transaction struct {
	Index TransactionIndex
	Hash  [32]byte

	BlockHeight BlockHeight

	CostMicroCCD hexutil.Big
	EnergyCost   uint64

	// SenderAccountIndex is nil for chain updates and credential
	// deployments.
	SenderAccountIndex *AccountIndex

	Family  TransactionFamily
	Subtype string

	Success bool
	// EventsJSON holds the tagged-union event list on success.
	EventsJSON []byte
	// RejectJSON holds the tagged reject reason on failure.
	RejectJSON []byte
}
