package types

import "github.com/ethereum/go-ethereum/common/hexutil"

// Account is the §3 Account entity.
//
// Invariant: DelegationRestakeEarnings == nil iff the account is not
// currently delegating.
type Account struct {
	Index             AccountIndex
	CanonicalAddress  CanonicalAddress
	Address           AccountAddress
	Amount            hexutil.Big
	NumTxs            uint64
	CreatedByTxIndex  *TransactionIndex // nil for genesis accounts

	DelegatedStake             hexutil.Big
	DelegatedTargetBakerID     *BakerID // nil == passive pool; note this is
	// only meaningful when DelegationRestakeEarnings != nil; see Delegating.
	DelegationRestakeEarnings *bool
}

// Delegating reports whether the account currently delegates stake.
func (a *Account) Delegating() bool {
	return a.DelegationRestakeEarnings != nil
}

// OpenStatus is the §3 Validator open status.
type OpenStatus int

const (
	OpenForAll OpenStatus = iota
	ClosedForNew
	ClosedForAll
)

// SuspensionState is the validator suspension state machine of §4.3.
type SuspensionState int

const (
	SuspensionActive SuspensionState = iota
	SuspensionPrimed
	SuspensionInactive
	SuspensionSelf
)

// Validator is the §3 Validator ("baker") entity. At most one of
// SelfSuspendedTxIndex, InactiveSuspendedAtHeight,
// PrimedForSuspensionAtHeight is non-nil (Suspension exclusion, §8).
type Validator struct {
	ID BakerID // == owning account index

	StakedAmount      hexutil.Big
	RestakeEarnings   bool
	OpenStatus        OpenStatus
	MetadataURL       string
	TransactionFee    float64 // commission fractions
	BakingReward      float64
	FinalizationReward float64

	PoolTotalStaked     hexutil.Big
	PoolDelegatorCount  uint64

	SelfSuspendedTxIndex       *TransactionIndex
	InactiveSuspendedAtHeight  *BlockHeight
	PrimedForSuspensionAtHeight *BlockHeight
}

// State derives the SuspensionState from the mutually exclusive markers.
func (v *Validator) State() SuspensionState {
	switch {
	case v.SelfSuspendedTxIndex != nil:
		return SuspensionSelf
	case v.InactiveSuspendedAtHeight != nil:
		return SuspensionInactive
	case v.PrimedForSuspensionAtHeight != nil:
		return SuspensionPrimed
	default:
		return SuspensionActive
	}
}

// ScheduledRelease is one (release-time, amount) pair from a scheduled
// transfer, owned by an account (§3 Scheduled release).
type ScheduledRelease struct {
	AccountIndex AccountIndex
	FromTxIndex  TransactionIndex
	ReleaseTime  int64 // unix millis
	Amount       hexutil.Big
}

// StatementEntryType tags the kind of balance-affecting event recorded in
// an AccountStatement (§3 Account statement).
type StatementEntryType string

const (
	StatementTransferIn        StatementEntryType = "TransferIn"
	StatementTransferOut       StatementEntryType = "TransferOut"
	StatementTransactionFee    StatementEntryType = "TransactionFee"
	StatementRewardBaking      StatementEntryType = "BakingReward"
	StatementFinalizationRwd   StatementEntryType = "FinalizationReward"
	StatementFoundationRwd     StatementEntryType = "FoundationReward"
	StatementBakingReward      StatementEntryType = "BakingReward"
	StatementAmountEncrypted   StatementEntryType = "AmountEncrypted"
	StatementAmountDecrypted   StatementEntryType = "AmountDecrypted"
	StatementScheduledReleaseIn  StatementEntryType = "ScheduledReleaseIn"
	StatementScheduledReleaseOut StatementEntryType = "ScheduledReleaseOut"
)

// AccountStatement is one append-only ledger row (§3 Account statement).
type AccountStatement struct {
	AccountIndex AccountIndex
	Index        uint64 // dense, per-account
	BlockHeight  BlockHeight
	TxIndex      *TransactionIndex
	EntryType    StatementEntryType
	Amount       *hexutil.Big // signed delta
	BalanceAfter hexutil.Big
}
