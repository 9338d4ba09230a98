package indexer

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/concordium/ccdscan-go/internal/store"
	"github.com/concordium/ccdscan-go/internal/types"
)

// Operation is one small, typed unit of the commit pipeline: a single
// store call (or a short fixed sequence of them) that the committer
// applies without further node traffic. Operations never hold a *sqlx.Tx
// of their own -- the committer supplies it.
type Operation interface {
	Apply(ctx context.Context, tx *sqlx.Tx, st *store.Store) error
}

// OperationFunc adapts a plain function to Operation, the same pattern
// http.HandlerFunc uses for http.Handler.
type OperationFunc func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error

func (f OperationFunc) Apply(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
	return f(ctx, tx, st)
}

// PreparedTransaction pairs a decoded transaction with the operations its
// effects imply. Several of those effects reference the transaction's own
// dense index, which is only known once the committer has inserted the
// transaction row -- so BuildOps is a closure over everything preprocess
// decoded, invoked with the resolved index.
type PreparedTransaction struct {
	Transaction types.Transaction
	BuildOps    func(idx types.TransactionIndex) []Operation
}

// PreparedBlock is the preprocessor's complete output for one height: the
// block row, its transactions (each with deferred per-transaction
// operations), and the block-scoped operations that apply regardless of
// any single transaction (suspension clearing, payday snapshot replace,
// scheduled-release sweep trigger).
type PreparedBlock struct {
	Height types.BlockHeight
	Hash   types.BlockHash

	SlotTime          time.Time
	BakerID           *types.BakerID
	LastFinalized     types.BlockHash
	TotalAmount       string
	TotalStakedAmount string

	Transactions []PreparedTransaction

	// BlockOps run once per block, after every transaction's operations,
	// e.g. ClearPrimedForSuspensionBulk (§4.2 rule 7) and a payday block's
	// ReplacePaydaySnapshot (§4.2 rule 6).
	BlockOps []Operation

	// NodeResponseTime is the wall-clock time from the start of this
	// block's node queries until the last of them (block certificates
	// included) returned. It is one elapsed span, not a sum of the
	// individual queries' times, and it does not cover the CIS-0 probes or
	// payday queries issued afterwards.
	NodeResponseTime time.Duration
}

// --- contract trace modeling (§4.2) ---

// PreparedContractTraceEventKind tags the variant held by a
// PreparedContractTraceEvent.
type PreparedContractTraceEventKind int

const (
	TraceEventNone PreparedContractTraceEventKind = iota
	TraceEventUpgrade
	TraceEventTransfer
	TraceEventUpdate
)

// ContractUpgradeEvent is one module-upgrade trace: the contract is
// relinked from OldModule to NewModule.
type ContractUpgradeEvent struct {
	Address   types.ContractAddress
	OldModule types.ModuleRef
	NewModule types.ModuleRef
}

// ContractTransferEvent is a CCD transfer trace leaving or entering a
// contract instance.
type ContractTransferEvent struct {
	Address       types.ContractAddress
	DeltaMicroCCD string
}

// ContractUpdateEvent is a contract-call trace: the raw update plus any
// CIS-2 events the preprocessor recognized within it.
type ContractUpdateEvent struct {
	Address       types.ContractAddress
	DeltaMicroCCD string
}

// PreparedCIS2Event is one recognized CIS-2 event produced by a trace,
// gated on both successful event-byte parsing and a live CIS-0
// supports(CIS2) probe (§4.2 rule 2).
type PreparedCIS2Event struct {
	Contract    types.ContractAddress
	RawTokenID  string
	TokenAddress string
	Kind        types.CIS2TokenEventKind
	Delta       *string // signed numeric literal, nil for non-amount events
	// Account is the event's canonical address; preprocess never resolves
	// it to a dense account index since it never touches the database
	// (§4.2). applyCIS2Event resolves it at apply time.
	Account     *types.CanonicalAddress
	// FromAccount is the sender of a Transfer event, nil unless the
	// sender is account-typed (a contract sender has no per-account
	// balance row to debit).
	FromAccount *types.CanonicalAddress
	MetadataURL *string
}

// PreparedTraceElement is one entry of a contract update's trace list:
// exactly one of Upgrade/Transfer/Update is populated according to Kind,
// plus the CIS-2 events recognized within it, in order.
type PreparedTraceElement struct {
	Kind     PreparedContractTraceEventKind
	Upgrade  *ContractUpgradeEvent
	Transfer *ContractTransferEvent
	Update   *ContractUpdateEvent

	CIS2Events []PreparedCIS2Event
}

// PreparedContractUpdates is the full plan for one smart-contract update
// transaction: the ordered list of traces it produced.
type PreparedContractUpdates struct {
	Address types.ContractAddress
	Traces  []PreparedTraceElement
}

// ops expands a contract update plan into the Operation sequence the
// committer applies, in trace order (§4.2: "the raw block is ... walked
// in a deterministic order").
func (p PreparedContractUpdates) ops(txIndex types.TransactionIndex) []Operation {
	var out []Operation
	for _, trace := range p.Traces {
		trace := trace
		switch trace.Kind {
		case TraceEventUpgrade:
			ev := trace.Upgrade
			out = append(out, OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
				return st.RelinkContract(ctx, tx, ev.Address, ev.OldModule, ev.NewModule, txIndex)
			}))
		case TraceEventTransfer:
			ev := trace.Transfer
			out = append(out, OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
				return st.AdjustContractBalance(ctx, tx, ev.Address, ev.DeltaMicroCCD)
			}))
		case TraceEventUpdate:
			ev := trace.Update
			out = append(out, OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
				return st.AdjustContractBalance(ctx, tx, ev.Address, ev.DeltaMicroCCD)
			}))
		case TraceEventNone:
			// no balance or linkage effect, only possible CIS-2 events below.
		}

		for _, cis2 := range trace.CIS2Events {
			cis2 := cis2
			out = append(out, OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
				return applyCIS2Event(ctx, tx, st, txIndex, cis2)
			}))
		}
	}
	return out
}

func applyCIS2Event(ctx context.Context, tx *sqlx.Tx, st *store.Store, txIndex types.TransactionIndex, ev PreparedCIS2Event) error {
	idx, err := st.UpsertCIS2Token(ctx, tx, ev.Contract, ev.RawTokenID, ev.TokenAddress)
	if err != nil {
		return err
	}

	if err := st.InsertCIS2TokenEvent(ctx, tx, idx, txIndex, ev.Kind, ev.Delta); err != nil {
		return err
	}

	switch ev.Kind {
	case types.CIS2EventMint, types.CIS2EventBurn:
		if ev.Delta != nil {
			if err := st.AdjustCIS2Supply(ctx, tx, idx, *ev.Delta); err != nil {
				return err
			}
		}
		if ev.Account != nil && ev.Delta != nil {
			accIdx, err := st.AccountIndexByCanonical(ctx, tx, *ev.Account)
			if err != nil {
				return err
			}
			if err := st.AdjustCIS2AccountBalance(ctx, tx, accIdx, idx, *ev.Delta); err != nil {
				return err
			}
		}
	case types.CIS2EventTransfer:
		if ev.FromAccount != nil && ev.Delta != nil {
			accIdx, err := st.AccountIndexByCanonical(ctx, tx, *ev.FromAccount)
			if err != nil {
				return err
			}
			if err := st.AdjustCIS2AccountBalance(ctx, tx, accIdx, idx, "-"+*ev.Delta); err != nil {
				return err
			}
		}
		if ev.Account != nil && ev.Delta != nil {
			accIdx, err := st.AccountIndexByCanonical(ctx, tx, *ev.Account)
			if err != nil {
				return err
			}
			if err := st.AdjustCIS2AccountBalance(ctx, tx, accIdx, idx, *ev.Delta); err != nil {
				return err
			}
		}
	case types.CIS2EventTokenMetadata:
		if ev.MetadataURL != nil {
			if err := st.SetCIS2Metadata(ctx, tx, idx, *ev.MetadataURL); err != nil {
				return err
			}
		}
	case types.CIS2EventUpdateOperator:
		// no balance or supply effect; recorded in the event log only.
	}
	return nil
}
