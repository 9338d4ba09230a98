package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/concordium/ccdscan-go/internal/node"
	"github.com/concordium/ccdscan-go/internal/store"
	"github.com/concordium/ccdscan-go/internal/types"
)

const cis2Standard = "CIS-2"

// rawBlockData is everything the five parallel node queries (plus the
// block-certificates query for protocol >= 8, issued once block info is
// known) returned for one height, plus the wall-clock time those fetches
// took, reported as node response time.
type rawBlockData struct {
	info             *node.BlockInfo
	certificates     *certificatesInfo
	transactionItems []*decodedTransaction
	specialEvents    []specialEvent
	chainParams      chainParamsInfo
	totalStaked      string
	totalAmount      string

	elapsed time.Duration
}

type certificatesInfo struct {
	present          bool
	quorumSignatories []types.BakerID
}

type specialEvent struct {
	kind types.PaydaySpecialEventKind
}

type chainParamsInfo struct {
	epochDurationMillis uint64
	rewardPeriodLength  uint64
}

// decodedTransaction is preprocess's normalized view of one block item,
// independent of the wire encoding: enough to build a types.Transaction
// and decide what operations it implies.
type decodedTransaction struct {
	hash         [32]byte
	costMicroCCD string
	energyCost   uint64
	sender       *types.AccountIndex
	family       types.TransactionFamily
	subtype      string
	success      bool
	eventsJSON   []byte
	rejectJSON   []byte
	// rejectContract is set when rejectJSON carries a RejectedReceive
	// reason, so buildTransactionOps can append the per-contract dense
	// reject counter (§8 scenario 2).
	rejectContract *types.ContractAddress
	// newAccount is set for a credential-deployment item: the new
	// account's canonical address, to be inserted with this transaction
	// as its creating transaction.
	newAccount *types.CanonicalAddress

	// effect is populated for successful account transactions; nil for
	// chain updates, credential deployments, and rejected transactions
	// (which still pay a fee -- see feeDelta below).
	effect *decodedEffect

	// feeDelta is always applied to sender, success or not (§4.2 rule 1:
	// "rejected transactions still mutate state: the sender pays the
	// transaction fee").
	feeDelta string
}

// decodedEffect is the normalized shape of one successful account
// transaction's side effects, covering the families enumerated in §3.
type decodedEffect struct {
	transfer         *transferEffect
	delegationTarget *delegationTargetEffect
	delegationStake  *delegationStakeEffect
	delegationRestake *delegationRestakeEffect
	bakerConfigure   *bakerConfigureEffect
	bakerRemoved     *types.BakerID
	contractInit     *contractInitEffect
	contractUpdate   *PreparedContractUpdates
	moduleDeployed   *moduleDeployedEffect
	scheduledTransfer *scheduledTransferEffect
}

type transferEffect struct {
	from, to types.AccountIndex
	amount   string
}

type scheduledTransferEffect struct {
	from, to types.AccountIndex
	releases []types.ScheduledRelease
}

type delegationTargetEffect struct {
	account            types.AccountIndex
	oldTarget, newTarget *types.BakerID
	stake              string
}

type delegationStakeEffect struct {
	account  types.AccountIndex
	target   *types.BakerID
	newStake string
	delta    string
}

type delegationRestakeEffect struct {
	account types.AccountIndex
	restake bool
}

type bakerConfigureEffect struct {
	id                     types.BakerID
	isNew                  bool
	stake                  string
	restake                bool
	openStatus             types.OpenStatus
	feeCommission          *float64
	bakingRewardCommission *float64
	finalizationCommission *float64
	suspend                bool
	resume                 bool
}

type contractInitEffect struct {
	address  types.ContractAddress
	module   types.ModuleRef
	initName string
}

type moduleDeployedEffect struct {
	ref    types.ModuleRef
	schema []byte
}

// preprocess runs the node fan-out and conversion described in §4.2 for a
// single height. It never touches the database and holds no state shared
// with any other call, so it is safe to run concurrently across heights.
func preprocess(ctx context.Context, ep *node.Endpoint, height types.BlockHeight) (*PreparedBlock, error) {
	start := time.Now()
	req := node.BlockRequest{Height: height}

	var raw rawBlockData
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		info, err := ep.BlockInfo(gctx, req)
		if err != nil {
			return err
		}
		raw.info = info
		return nil
	})

	var items []*decodedTransaction
	g.Go(func() error {
		summaries, err := ep.TransactionEvents(gctx, req)
		if err != nil {
			return err
		}
		decoded, err := decodeTransactionSummaries(summaries)
		if err != nil {
			return err
		}
		items = decoded
		return nil
	})

	var specials []specialEvent
	g.Go(func() error {
		evs, err := ep.SpecialEvents(gctx, req)
		if err != nil {
			return err
		}
		specials = decodeSpecialEvents(evs)
		return nil
	})

	var chainParams chainParamsInfo
	g.Go(func() error {
		cp, err := ep.ChainParameters(gctx, req)
		if err != nil {
			return err
		}
		chainParams = decodeChainParameters(cp)
		return nil
	})

	var totalStaked, totalAmount string
	g.Go(func() error {
		staked, total, err := totalStakedAndExistingAmount(gctx, ep, req)
		if err != nil {
			return err
		}
		totalStaked = staked
		totalAmount = total
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("indexer: preprocess %d: %w", height, err)
	}

	// Block certificates are only meaningful for protocol >= 8; fetched
	// after BlockInfo resolves so the protocol version is known (§4.2).
	var certs *certificatesInfo
	if raw.info.ProtocolVersion >= 8 {
		c, err := ep.BlockCertificates(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("indexer: preprocess %d certificates: %w", height, err)
		}
		certs = decodeCertificates(c)
	}

	raw.transactionItems = items
	raw.specialEvents = specials
	raw.chainParams = chainParams
	raw.totalStaked = totalStaked
	raw.totalAmount = totalAmount
	raw.certificates = certs
	raw.elapsed = time.Since(start)

	if err := gateCIS2Events(ctx, ep, req, raw.transactionItems); err != nil {
		return nil, fmt.Errorf("indexer: preprocess %d cis2 gate: %w", height, err)
	}

	return buildPreparedBlock(ctx, ep, req, &raw)
}

// totalStakedAndExistingAmount obtains total stake capital directly from
// tokenomics for V1+ chains, or by summing staked_amount over the full
// baker list for legacy V0 tokenomics (§4.2); the total CCD in existence is
// read from the same tokenomics response either way.
func totalStakedAndExistingAmount(ctx context.Context, ep *node.Endpoint, req node.BlockRequest) (staked, total string, err error) {
	info, err := ep.TokenomicsInfo(ctx, req)
	if err != nil {
		return "", "", err
	}
	total = tokenomicsTotalAmount(info)

	if v := tokenomicsTotalStakedV1(info); v != "" {
		return v, total, nil
	}

	bakers, err := ep.BakerList(ctx, req)
	if err != nil {
		return "", "", err
	}

	sum := "0"
	for _, id := range bakers {
		accInfo, err := ep.AccountInfo(ctx, req, types.AccountIndex(id))
		if err != nil {
			return "", "", err
		}
		sum = addDecimal(sum, accountStakedAmount(accInfo))
	}
	return sum, total, nil
}

func buildPreparedBlock(ctx context.Context, ep *node.Endpoint, req node.BlockRequest, raw *rawBlockData) (*PreparedBlock, error) {
	pb := &PreparedBlock{
		Height:            raw.info.Height,
		Hash:              raw.info.Hash,
		SlotTime:          raw.info.SlotTime,
		BakerID:           raw.info.BakerID,
		LastFinalized:     raw.info.LastFinalized,
		TotalAmount:       raw.totalAmount,
		TotalStakedAmount: raw.totalStaked,
		NodeResponseTime:  raw.elapsed,
	}

	for _, item := range raw.transactionItems {
		pb.Transactions = append(pb.Transactions, buildPreparedTransaction(raw.info.Height, item))
	}

	if ids := primedClearTargets(raw.info.BakerID, raw.certificates); len(ids) > 0 {
		pb.BlockOps = append(pb.BlockOps, clearPrimedForSuspensionOp(ids))
	}

	if isPaydayBlock(raw.specialEvents) {
		snapshots, err := fetchPaydaySnapshot(ctx, ep, req)
		if err != nil {
			return nil, fmt.Errorf("indexer: payday snapshot at %d: %w", raw.info.Height, err)
		}
		pb.BlockOps = append(pb.BlockOps, replacePaydaySnapshotOp(raw.info.Height, snapshots))
	}

	return pb, nil
}

// primedClearTargets implements §4.2 rule 7: every block at protocol >= 8
// clears the primed-for-suspension flag on its own baker and on every
// quorum-certificate signatory.
func primedClearTargets(blockBaker *types.BakerID, certs *certificatesInfo) []types.BakerID {
	if certs == nil || !certs.present {
		return nil
	}
	ids := make([]types.BakerID, 0, len(certs.quorumSignatories)+1)
	if blockBaker != nil {
		ids = append(ids, *blockBaker)
	}
	ids = append(ids, certs.quorumSignatories...)
	return ids
}

// isPaydayBlock implements §4.2 rule 6.
func isPaydayBlock(events []specialEvent) bool {
	for _, e := range events {
		switch e.kind {
		case types.PaydayFoundationReward, types.PaydayAccountReward, types.PaydayPoolReward:
			return true
		}
	}
	return false
}

func fetchPaydaySnapshot(ctx context.Context, ep *node.Endpoint, req node.BlockRequest) ([]types.PaydaySnapshot, error) {
	period, err := ep.BakersRewardPeriod(ctx, req)
	if err != nil {
		return nil, err
	}
	election, err := ep.ElectionInfo(ctx, req)
	if err != nil {
		return nil, err
	}
	return mergeRewardPeriodAndElection(period, election), nil
}

// buildPreparedTransaction converts one decoded item into a
// PreparedTransaction, closing over everything needed to expand its
// effects once the committer has assigned it a dense index.
func buildPreparedTransaction(blockHeight types.BlockHeight, item *decodedTransaction) PreparedTransaction {
	t := types.Transaction{
		Hash:               item.hash,
		BlockHeight:        blockHeight,
		CostMicroCCD:       mustHexutilBig(item.costMicroCCD),
		EnergyCost:         item.energyCost,
		SenderAccountIndex: item.sender,
		Family:             item.family,
		Subtype:            item.subtype,
		Success:            item.success,
		EventsJSON:         item.eventsJSON,
		RejectJSON:         item.rejectJSON,
	}

	return PreparedTransaction{
		Transaction: t,
		BuildOps: func(idx types.TransactionIndex) []Operation {
			return buildTransactionOps(blockHeight, idx, item)
		},
	}
}

func buildTransactionOps(blockHeight types.BlockHeight, idx types.TransactionIndex, item *decodedTransaction) []Operation {
	var ops []Operation

	if item.newAccount != nil {
		addr := *item.newAccount
		ops = append(ops, OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
			_, err := st.InsertAccount(ctx, tx, addr, types.EncodeAccountAddress(addr), &idx)
			return err
		}))
	}

	// Rule 1: the sender pays the fee regardless of success.
	if item.sender != nil && item.feeDelta != "0" && item.feeDelta != "" {
		ops = append(ops, balanceChangeWithTxOp(*item.sender, blockHeight, idx, types.StatementTransactionFee, item.feeDelta))
	}

	// A rejected contract update still produces a dense, per-contract
	// reject record (§8 scenario 2).
	if item.rejectContract != nil {
		contract := *item.rejectContract
		ops = append(ops, OperationFunc(func(ctx context.Context, tx *sqlx.Tx, st *store.Store) error {
			return st.InsertContractRejectTransaction(ctx, tx, contract, idx)
		}))
	}

	if !item.success || item.effect == nil {
		return ops
	}
	eff := item.effect

	switch {
	case eff.transfer != nil:
		ops = append(ops, transferOps(blockHeight, idx, eff.transfer)...)
	case eff.scheduledTransfer != nil:
		ops = append(ops, scheduledTransferOps(blockHeight, idx, eff.scheduledTransfer)...)
	case eff.bakerConfigure != nil:
		ops = append(ops, bakerConfigureOps(idx, eff.bakerConfigure)...)
	case eff.bakerRemoved != nil:
		ops = append(ops, removeValidatorOps(*eff.bakerRemoved)...)
	case eff.contractInit != nil:
		ops = append(ops, contractInitOps(idx, eff.contractInit)...)
	case eff.contractUpdate != nil:
		ops = append(ops, eff.contractUpdate.ops(idx)...)
	case eff.moduleDeployed != nil:
		ops = append(ops, moduleDeployedOp(idx, eff.moduleDeployed))
	}

	// A single ConfigureDelegation call can set target, stake, and
	// restake-earnings together; each is independently optional, so
	// every one present on this effect must expand to ops (unlike the
	// single-effect-per-transaction cases above).
	if eff.delegationTarget != nil {
		ops = append(ops, retargetDelegationOp(eff.delegationTarget.account, eff.delegationTarget.oldTarget, eff.delegationTarget.newTarget, eff.delegationTarget.stake)...)
	}
	if eff.delegationStake != nil {
		ops = append(ops, restakeDelegationStakeOp(eff.delegationStake.account, eff.delegationStake.target, eff.delegationStake.newStake, eff.delegationStake.delta)...)
	}
	if eff.delegationRestake != nil {
		ops = append(ops, delegationRestakeOp(eff.delegationRestake.account, eff.delegationRestake.restake))
	}

	return ops
}
