package indexer

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/concordium/concordium-go-sdk/v2/pb"

	"github.com/concordium/ccdscan-go/internal/types"
)

// decodeTransactionSummaries converts the raw per-block transaction event
// stream into preprocess's normalized decodedTransaction list (§4.2: "the
// raw block is then walked in a deterministic order").
func decodeTransactionSummaries(summaries []*pb.BlockItemSummary) ([]*decodedTransaction, error) {
	out := make([]*decodedTransaction, 0, len(summaries))
	for _, s := range summaries {
		dt, err := decodeOneSummary(s)
		if err != nil {
			return nil, err
		}
		out = append(out, dt)
	}
	return out, nil
}

func decodeOneSummary(s *pb.BlockItemSummary) (*decodedTransaction, error) {
	dt := &decodedTransaction{
		energyCost: s.GetEnergyCost().GetValue(),
	}
	copy(dt.hash[:], s.GetHash().GetValue())

	switch details := s.GetDetails().(type) {
	case *pb.BlockItemSummary_AccountTransaction:
		at := details.AccountTransaction
		dt.family = types.TransactionFamilyAccount
		dt.costMicroCCD = fmt.Sprintf("%d", at.GetCost().GetValue())
		dt.feeDelta = "-" + dt.costMicroCCD
		if sender := at.GetSender(); sender != nil {
			a := types.AccountIndex(sender.GetValue())
			dt.sender = &a
		}
		decodeAccountTransactionOutcome(dt, at)

	case *pb.BlockItemSummary_AccountCreation:
		dt.family = types.TransactionFamilyCredentialDeployment
		dt.subtype = details.AccountCreation.GetCredentialType().String()
		dt.success = true
		addr := decodeAddress(details.AccountCreation.GetAddress())
		dt.newAccount = &addr

	case *pb.BlockItemSummary_Update:
		dt.family = types.TransactionFamilyChainUpdate
		dt.subtype = details.Update.GetPayload().String()
		dt.success = true

	default:
		dt.family = types.TransactionFamilyAccount
	}

	return dt, nil
}

// decodeAccountTransactionOutcome fills dt.success/subtype/effect or
// dt.rejectJSON, covering §4.2 rule 1 (rejected transactions still pay the
// fee, and a RejectedReceive's parameter parse outcome is recorded
// explicitly).
func decodeAccountTransactionOutcome(dt *decodedTransaction, at *pb.AccountTransactionDetails) {
	switch outcome := at.GetEffects().(type) {
	case *pb.AccountTransactionDetails_None:
		dt.success = false
		dt.subtype = outcome.None.GetTransactionType().String()
		dt.rejectJSON, dt.rejectContract = decodeRejectReason(outcome.None.GetRejectReason())
	default:
		dt.success = true
		dt.effect = decodeSuccessfulEffect(at)
		dt.subtype = effectSubtype(dt.effect)
	}
}

func effectSubtype(e *decodedEffect) string {
	switch {
	case e == nil:
		return "Unknown"
	case e.transfer != nil:
		return "Transfer"
	case e.scheduledTransfer != nil:
		return "TransferWithSchedule"
	case e.delegationTarget != nil, e.delegationStake != nil, e.delegationRestake != nil:
		return "ConfigureDelegation"
	case e.bakerConfigure != nil:
		return "ConfigureBaker"
	case e.bakerRemoved != nil:
		return "RemoveBaker"
	case e.contractInit != nil:
		return "InitContract"
	case e.contractUpdate != nil:
		return "Update"
	case e.moduleDeployed != nil:
		return "DeployModule"
	default:
		return "Unknown"
	}
}

// decodeRejectReason builds the JSON reject-reason blob. For
// RejectedReceive it records whether a parameter was present at all
// (ParsingStatus), and returns the rejecting contract address so the
// caller can maintain its per-contract dense reject counter (§8
// scenario 2). It does not attempt to decode the parameter against the
// contract's module schema -- see MessageParsingStatus's doc comment.
func decodeRejectReason(r *pb.RejectReason) ([]byte, *types.ContractAddress) {
	if r == nil {
		return nil, nil
	}
	if rr := r.GetRejectedReceive(); rr != nil {
		addr := types.ContractAddress{Index: rr.GetContractAddress().GetIndex(), SubIndex: rr.GetContractAddress().GetSubindex()}
		reason := types.RejectedReceiveReason{
			Contract:      addr,
			ReceiveName:   rr.GetReceiveName().GetValue(),
			RejectCode:    rr.GetRejectReason(),
			ParsingStatus: types.ParseFailed,
		}
		if len(rr.GetParameter().GetValue()) == 0 {
			reason.ParsingStatus = types.ParseEmptyMessage
		}
		b, _ := json.Marshal(reason)
		return b, &addr
	}
	b, _ := json.Marshal(map[string]string{"tag": r.String()})
	return b, nil
}

func decodeSuccessfulEffect(at *pb.AccountTransactionDetails) *decodedEffect {
	switch eff := at.GetEffects().(type) {
	case *pb.AccountTransactionDetails_AccountTransfer:
		t := eff.AccountTransfer
		return &decodedEffect{transfer: &transferEffect{
			from:   types.AccountIndex(at.GetSender().GetValue()),
			to:     types.AccountIndex(t.GetReceiver().GetValue()),
			amount: fmt.Sprintf("%d", t.GetAmount().GetValue()),
		}}

	case *pb.AccountTransactionDetails_TransferredWithSchedule:
		t := eff.TransferredWithSchedule
		releases := make([]types.ScheduledRelease, 0, len(t.GetAmount()))
		for _, r := range t.GetAmount() {
			releases = append(releases, types.ScheduledRelease{
				ReleaseTime: int64(r.GetTimestamp()),
				Amount:      mustHexutilBig(fmt.Sprintf("%d", r.GetAmount())),
			})
		}
		return &decodedEffect{scheduledTransfer: &scheduledTransferEffect{
			from:     types.AccountIndex(at.GetSender().GetValue()),
			to:       types.AccountIndex(t.GetReceiver().GetValue()),
			releases: releases,
		}}

	case *pb.AccountTransactionDetails_BakerConfigured:
		return &decodedEffect{bakerConfigure: decodeBakerConfigured(at, eff)}

	case *pb.AccountTransactionDetails_DelegationConfigured:
		return decodeDelegationConfigured(at, eff)

	case *pb.AccountTransactionDetails_ModuleDeployed:
		return &decodedEffect{moduleDeployed: &moduleDeployedEffect{
			ref: decodeModuleRefFromBytes(eff.ModuleDeployed.GetValue().GetValue()),
		}}

	case *pb.AccountTransactionDetails_ContractInitialized:
		ci := eff.ContractInitialized
		var ref types.ModuleRef
		copy(ref[:], ci.GetOriginRef().GetValue())
		return &decodedEffect{contractInit: &contractInitEffect{
			address:  types.ContractAddress{Index: ci.GetAddress().GetIndex(), SubIndex: ci.GetAddress().GetSubindex()},
			module:   ref,
			initName: ci.GetInitName().GetValue(),
		}}

	case *pb.AccountTransactionDetails_ContractUpdateIssued:
		return &decodedEffect{contractUpdate: decodeContractUpdate(eff)}

	default:
		return nil
	}
}

func decodeAddress(a *pb.AccountAddress) types.CanonicalAddress {
	var out types.CanonicalAddress
	copy(out[:], a.GetValue())
	return out
}

func decodeModuleRefFromBytes(b []byte) types.ModuleRef {
	var ref types.ModuleRef
	copy(ref[:], b)
	return ref
}

func decodeBakerConfigured(at *pb.AccountTransactionDetails, eff *pb.AccountTransactionDetails_BakerConfigured) *bakerConfigureEffect {
	id := types.BakerID(at.GetSender().GetValue())
	c := &bakerConfigureEffect{id: id}
	for _, e := range eff.BakerConfigured.GetEvents() {
		switch ev := e.GetEvent().(type) {
		case *pb.BakerEvent_BakerAdded:
			c.isNew = true
			c.stake = fmt.Sprintf("%d", ev.BakerAdded.GetStake().GetValue())
			c.restake = ev.BakerAdded.GetRestakeEarnings()
			c.openStatus = decodeOpenStatus(ev.BakerAdded.GetOpenForDelegation())
		case *pb.BakerEvent_BakerStakeIncreased:
			c.stake = fmt.Sprintf("%d", ev.BakerStakeIncreased.GetNewStake().GetValue())
		case *pb.BakerEvent_BakerStakeDecreased:
			c.stake = fmt.Sprintf("%d", ev.BakerStakeDecreased.GetNewStake().GetValue())
		case *pb.BakerEvent_BakerSetOpenStatus:
			c.openStatus = decodeOpenStatus(ev.BakerSetOpenStatus.GetOpenStatus())
		case *pb.BakerEvent_BakerSetTransactionFeeCommission:
			v := ev.BakerSetTransactionFeeCommission.GetTransactionFeeCommission().GetValue()
			c.feeCommission = &v
		case *pb.BakerEvent_BakerSetBakingRewardCommission:
			v := ev.BakerSetBakingRewardCommission.GetBakingRewardCommission().GetValue()
			c.bakingRewardCommission = &v
		case *pb.BakerEvent_BakerSetFinalizationRewardCommission:
			v := ev.BakerSetFinalizationRewardCommission.GetFinalizationRewardCommission().GetValue()
			c.finalizationCommission = &v
		case *pb.BakerEvent_BakerSuspended:
			c.suspend = true
		case *pb.BakerEvent_BakerResumed:
			c.resume = true
		}
	}
	return c
}

func decodeOpenStatus(s pb.OpenStatus) types.OpenStatus {
	switch s {
	case pb.OpenStatus_OPEN_STATUS_CLOSED_FOR_NEW:
		return types.ClosedForNew
	case pb.OpenStatus_OPEN_STATUS_CLOSED_FOR_ALL:
		return types.ClosedForAll
	default:
		return types.OpenForAll
	}
}

// decodeDelegationConfigured accumulates every event of a single
// ConfigureDelegation transaction onto one decodedEffect -- a single call
// can set target, stake, and restake-earnings together, emitted as
// separate DelegationEvents -- mirroring decodeBakerConfigured's
// accumulate-then-return-once pattern.
func decodeDelegationConfigured(at *pb.AccountTransactionDetails, eff *pb.AccountTransactionDetails_DelegationConfigured) *decodedEffect {
	account := types.AccountIndex(at.GetSender().GetValue())
	var target *delegationTargetEffect
	var stake *delegationStakeEffect
	var restake *delegationRestakeEffect

	for _, e := range eff.DelegationConfigured.GetEvents() {
		switch ev := e.GetEvent().(type) {
		case *pb.DelegationEvent_DelegationAdded:
			t := decodeDelegationTarget(ev.DelegationAdded.GetDelegationTarget())
			target = &delegationTargetEffect{account: account, newTarget: t}
		case *pb.DelegationEvent_DelegationSetDelegationTarget:
			t := decodeDelegationTarget(ev.DelegationSetDelegationTarget.GetDelegationTarget())
			target = &delegationTargetEffect{account: account, newTarget: t}
		case *pb.DelegationEvent_DelegationStakeIncreased:
			stake = &delegationStakeEffect{account: account, newStake: fmt.Sprintf("%d", ev.DelegationStakeIncreased.GetNewStake().GetValue())}
		case *pb.DelegationEvent_DelegationStakeDecreased:
			stake = &delegationStakeEffect{account: account, newStake: fmt.Sprintf("%d", ev.DelegationStakeDecreased.GetNewStake().GetValue())}
		case *pb.DelegationEvent_DelegationSetRestakeEarnings:
			restake = &delegationRestakeEffect{account: account, restake: ev.DelegationSetRestakeEarnings.GetRestakeEarnings()}
		case *pb.DelegationEvent_DelegationRemoved:
			target = &delegationTargetEffect{account: account, newTarget: nil}
		}
	}

	if target == nil && stake == nil && restake == nil {
		return nil
	}
	return &decodedEffect{delegationTarget: target, delegationStake: stake, delegationRestake: restake}
}

func decodeDelegationTarget(t *pb.DelegationTarget) *types.BakerID {
	if t == nil {
		return nil
	}
	if baker := t.GetBaker(); baker != nil {
		id := types.BakerID(baker.GetValue())
		return &id
	}
	return nil // passive pool
}

func decodeContractUpdate(eff *pb.AccountTransactionDetails_ContractUpdateIssued) *PreparedContractUpdates {
	out := &PreparedContractUpdates{}
	for _, effected := range eff.ContractUpdateIssued.GetEffects() {
		addr := types.ContractAddress{Index: effected.GetAddress().GetIndex(), SubIndex: effected.GetAddress().GetSubindex()}
		out.Address = addr

		elem := PreparedTraceElement{Kind: TraceEventNone}
		switch instr := effected.GetElement().(type) {
		case *pb.ContractTraceElement_Upgraded:
			var oldRef, newRef types.ModuleRef
			copy(oldRef[:], instr.Upgraded.GetFrom().GetValue())
			copy(newRef[:], instr.Upgraded.GetTo().GetValue())
			elem.Kind = TraceEventUpgrade
			elem.Upgrade = &ContractUpgradeEvent{Address: addr, OldModule: oldRef, NewModule: newRef}

		case *pb.ContractTraceElement_Transferred:
			elem.Kind = TraceEventTransfer
			elem.Transfer = &ContractTransferEvent{Address: addr, DeltaMicroCCD: "-" + fmt.Sprintf("%d", instr.Transferred.GetAmount().GetValue())}

		case *pb.ContractTraceElement_Updated:
			elem.Kind = TraceEventUpdate
			elem.Update = &ContractUpdateEvent{Address: addr, DeltaMicroCCD: fmt.Sprintf("%d", instr.Updated.GetAmount().GetValue())}
			elem.CIS2Events = parseCIS2CandidateEvents(addr, instr.Updated.GetEvents())
		}

		out.Traces = append(out.Traces, elem)
	}
	return out
}

func decodeSpecialEvents(evs []*pb.BlockSpecialEvent) []specialEvent {
	out := make([]specialEvent, 0, len(evs))
	for _, e := range evs {
		switch e.GetEvent().(type) {
		case *pb.BlockSpecialEvent_PaydayFoundationReward:
			out = append(out, specialEvent{kind: types.PaydayFoundationReward})
		case *pb.BlockSpecialEvent_PaydayAccountReward:
			out = append(out, specialEvent{kind: types.PaydayAccountReward})
		case *pb.BlockSpecialEvent_PaydayPoolReward:
			out = append(out, specialEvent{kind: types.PaydayPoolReward})
		}
	}
	return out
}

func decodeChainParameters(cp *pb.ChainParameters) chainParamsInfo {
	return chainParamsInfo{
		epochDurationMillis: cp.GetEpochDuration().GetValue(),
		rewardPeriodLength:  cp.GetRewardPeriodLength().GetValue(),
	}
}

func decodeCertificates(c *pb.BlockCertificates) *certificatesInfo {
	qc := c.GetQuorumCertificate()
	if qc == nil {
		return &certificatesInfo{present: false}
	}
	ids := make([]types.BakerID, 0, len(qc.GetSignatories()))
	for _, s := range qc.GetSignatories() {
		ids = append(ids, types.BakerID(s.GetValue()))
	}
	return &certificatesInfo{present: true, quorumSignatories: ids}
}

// tokenomicsTotalStakedV1 returns "" when the node reports legacy V0
// tokenomics, signaling the caller to fall back to summing the baker list
// (§4.2: "Total stake capital is obtained directly from tokenomics (V1+)
// or computed by summing ... for legacy (V0) tokenomics").
func tokenomicsTotalStakedV1(info *pb.TokenomicsInfo) string {
	v1 := info.GetV1()
	if v1 == nil {
		return ""
	}
	return fmt.Sprintf("%d", v1.GetTotalStakedCapital().GetValue())
}

// tokenomicsTotalAmount returns the total CCD in existence, present on
// both V0 and V1 tokenomics responses.
func tokenomicsTotalAmount(info *pb.TokenomicsInfo) string {
	if v1 := info.GetV1(); v1 != nil {
		return fmt.Sprintf("%d", v1.GetTotalAmount().GetValue())
	}
	if v0 := info.GetV0(); v0 != nil {
		return fmt.Sprintf("%d", v0.GetTotalAmount().GetValue())
	}
	return "0"
}

func accountStakedAmount(info *pb.AccountInfo) string {
	stake := info.GetStake()
	if stake == nil || stake.GetBaker() == nil {
		return "0"
	}
	return fmt.Sprintf("%d", stake.GetBaker().GetStakedAmount().GetValue())
}

func mergeRewardPeriodAndElection(period *pb.BakersRewardPeriod, election *pb.ElectionInfo) []types.PaydaySnapshot {
	power := make(map[uint64]float64, len(election.GetBakerElectionInfo()))
	for _, b := range election.GetBakerElectionInfo() {
		power[b.GetBaker().GetValue()] = b.GetLotteryPower()
	}

	out := make([]types.PaydaySnapshot, 0, len(period.GetBakers()))
	for _, b := range period.GetBakers() {
		id := b.GetBakerId().GetValue()
		out = append(out, types.PaydaySnapshot{
			BakerID:            types.BakerID(id),
			TransactionFee:     b.GetCommissionRates().GetTransactionCommission().GetValue(),
			BakingReward:       b.GetCommissionRates().GetBakingCommission().GetValue(),
			FinalizationReward: b.GetCommissionRates().GetFinalizationCommission().GetValue(),
			LotteryPower:       power[id],
			EffectiveStake:     mustHexutilBig(fmt.Sprintf("%d", b.GetEffectiveStake().GetValue())),
		})
	}
	return out
}

func mustHexutilBig(decimal string) hexutil.Big {
	v, ok := new(big.Int).SetString(decimal, 10)
	if !ok {
		v = new(big.Int)
	}
	return hexutil.Big(*v)
}

func addDecimal(a, b string) string {
	if a == "" {
		a = "0"
	}
	if b == "" {
		b = "0"
	}
	av, _ := new(big.Int).SetString(a, 10)
	bv, _ := new(big.Int).SetString(b, 10)
	if av == nil {
		av = new(big.Int)
	}
	if bv == nil {
		bv = new(big.Int)
	}
	return new(big.Int).Add(av, bv).String()
}

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}
