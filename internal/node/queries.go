package node

import (
	"context"
	"fmt"
	"io"

	"github.com/concordium/concordium-go-sdk/v2/pb"

	"github.com/concordium/ccdscan-go/internal/types"
)

// BlockRequest identifies a block by absolute height, the form the
// preprocessor always uses (§4.2).
type BlockRequest struct {
	Height types.BlockHeight
}

func (r BlockRequest) proto() *pb.BlockHashInput {
	return &pb.BlockHashInput{
		BlockHashInput: &pb.BlockHashInput_AbsoluteHeight{
			AbsoluteHeight: &pb.AbsoluteBlockHeight{Value: uint64(r.Height)},
		},
	}
}

// BlockInfo fetches get_block_info for the given height.
func (e *Endpoint) BlockInfo(ctx context.Context, req BlockRequest) (*BlockInfo, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	resp, err := e.client.GetBlockInfo(cctx, req.proto())
	if err != nil {
		return nil, fmt.Errorf("node: GetBlockInfo(%d): %w", req.Height, err)
	}
	return decodeBlockInfo(resp), nil
}

// BlockCertificates fetches get_block_certificates. Only called for
// protocol version >= 8 (§4.2); callers are expected to gate on that.
func (e *Endpoint) BlockCertificates(ctx context.Context, req BlockRequest) (*pb.BlockCertificates, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	resp, err := e.client.GetBlockCertificates(cctx, req.proto())
	if err != nil {
		return nil, fmt.Errorf("node: GetBlockCertificates(%d): %w", req.Height, err)
	}
	return resp, nil
}

// TransactionEvents streams get_block_transaction_events and collects the
// full list; blocks have bounded transaction counts so buffering is safe.
func (e *Endpoint) TransactionEvents(ctx context.Context, req BlockRequest) ([]*pb.BlockItemSummary, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	stream, err := e.client.GetBlockTransactionEvents(cctx, req.proto())
	if err != nil {
		return nil, fmt.Errorf("node: GetBlockTransactionEvents(%d): %w", req.Height, err)
	}
	var out []*pb.BlockItemSummary
	for {
		item, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("node: GetBlockTransactionEvents(%d): %w", req.Height, err)
		}
		out = append(out, item)
	}
	return out, nil
}

// BlockItems streams get_block_items (raw payloads).
func (e *Endpoint) BlockItems(ctx context.Context, req BlockRequest) ([]*pb.BlockItem, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	stream, err := e.client.GetBlockItems(cctx, req.proto())
	if err != nil {
		return nil, fmt.Errorf("node: GetBlockItems(%d): %w", req.Height, err)
	}
	var out []*pb.BlockItem
	for {
		item, err := stream.Recv()
		if err != nil {
			break
		}
		out = append(out, item)
	}
	return out, nil
}

// SpecialEvents streams get_block_special_events.
func (e *Endpoint) SpecialEvents(ctx context.Context, req BlockRequest) ([]*pb.BlockSpecialEvent, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	stream, err := e.client.GetBlockSpecialEvents(cctx, req.proto())
	if err != nil {
		return nil, fmt.Errorf("node: GetBlockSpecialEvents(%d): %w", req.Height, err)
	}
	var out []*pb.BlockSpecialEvent
	for {
		item, err := stream.Recv()
		if err != nil {
			break
		}
		out = append(out, item)
	}
	return out, nil
}

// ChainParameters fetches get_block_chain_parameters.
func (e *Endpoint) ChainParameters(ctx context.Context, req BlockRequest) (*pb.ChainParameters, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	resp, err := e.client.GetBlockChainParameters(cctx, req.proto())
	if err != nil {
		return nil, fmt.Errorf("node: GetBlockChainParameters(%d): %w", req.Height, err)
	}
	return resp, nil
}

// TokenomicsInfo fetches get_tokenomics_info, used to derive total stake
// capital directly for V1+ tokenomics (§4.2).
func (e *Endpoint) TokenomicsInfo(ctx context.Context, req BlockRequest) (*pb.TokenomicsInfo, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	resp, err := e.client.GetTokenomicsInfo(cctx, req.proto())
	if err != nil {
		return nil, fmt.Errorf("node: GetTokenomicsInfo(%d): %w", req.Height, err)
	}
	return resp, nil
}

// BakerList streams get_baker_list, used for legacy (V0) tokenomics total
// stake computation by summing get_account_info(baker).staked_amount.
func (e *Endpoint) BakerList(ctx context.Context, req BlockRequest) ([]types.BakerID, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	stream, err := e.client.GetBakerList(cctx, req.proto())
	if err != nil {
		return nil, fmt.Errorf("node: GetBakerList(%d): %w", req.Height, err)
	}
	var out []types.BakerID
	for {
		id, err := stream.Recv()
		if err != nil {
			break
		}
		out = append(out, types.BakerID(id.Value))
	}
	return out, nil
}

// AccountInfo fetches get_account_info for a baker/delegator account.
func (e *Endpoint) AccountInfo(ctx context.Context, blk BlockRequest, idx types.AccountIndex) (*pb.AccountInfo, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	resp, err := e.client.GetAccountInfo(cctx, &pb.AccountInfoRequest{
		BlockHash: blk.proto(),
		AccountIdentifier: &pb.AccountIdentifierInput{
			AccountIdentifierInput: &pb.AccountIdentifierInput_AccountIndex{
				AccountIndex: &pb.AccountIndex{Value: uint64(idx)},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("node: GetAccountInfo(%d): %w", idx, err)
	}
	return resp, nil
}

// AccountList streams get_account_list, used by migration steps that must
// re-derive account state and by genesis handling.
func (e *Endpoint) AccountList(ctx context.Context, req BlockRequest) ([]types.CanonicalAddress, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	stream, err := e.client.GetAccountList(cctx, req.proto())
	if err != nil {
		return nil, fmt.Errorf("node: GetAccountList(%d): %w", req.Height, err)
	}
	var out []types.CanonicalAddress
	for {
		a, err := stream.Recv()
		if err != nil {
			break
		}
		out = append(out, decodeAddress(a))
	}
	return out, nil
}

// ModuleSource fetches get_module_source, used to obtain a module's
// embedded schema for reject-reason parsing (§4.2 rule 1).
func (e *Endpoint) ModuleSource(ctx context.Context, blk BlockRequest, ref types.ModuleRef) ([]byte, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	resp, err := e.client.GetModuleSource(cctx, &pb.ModuleSourceRequest{
		BlockHash: blk.proto(),
		ModuleRef: &pb.ModuleRef{Value: ref[:]},
	})
	if err != nil {
		return nil, fmt.Errorf("node: GetModuleSource(%s): %w", ref, err)
	}
	return resp.GetValue(), nil
}

// InstanceInfo fetches get_instance_info, used both for balance/owner
// lookups and as a base for the CIS-0 supports probe.
func (e *Endpoint) InstanceInfo(ctx context.Context, blk BlockRequest, addr types.ContractAddress) (*pb.InstanceInfo, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	resp, err := e.client.GetInstanceInfo(cctx, &pb.InstanceInfoRequest{
		BlockHash: blk.proto(),
		Address:   &pb.ContractAddress{Index: addr.Index, Subindex: addr.SubIndex},
	})
	if err != nil {
		return nil, fmt.Errorf("node: GetInstanceInfo(%s): %w", addr, err)
	}
	return resp, nil
}

// CIS0Supports performs the live cis0::supports(CIS2) probe against a
// contract at the given block (§4.2 rule 2). It is a contract view call,
// modeled as an InvokeInstance with the standard CIS-0 entrypoint.
func (e *Endpoint) CIS0Supports(ctx context.Context, blk BlockRequest, addr types.ContractAddress, standard string) (bool, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	resp, err := e.client.InvokeInstance(cctx, &pb.InvokeInstanceRequest{
		BlockHash: blk.proto(),
		Instance:  &pb.ContractAddress{Index: addr.Index, Subindex: addr.SubIndex},
		Entrypoint: &pb.ReceiveName{Value: "CIS0.supports"},
		Parameter:  &pb.Parameter{Value: encodeCIS0SupportsParam(standard)},
	})
	if err != nil {
		return false, fmt.Errorf("node: InvokeInstance(%s, supports): %w", addr, err)
	}
	return decodeCIS0SupportsResult(resp), nil
}

// BakersRewardPeriod fetches get_bakers_reward_period, additionally
// queried for payday blocks (§4.2 rule 6).
func (e *Endpoint) BakersRewardPeriod(ctx context.Context, req BlockRequest) (*pb.BakersRewardPeriod, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	resp, err := e.client.GetBakersRewardPeriod(cctx, req.proto())
	if err != nil {
		return nil, fmt.Errorf("node: GetBakersRewardPeriod(%d): %w", req.Height, err)
	}
	return resp, nil
}

// ElectionInfo fetches get_election_info, additionally queried for payday
// blocks to build the lottery-power snapshot (§4.2 rule 6).
func (e *Endpoint) ElectionInfo(ctx context.Context, req BlockRequest) (*pb.ElectionInfo, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	cctx, cancel := e.callCtx(ctx)
	defer cancel()

	resp, err := e.client.GetElectionInfo(cctx, req.proto())
	if err != nil {
		return nil, fmt.Errorf("node: GetElectionInfo(%d): %w", req.Height, err)
	}
	return resp, nil
}

func encodeCIS0SupportsParam(standard string) []byte {
	b := make([]byte, 0, len(standard)+2)
	b = append(b, byte(len(standard)), 0)
	return append(b, []byte(standard)...)
}

func decodeCIS0SupportsResult(resp *pb.InvokeInstanceResponse) bool {
	if resp == nil || resp.GetSuccess() == nil {
		return false
	}
	out := resp.GetSuccess().GetReturnValue()
	return len(out) > 0 && out[len(out)-1] == 1
}
