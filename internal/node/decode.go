package node

import (
	"time"

	"github.com/concordium/concordium-go-sdk/v2/pb"

	"github.com/concordium/ccdscan-go/internal/types"
)

func decodeConsensusInfo(r *pb.ConsensusInfo) *ConsensusInfo {
	return &ConsensusInfo{
		GenesisHash:            decodeHash(r.GenesisBlock),
		LastFinalizedHeight:    types.BlockHeight(r.LastFinalizedBlockHeight.Value),
		LastFinalizedBlockHash: decodeHash(r.LastFinalizedBlock),
		LastFinalizedTime:      r.LastFinalizedTime.AsTime(),
	}
}

func decodeHash(h *pb.BlockHash) types.BlockHash {
	var out types.BlockHash
	copy(out[:], h.GetValue())
	return out
}

func decodeModuleRef(m *pb.ModuleRef) types.ModuleRef {
	var out types.ModuleRef
	copy(out[:], m.GetValue())
	return out
}

func decodeAddress(a *pb.AccountAddress) types.CanonicalAddress {
	var out types.CanonicalAddress
	copy(out[:], a.GetValue())
	return out
}

// BlockInfo is the subset of get_block_info used during preparation.
type BlockInfo struct {
	Height      types.BlockHeight
	Hash        types.BlockHash
	SlotTime    time.Time
	BakerID     *types.BakerID
	LastFinalized types.BlockHash
	ProtocolVersion uint32
}

func decodeBlockInfo(r *pb.BlockInfo) *BlockInfo {
	bi := &BlockInfo{
		Height:          types.BlockHeight(r.Height.Value),
		Hash:            decodeHash(r.Hash),
		SlotTime:        r.SlotTime.AsTime(),
		LastFinalized:   decodeHash(r.BlockLastFinalized),
		ProtocolVersion: uint32(r.ProtocolVersion),
	}
	if r.Baker != nil {
		b := types.BakerID(r.Baker.Value)
		bi.BakerID = &b
	}
	return bi
}
