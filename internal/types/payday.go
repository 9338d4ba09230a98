package types

import "github.com/ethereum/go-ethereum/common/hexutil"

// PaydaySnapshot is one validator's captured commission rates and lottery
// power at a payday block (§3 Payday snapshot, §4.2 rule 6). The previous
// snapshot is discarded in full when a new one is written.
type PaydaySnapshot struct {
	BakerID            BakerID
	PaydayBlockHeight   BlockHeight
	TransactionFee     float64
	BakingReward       float64
	FinalizationReward float64
	LotteryPower       float64
	EffectiveStake     hexutil.Big
}

// ChainParameters is the single-row §3 Chain parameters table.
type ChainParameters struct {
	EpochDurationMillis   uint64
	RewardPeriodLength    uint64
	LastPaydayBlockHeight BlockHeight
}

// PaydaySpecialEventKind is the set of special-outcome tags that mark a
// block as a payday block (§4.2 rule 6).
type PaydaySpecialEventKind string

const (
	PaydayFoundationReward PaydaySpecialEventKind = "PaydayFoundationReward"
	PaydayAccountReward    PaydaySpecialEventKind = "PaydayAccountReward"
	PaydayPoolReward       PaydaySpecialEventKind = "PaydayPoolReward"
)

// MetricsKind distinguishes the rollup series carried in metrics tables
// (§3 Metrics rollups; §9 notes PoolRewardMetrics/RewardMetrics are
// partially implemented upstream).
type MetricsKind string

const (
	MetricsPLT         MetricsKind = "metrics_plt"
	MetricsPLTTransfer MetricsKind = "metrics_plt_transfer"
)

// MetricsBucket is one bucket of a block-time-indexed cumulative series.
// Writes to this table use insert-or-merge-with-GREATEST (§4.3) so that
// out-of-order or retried writes cannot decrease a monotonic counter.
type MetricsBucket struct {
	Kind           MetricsKind
	TokenID        string
	BucketStart    int64 // unix millis, truncated to the rollup granularity
	CumulativeCount uint64
	CumulativeAmount *hexutil.Big
}
