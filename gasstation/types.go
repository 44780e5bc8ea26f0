package gasstation

import (
	"github.com/Conflux-Chain/gas-estimation/types"
	"github.com/montanaflynn/stats"
)

// TimeFactorFee is the fee suggestion for a coarse time horizon, in number of blocks.
type TimeFactorFee struct {
	TimeFactor float64
	Price      types.EstimatedGasPrice
}

// FeeStats summarizes the fee history window of a native oracle refresh.
type FeeStats struct {
	// base fee of the pending block
	PendingBaseFee float64 `json:"pendingBaseFee"`

	// min, max, median statistics of the historic base fees
	BaseFeeMin    float64 `json:"baseFeeMin"`
	BaseFeeMax    float64 `json:"baseFeeMax"`
	BaseFeeMedian float64 `json:"baseFeeMedian"`

	// mean gas used ratio of the window, which reflects network congestion
	Congestion float64 `json:"congestion"`
	// number of positive rewards sampled for priority fee suggestion
	RewardSamples int `json:"rewardSamples"`
}

func newFeeStats(history *types.FeeHistory, rewards []float64) (res FeeStats, err error) {
	baseFees := history.BaseFees()
	n := len(history.GasUsedRatio)

	res.PendingBaseFee = baseFees[n]
	res.RewardSamples = len(rewards)

	data := stats.Float64Data(baseFees[:n])
	if res.BaseFeeMin, err = data.Min(); err != nil {
		return res, err
	}

	if res.BaseFeeMax, err = data.Max(); err != nil {
		return res, err
	}

	if res.BaseFeeMedian, err = data.Median(); err != nil {
		return res, err
	}

	res.Congestion, err = stats.Mean(history.GasUsedRatio)
	return res, err
}
