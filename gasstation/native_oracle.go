package gasstation

import (
	"context"
	"math"
	"slices"
	"sort"

	"github.com/Conflux-Chain/gas-estimation/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"
)

const (
	// blocks with higher gas used ratio are regarded as full
	fullBlockRatio = 0.9
	// the pending block is assumed to end up full, which raises its base fee by 1/8
	pendingBaseFeeMultiplier = 1.125
	// time divisors below are regarded as zero
	minTimeDiv = 1e-6
)

// feeOracle suggests EIP-1559 fees for time horizons of 1 to MaxTimeFactor blocks,
// based on the fee history of recent blocks.
//
// See https://github.com/zsfelfoldi/feehistory/blob/main/docs/feeOracle.md
type feeOracle struct {
	config NativeConfig
}

// suggestFees returns fee suggestions ordered by ascending time factor.
func (o *feeOracle) suggestFees(ctx context.Context, client NodeClient) ([]TimeFactorFee, FeeStats, error) {
	if o.config.MaxTimeFactor < 1 {
		return nil, FeeStats{}, newError(KindInvalidInput, nil, "max time factor %v below 1", o.config.MaxTimeFactor)
	}

	// fee history without reward percentiles is cheap, since only block headers required
	history, err := client.FeeHistory(ctx, o.config.FeeHistoryBlocks, "latest", nil)
	if err != nil {
		return nil, FeeStats{}, newError(KindUpstream, err, "failed to get fee history")
	}

	if err := history.Validate(); err != nil {
		return nil, FeeStats{}, newError(KindInvalidInput, err, "malformed fee history")
	}

	n := len(history.GasUsedRatio)
	if n == 0 {
		return nil, FeeStats{}, newError(KindUpstream, nil, "empty fee history")
	}

	baseFee := history.BaseFees()
	if !slices.ContainsFunc(baseFee, func(v float64) bool { return v > 0 }) {
		return nil, FeeStats{}, newError(KindUpstream, nil, "no EIP-1559 base fee from node")
	}

	pendingBaseFee := baseFee[n]

	// If a block is full then the base fee of the next block is copied, since the
	// minimal priority fee might not be enough to get included in full blocks.
	baseFee[n] *= pendingBaseFeeMultiplier
	for i := n - 1; i >= 0; i-- {
		if history.GasUsedRatio[i] > fullBlockRatio {
			baseFee[i] = baseFee[i+1]
		}
	}

	order := make([]int, len(baseFee))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(i, j int) bool {
		return baseFee[order[i]] < baseFee[order[j]]
	})

	rewards, err := o.collectRewards(ctx, client, history.OldestBlock, history.GasUsedRatio)
	if err != nil {
		return nil, FeeStats{}, err
	}

	var (
		fees       []TimeFactorFee
		maxBaseFee float64
	)

	for timeFactor := o.config.MaxTimeFactor; timeFactor >= 1; timeFactor /= 2 {
		priorityFee := o.suggestPriorityFee(rewards, timeFactor)
		minBaseFee := o.predictMinBaseFee(baseFee, order, timeFactor-1)

		var extraFee float64
		if minBaseFee > maxBaseFee {
			maxBaseFee = minBaseFee
		} else {
			// A narrower time window yielding a lower base fee than a wider one implies
			// a price dip, so the higher base fee is used along with extra priority fee.
			extraFee = (maxBaseFee - minBaseFee) * o.config.ExtraPriorityFeeRatio
			minBaseFee = maxBaseFee
		}

		price := types.GasPrice1559{
			BaseFeePerGas:        pendingBaseFee,
			MaxFeePerGas:         minBaseFee + priorityFee,
			MaxPriorityFeePerGas: priorityFee + extraFee,
		}.BumpCap(o.config.BumpCapCoefficient)

		fees = append(fees, TimeFactorFee{
			TimeFactor: timeFactor,
			Price:      types.EstimatedGasPrice{Legacy: price.EffectiveGasPrice(), EIP1559: &price},
		})
	}

	slices.Reverse(fees)

	feeStats, err := newFeeStats(history, rewards)
	if err != nil {
		logrus.WithError(err).Debug("Failed to collect native fee statistics")
	}

	return fees, feeStats, nil
}

// collectRewards samples the reward percentiles of the most recent non-full blocks,
// and returns the positive rewards in ascending order.
func (o *feeOracle) collectRewards(
	ctx context.Context, client NodeClient, oldestBlock uint64, gasUsedRatio []float64,
) ([]float64, error) {
	percentiles := make([]float64, o.config.MaxRewardPercentile+1)
	for i := range percentiles {
		percentiles[i] = float64(i)
	}

	var rewards []float64

	ptr := len(gasUsedRatio) - 1
	needBlocks := o.config.RewardBlocks
	for needBlocks > 0 {
		blockCount := maxBlockCount(gasUsedRatio, ptr, needBlocks)
		if blockCount > 0 {
			// fee history with reward percentiles is expensive, so only requested for
			// a few non-full recent blocks
			newestBlock := hexutil.EncodeUint64(oldestBlock + uint64(ptr))
			history, err := client.FeeHistory(ctx, uint64(blockCount), newestBlock, percentiles)
			if err != nil {
				return nil, newError(KindUpstream, err, "failed to get fee history rewards")
			}

			if history.Reward == nil {
				break
			}

			for i := range history.Reward {
				for _, reward := range history.Rewards(i) {
					if reward > 0 {
						rewards = append(rewards, reward)
					}
				}
			}

			if len(history.Reward) < blockCount {
				break
			}

			needBlocks -= blockCount
		}

		if ptr < blockCount+1 {
			break
		}

		ptr -= blockCount + 1
	}

	sort.Float64s(rewards)
	return rewards, nil
}

// maxBlockCount returns the number of consecutive blocks ending at lastIndex suitable
// for priority fee suggestion, which have non-zero gas used ratio not higher than 0.9.
func maxBlockCount(gasUsedRatio []float64, lastIndex, needBlocks int) int {
	blockCount := 0
	for needBlocks > 0 {
		ratio := gasUsedRatio[lastIndex]
		if ratio == 0 || ratio > fullBlockRatio {
			break
		}

		blockCount++

		if lastIndex == 0 {
			break
		}

		lastIndex--
		needBlocks--
	}

	return blockCount
}

// suggestPriorityFee suggests a priority fee that is usually sufficient for blocks
// that are not full.
func (o *feeOracle) suggestPriorityFee(rewards []float64, timeFactor float64) float64 {
	if len(rewards) == 0 {
		return o.config.FallbackPriorityFee
	}

	cfg := o.config
	factor := (cfg.MinBlockPercentile + (cfg.MaxBlockPercentile-cfg.MinBlockPercentile)/timeFactor) / 100
	index := int(math.Floor(float64(len(rewards)-1) * factor))
	index = max(0, min(index, len(rewards)-1))

	return rewards[index] + cfg.ExtraPriorityFeeBoost
}

// predictMinBaseFee averages the base fees within the sampled percentile range of the
// history, each block weighted exponentially by its age relative to timeDiv.
func (o *feeOracle) predictMinBaseFee(baseFee []float64, order []int, timeDiv float64) float64 {
	if timeDiv < minTimeDiv {
		return baseFee[len(baseFee)-1]
	}

	size := float64(len(baseFee))
	pendingWeight := (1 - math.Exp(-1/timeDiv)) / (1 - math.Exp(-size/timeDiv))

	var sumWeight, result, lastCurve float64
	for _, i := range order {
		sumWeight += pendingWeight * math.Exp(float64(i-len(baseFee)+1)/timeDiv)
		curve := o.samplingCurve(sumWeight * 100)
		result += (curve - lastCurve) * baseFee[i]

		if curve >= 1 {
			return result
		}

		lastCurve = curve
	}

	return result
}

// samplingCurve is a raised cosine ramp between the sampled min and max percentile.
func (o *feeOracle) samplingCurve(percentile float64) float64 {
	lower, upper := o.config.SampleMinPercentile, o.config.SampleMaxPercentile
	if percentile <= lower {
		return 0
	}

	if percentile >= upper {
		return 1
	}

	return (1 - math.Cos((percentile-lower)*2*math.Pi/(upper-lower))) / 2
}
