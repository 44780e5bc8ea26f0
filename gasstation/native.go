package gasstation

import (
	"context"
	"time"

	"github.com/Conflux-Chain/gas-estimation/types"
	"github.com/Conflux-Chain/gas-estimation/util"
	"github.com/Conflux-Chain/gas-estimation/util/metrics"
	"github.com/sirupsen/logrus"
)

type nativeSnapshot struct {
	fees  []TimeFactorFee
	stats FeeStats
}

// NativeEstimator estimates EIP-1559 fees from the fee history of a node, refreshed
// in the background.
type NativeEstimator struct {
	oracle       *feeOracle
	client       NodeClient
	timePerBlock time.Duration
	refresher    *Refresher[nativeSnapshot]
}

// NewNativeEstimator creates a native estimator, which fails unless the first fee
// suggestion succeeds.
func NewNativeEstimator(
	ctx context.Context, client NodeClient, config NativeConfig, options ...RefresherOption,
) (*NativeEstimator, error) {
	e := &NativeEstimator{
		oracle:       &feeOracle{config: config},
		client:       client,
		timePerBlock: config.TimePerBlock,
	}

	if e.timePerBlock <= 0 {
		e.timePerBlock = TimePerBlock
	}

	fetch := func(ctx context.Context) (nativeSnapshot, error) {
		fees, stats, err := e.oracle.suggestFees(ctx, client)
		if err != nil {
			return nativeSnapshot{}, err
		}

		metrics.Registry.Oracle.PendingBaseFee().Update(stats.PendingBaseFee)
		metrics.Registry.Oracle.Congestion().Update(stats.Congestion)
		metrics.Registry.Oracle.RewardSamples().Update(int64(stats.RewardSamples))

		logrus.WithFields(logrus.Fields{
			"pendingBaseFee": stats.PendingBaseFee,
			"congestion":     stats.Congestion,
			"rewardSamples":  stats.RewardSamples,
			"fastest":        fees[0].Price.EIP1559,
		}).Debug("Native fee oracle suggestions updated")

		return nativeSnapshot{fees: fees, stats: stats}, nil
	}

	opts := append([]RefresherOption{
		WithInterval(config.RefreshInterval), WithValidity(config.Validity),
	}, options...)

	refresher, err := NewRefresher(ctx, "native", fetch, opts...)
	if err != nil {
		return nil, err
	}

	e.refresher = refresher
	return e, nil
}

// SuggestFees computes fee suggestions from the node right away, bypassing the cache.
func (e *NativeEstimator) SuggestFees(ctx context.Context) ([]TimeFactorFee, error) {
	fees, _, err := e.oracle.suggestFees(ctx, e.client)
	return fees, err
}

// Suggestions returns the cached fee suggestions ordered by ascending time factor.
func (e *NativeEstimator) Suggestions() ([]TimeFactorFee, error) {
	resp, err := e.refresher.Load()
	if err != nil {
		return nil, err
	}

	return resp.Data.fees, nil
}

// Stats returns the fee statistics of the cached fee history window.
func (e *NativeEstimator) Stats() (FeeStats, error) {
	resp, err := e.refresher.Load()
	if err != nil {
		return FeeStats{}, err
	}

	return resp.Data.stats, nil
}

func (e *NativeEstimator) EstimateWithLimits(
	ctx context.Context, gasLimit float64, timeLimit time.Duration,
) (price types.EstimatedGasPrice, err error) {
	defer func() {
		metrics.Registry.Estimator.Update("native", err)
	}()

	resp, err := e.refresher.Load()
	if err != nil {
		return types.EstimatedGasPrice{}, err
	}

	return interpolateTimeFactorFees(resp.Data.fees, float64(timeLimit)/float64(e.timePerBlock))
}

func (e *NativeEstimator) Close() error {
	e.refresher.Close()
	return nil
}

// interpolateTimeFactorFees interpolates the fee suggestions at time factor x.
func interpolateTimeFactorFees(fees []TimeFactorFee, x float64) (types.EstimatedGasPrice, error) {
	if len(fees) == 0 {
		return types.EstimatedGasPrice{}, newError(KindNotReady, nil, "no fee suggestions")
	}

	// a single suggestion when the max time factor is 1
	if len(fees) == 1 {
		return fees[0].Price, nil
	}

	var legacyPts, maxFeePts, maxPriorityPts []util.Point
	for _, v := range fees {
		legacyPts = append(legacyPts, util.Point{X: v.TimeFactor, Y: v.Price.Legacy})
		maxFeePts = append(maxFeePts, util.Point{X: v.TimeFactor, Y: v.Price.Cap()})
		maxPriorityPts = append(maxPriorityPts, util.Point{X: v.TimeFactor, Y: v.Price.Tip()})
	}

	legacy, err := util.Interpolate(x, legacyPts)
	if err != nil {
		return types.EstimatedGasPrice{}, newError(KindInvalidInput, err, "failed to interpolate legacy price")
	}

	maxFee, err := util.Interpolate(x, maxFeePts)
	if err != nil {
		return types.EstimatedGasPrice{}, newError(KindInvalidInput, err, "failed to interpolate max fee")
	}

	maxPriority, err := util.Interpolate(x, maxPriorityPts)
	if err != nil {
		return types.EstimatedGasPrice{}, newError(KindInvalidInput, err, "failed to interpolate max priority fee")
	}

	var baseFee float64
	if first := fees[0].Price.EIP1559; first != nil {
		baseFee = first.BaseFeePerGas
	}

	return types.EstimatedGasPrice{
		Legacy: legacy,
		EIP1559: &types.GasPrice1559{
			BaseFeePerGas:        baseFee,
			MaxFeePerGas:         maxFee,
			MaxPriorityFeePerGas: maxPriority,
		},
	}, nil
}
