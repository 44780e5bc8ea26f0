package gasstation

import (
	"context"
	"time"

	"github.com/Conflux-Chain/gas-estimation/types"
)

const (
	DefaultGasLimit  float64       = 21000
	DefaultTimeLimit time.Duration = 30 * time.Second

	// average block time used to map time limits onto block based horizons
	TimePerBlock = 15 * time.Second
	// validity of cached upstream responses
	CachedResponseValidity = 60 * time.Second
)

// Estimator estimates gas price for a transaction of gasLimit gas to be mined within timeLimit.
//
// Estimators backed by a background refresher never block on network I/O.
type Estimator interface {
	EstimateWithLimits(ctx context.Context, gasLimit float64, timeLimit time.Duration) (types.EstimatedGasPrice, error)
}

// Estimate estimates gas price with the default gas and time limit.
func Estimate(ctx context.Context, e Estimator) (types.EstimatedGasPrice, error) {
	return e.EstimateWithLimits(ctx, DefaultGasLimit, DefaultTimeLimit)
}

// EstimatorFunc adapts an ordinary function to Estimator.
type EstimatorFunc func(ctx context.Context, gasLimit float64, timeLimit time.Duration) (types.EstimatedGasPrice, error)

func (f EstimatorFunc) EstimateWithLimits(
	ctx context.Context, gasLimit float64, timeLimit time.Duration,
) (types.EstimatedGasPrice, error) {
	return f(ctx, gasLimit, timeLimit)
}
