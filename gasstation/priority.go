package gasstation

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Conflux-Chain/gas-estimation/types"
	"github.com/Conflux-Chain/gas-estimation/util/metrics"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Priority tries the estimators in order, and returns the first successful estimate.
type Priority struct {
	estimators []Estimator
}

func NewPriority(estimators ...Estimator) *Priority {
	return &Priority{estimators: estimators}
}

// EstimateWithLimits returns the error of the last estimator if all failed.
func (p *Priority) EstimateWithLimits(
	ctx context.Context, gasLimit float64, timeLimit time.Duration,
) (types.EstimatedGasPrice, error) {
	if len(p.estimators) == 0 {
		return types.EstimatedGasPrice{}, newError(KindNoEstimators, nil, "no estimators configured")
	}

	var lastErr error
	for i, e := range p.estimators {
		price, err := e.EstimateWithLimits(ctx, gasLimit, timeLimit)
		if err == nil {
			metrics.Registry.Estimator.Fallback().Update(int64(i))
			return price, nil
		}

		logrus.WithFields(logrus.Fields{
			"index":     i,
			"estimator": fmt.Sprintf("%T", e),
		}).WithError(err).Debug("Gas price estimator failed, trying next one")

		lastErr = err
	}

	return types.EstimatedGasPrice{}, lastErr
}

// Close closes all estimators that hold resources.
func (p *Priority) Close() (err error) {
	for _, e := range p.estimators {
		if closer, ok := e.(io.Closer); ok {
			err = multierr.Append(err, closer.Close())
		}
	}

	return err
}
