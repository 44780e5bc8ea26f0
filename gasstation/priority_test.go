package gasstation

import (
	"context"
	"testing"
	"time"

	"github.com/Conflux-Chain/gas-estimation/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEstimator struct {
	price    types.EstimatedGasPrice
	err      error
	calls    int
	closeErr error
	closed   bool
}

func (e *stubEstimator) EstimateWithLimits(
	ctx context.Context, gasLimit float64, timeLimit time.Duration,
) (types.EstimatedGasPrice, error) {
	e.calls++
	return e.price, e.err
}

func (e *stubEstimator) Close() error {
	e.closed = true
	return e.closeErr
}

func TestPriorityFallback(t *testing.T) {
	failing := &stubEstimator{err: newError(KindUpstream, nil, "e1 failed")}
	ok := &stubEstimator{price: types.EstimatedGasPrice{Legacy: 42}}
	unused := &stubEstimator{price: types.EstimatedGasPrice{Legacy: 7}}

	price, err := NewPriority(failing, ok, unused).EstimateWithLimits(context.Background(), DefaultGasLimit, DefaultTimeLimit)
	require.NoError(t, err)
	assert.Equal(t, 42.0, price.Legacy)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 0, unused.calls)
}

func TestPriorityAllFailed(t *testing.T) {
	first := &stubEstimator{err: newError(KindUpstream, nil, "first")}
	last := &stubEstimator{err: newError(KindStale, nil, "last")}

	_, err := NewPriority(first, last).EstimateWithLimits(context.Background(), DefaultGasLimit, DefaultTimeLimit)
	assert.ErrorIs(t, err, ErrStale)
	assert.Equal(t, "stale: last", err.Error())
}

func TestPriorityNoEstimators(t *testing.T) {
	_, err := NewPriority().EstimateWithLimits(context.Background(), DefaultGasLimit, DefaultTimeLimit)
	assert.ErrorIs(t, err, ErrNoEstimators)
}

func TestPriorityClose(t *testing.T) {
	e1 := &stubEstimator{closeErr: errors.New("close e1")}
	e2 := &stubEstimator{}
	e3 := &stubEstimator{closeErr: errors.New("close e3")}
	node := NewEthNode(newTestNodeClient())

	err := NewPriority(e1, node, e2, e3).Close()
	assert.True(t, e1.closed)
	assert.True(t, e2.closed)
	assert.True(t, e3.closed)
	assert.EqualError(t, err, "close e1; close e3")
}

func TestEstimate(t *testing.T) {
	var gotGasLimit float64
	var gotTimeLimit time.Duration

	e := EstimatorFunc(func(ctx context.Context, gasLimit float64, timeLimit time.Duration) (types.EstimatedGasPrice, error) {
		gotGasLimit, gotTimeLimit = gasLimit, timeLimit
		return types.EstimatedGasPrice{Legacy: 1}, nil
	})

	_, err := Estimate(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, DefaultGasLimit, gotGasLimit)
	assert.Equal(t, DefaultTimeLimit, gotTimeLimit)
}
