package gasstation

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/Conflux-Chain/gas-estimation/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feeHistoryCall struct {
	blockCount  uint64
	newestBlock string
	percentiles int
}

// fakeNodeClient serves a fixed fee history, and a reward row of the same reward
// percentiles for each block requested with percentiles.
type fakeNodeClient struct {
	mu       sync.Mutex
	gasPrice *big.Int
	history  *types.FeeHistory
	reward   []*big.Int
	err      error
	calls    []feeHistoryCall
}

func (c *fakeNodeClient) GasPrice(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return nil, c.err
	}

	return c.gasPrice, nil
}

func (c *fakeNodeClient) FeeHistory(
	ctx context.Context, blockCount uint64, newestBlock string, rewardPercentiles []float64,
) (*types.FeeHistory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, feeHistoryCall{blockCount, newestBlock, len(rewardPercentiles)})

	if c.err != nil {
		return nil, c.err
	}

	if len(rewardPercentiles) == 0 {
		return c.history, nil
	}

	res := &types.FeeHistory{Reward: make([][]*big.Int, 0, blockCount)}
	for i := uint64(0); i < blockCount; i++ {
		res.Reward = append(res.Reward, c.reward)
	}

	return res, nil
}

func (c *fakeNodeClient) set(history *types.FeeHistory, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history, c.err = history, err
}

func (c *fakeNodeClient) rewardCalls() (res []feeHistoryCall) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, call := range c.calls {
		if call.percentiles > 0 {
			res = append(res, call)
		}
	}

	return res
}

func gwei(vals ...float64) []*big.Int {
	res := make([]*big.Int, len(vals))
	for i, v := range vals {
		res[i] = big.NewInt(int64(v * 1e9))
	}

	return res
}

func newTestFeeHistory() *types.FeeHistory {
	return &types.FeeHistory{
		OldestBlock:   100,
		BaseFeePerGas: gwei(10, 20, 30, 40, 50),
		GasUsedRatio:  []float64{0.5, 0.95, 0.5, 0.5},
	}
}

// newTestNodeClient rewards 2 gwei for every percentile but the 0th.
func newTestNodeClient() *fakeNodeClient {
	reward := make([]*big.Int, 21)
	for i := range reward {
		reward[i] = big.NewInt(2e9)
	}
	reward[0] = big.NewInt(0)

	return &fakeNodeClient{
		gasPrice: big.NewInt(3e9),
		history:  newTestFeeHistory(),
		reward:   reward,
	}
}

func TestSamplingCurve(t *testing.T) {
	oracle := feeOracle{config: NewNativeConfig()}

	assert.Equal(t, 0.0, oracle.samplingCurve(0))
	assert.Equal(t, 0.0, oracle.samplingCurve(10))
	assert.InDelta(t, 0.5, oracle.samplingCurve(15), 1e-9)
	assert.Equal(t, 1.0, oracle.samplingCurve(30))
	assert.Equal(t, 1.0, oracle.samplingCurve(100))
}

func TestSuggestPriorityFee(t *testing.T) {
	oracle := feeOracle{config: NewNativeConfig()}
	rewards := []float64{1e9, 1.11e9, 1.2133e9, 1.4335e9, 1.5580e9, 1.6160e9, 2e9, 2.5580e9, 2.91e9, 3e9}

	// (30 + 30/1) / 100 = 0.6 selects floor(9 * 0.6) = 5
	assert.Equal(t, 1.6160e9+1559, oracle.suggestPriorityFee(rewards, 1))
	// (30 + 30/128) / 100 selects floor(9 * 0.302) = 2
	assert.Equal(t, 1.2133e9+1559, oracle.suggestPriorityFee(rewards, 128))

	assert.Equal(t, 2e9, oracle.suggestPriorityFee(nil, 1))
}

func TestMaxBlockCount(t *testing.T) {
	ratios := []float64{0.5, 0, 0.5, 0.5, 0.95, 0.5}

	assert.Equal(t, 1, maxBlockCount(ratios, 5, 5))
	assert.Equal(t, 0, maxBlockCount(ratios, 4, 5))
	assert.Equal(t, 2, maxBlockCount(ratios, 3, 5))
	assert.Equal(t, 1, maxBlockCount(ratios, 3, 1))
	assert.Equal(t, 0, maxBlockCount(ratios, 1, 5))
	assert.Equal(t, 1, maxBlockCount(ratios, 0, 5))
}

func TestPredictMinBaseFee(t *testing.T) {
	oracle := feeOracle{config: NewNativeConfig()}

	uniform := []float64{7e9, 7e9, 7e9, 7e9, 7e9}
	order := []int{0, 1, 2, 3, 4}
	for _, timeDiv := range []float64{1, 3, 7, 127} {
		assert.InDelta(t, 7e9, oracle.predictMinBaseFee(uniform, order, timeDiv), 1, "timeDiv %v", timeDiv)
	}

	baseFee := []float64{1e9, 2e9, 3e9}
	assert.Equal(t, 3e9, oracle.predictMinBaseFee(baseFee, []int{0, 1, 2}, 0))
}

func TestSuggestFees(t *testing.T) {
	client := newTestNodeClient()
	oracle := feeOracle{config: NewNativeConfig()}

	fees, stats, err := oracle.suggestFees(context.Background(), client)
	require.NoError(t, err)

	// the two most recent non-full blocks first, then the one before the full block
	assert.Equal(t, []feeHistoryCall{{2, "0x67", 21}, {1, "0x64", 21}}, client.rewardCalls())

	require.Len(t, fees, 8)
	assert.Equal(t, 1.0, fees[0].TimeFactor)
	assert.Equal(t, 128.0, fees[len(fees)-1].TimeFactor)

	priorityFee := 2e9 + 1559
	fastest := fees[0].Price.EIP1559
	require.NotNil(t, fastest)
	assert.InDelta(t, 2*(56.25e9+priorityFee), fastest.MaxFeePerGas, 1)
	assert.InDelta(t, priorityFee, fastest.MaxPriorityFeePerGas, 1)
	assert.Equal(t, fastest.EffectiveGasPrice(), fees[0].Price.Legacy)

	for i, v := range fees {
		require.NotNil(t, v.Price.EIP1559)
		assert.Equal(t, 50e9, v.Price.EIP1559.BaseFeePerGas)
		assert.GreaterOrEqual(t, v.Price.Cap(), v.Price.Tip())

		if i > 0 {
			assert.Greater(t, v.TimeFactor, fees[i-1].TimeFactor)
			assert.LessOrEqual(t, v.Price.Cap(), fees[i-1].Price.Cap())
		}
	}

	assert.Equal(t, 50e9, stats.PendingBaseFee)
	assert.Equal(t, 10e9, stats.BaseFeeMin)
	assert.Equal(t, 40e9, stats.BaseFeeMax)
	assert.Equal(t, 25e9, stats.BaseFeeMedian)
	assert.InDelta(t, 0.6125, stats.Congestion, 1e-9)
	assert.Equal(t, 60, stats.RewardSamples)
}

func TestSuggestFeesFallbackPriorityFee(t *testing.T) {
	client := newTestNodeClient()
	client.reward = gwei(0, 0, 0)

	oracle := feeOracle{config: NewNativeConfig()}
	fees, _, err := oracle.suggestFees(context.Background(), client)
	require.NoError(t, err)

	for _, v := range fees {
		assert.GreaterOrEqual(t, v.Price.Tip(), 2e9)
	}

	assert.Equal(t, 2e9, fees[0].Price.Tip())
}

func TestSuggestFeesErrors(t *testing.T) {
	oracle := feeOracle{config: NewNativeConfig()}

	client := newTestNodeClient()
	client.set(nil, errors.New("connection refused"))
	_, _, err := oracle.suggestFees(context.Background(), client)
	assert.ErrorIs(t, err, ErrUpstream)

	client.set(&types.FeeHistory{
		BaseFeePerGas: gwei(0, 0, 0),
		GasUsedRatio:  []float64{0.5, 0.5},
	}, nil)
	_, _, err = oracle.suggestFees(context.Background(), client)
	assert.ErrorIs(t, err, ErrUpstream)

	client.set(&types.FeeHistory{
		BaseFeePerGas: gwei(1, 2),
		GasUsedRatio:  []float64{0.5, 0.5},
	}, nil)
	_, _, err = oracle.suggestFees(context.Background(), client)
	assert.ErrorIs(t, err, ErrInvalidInput)

	client.set(&types.FeeHistory{BaseFeePerGas: gwei(1)}, nil)
	_, _, err = oracle.suggestFees(context.Background(), client)
	assert.ErrorIs(t, err, ErrUpstream)

	config := NewNativeConfig()
	config.MaxTimeFactor = 0.5
	oracle = feeOracle{config: config}
	_, _, err = oracle.suggestFees(context.Background(), newTestNodeClient())
	assert.ErrorIs(t, err, ErrInvalidInput)
}
