package gasstation

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateGasNow(t *testing.T) {
	data := GasNowData{Rapid: 4, Fast: 3, Standard: 2, Slow: 1}

	price, err := EstimateGasNow(20*time.Second, data)
	require.NoError(t, err)
	assert.Nil(t, price.EIP1559)
	assert.Greater(t, price.Legacy, 3.0)
	assert.Less(t, price.Legacy, 4.0)

	testCases := []struct {
		timeLimit time.Duration
		expected  float64
	}{
		{time.Second, 4},
		{GasNowRapid, 4},
		{GasNowFast, 3},
		{180 * time.Second, 2.5},
		{GasNowSlow, 1},
		{time.Hour, 1},
	}

	for _, tc := range testCases {
		price, err := EstimateGasNow(tc.timeLimit, data)
		require.NoError(t, err)
		assert.InDelta(t, tc.expected, price.Legacy, 1e-9, "timeLimit = %v", tc.timeLimit)
	}
}

func TestGasNowStationCache(t *testing.T) {
	clock := newFakeClock()
	transport := &fakeTransport{body: `{"code": 200, "data": {"rapid": 4, "fast": 3, "standard": 2, "slow": 1}}`}

	station := NewGasNowStation(transport)
	station.now = clock.Now

	price, err := station.EstimateWithLimits(context.Background(), DefaultGasLimit, GasNowFast)
	require.NoError(t, err)
	assert.Equal(t, 3.0, price.Legacy)

	// served from cache within the rate limit
	transport.set(`{"code": 200, "data": {"rapid": 8, "fast": 6, "standard": 4, "slow": 2}}`, nil)
	clock.Advance(14 * time.Second)

	price, err = station.EstimateWithLimits(context.Background(), DefaultGasLimit, GasNowFast)
	require.NoError(t, err)
	assert.Equal(t, 3.0, price.Legacy)
	assert.Equal(t, 1, transport.callCount())

	// refreshed after expiry
	clock.Advance(time.Second)

	price, err = station.EstimateWithLimits(context.Background(), DefaultGasLimit, GasNowFast)
	require.NoError(t, err)
	assert.Equal(t, 6.0, price.Legacy)
	assert.Equal(t, 2, transport.callCount())
}

func TestGasNowStationCachesErrors(t *testing.T) {
	clock := newFakeClock()
	transport := &fakeTransport{err: errors.New("503 service unavailable")}

	station := NewGasNowStation(transport)
	station.now = clock.Now

	_, err := station.EstimateWithLimits(context.Background(), DefaultGasLimit, GasNowFast)
	assert.ErrorIs(t, err, ErrUpstream)

	// the error is cached until expiry, even though upstream recovered
	transport.set(`{"code": 200, "data": {"rapid": 4, "fast": 3, "standard": 2, "slow": 1}}`, nil)

	_, err = station.EstimateWithLimits(context.Background(), DefaultGasLimit, GasNowFast)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "cache has not yet expired")
	assert.Equal(t, 1, transport.callCount())

	clock.Advance(15 * time.Second)

	price, err := station.EstimateWithLimits(context.Background(), DefaultGasLimit, GasNowFast)
	require.NoError(t, err)
	assert.Equal(t, 3.0, price.Legacy)
}

func TestExpiryCache(t *testing.T) {
	cache := newExpiryCache[int](time.Second)
	now := time.Now()

	v, cached, err := cache.getOrUpdateAt(now, func() (int, error) { return 1, nil })
	assert.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, v)

	v, cached, _ = cache.getOrUpdateAt(now.Add(999*time.Millisecond), func() (int, error) { return 2, nil })
	assert.True(t, cached)
	assert.Equal(t, 1, v)

	v, cached, _ = cache.getOrUpdateAt(now.Add(time.Second), func() (int, error) { return 3, nil })
	assert.False(t, cached)
	assert.Equal(t, 3, v)
}
