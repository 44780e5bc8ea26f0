package gasstation

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellLoadFresh(t *testing.T) {
	var c cell[int]
	now := time.Now()

	_, err := c.loadFresh(now, time.Minute)
	assert.ErrorIs(t, err, ErrNotReady)

	c.store(CachedResponse[int]{Time: now, Data: 7})

	resp, err := c.loadFresh(now.Add(time.Minute), time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, 7, resp.Data)

	_, err = c.loadFresh(now.Add(time.Minute+time.Millisecond), time.Minute)
	assert.ErrorIs(t, err, ErrStale)

	c.reset()
	_, err = c.loadFresh(now, time.Minute)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestRefresherInitialFetchFailure(t *testing.T) {
	_, err := NewRefresher(context.Background(), "test", func(ctx context.Context) (int, error) {
		return 0, errors.New("boom")
	})

	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "boom")
}

func TestRefresherRefreshes(t *testing.T) {
	var counter atomic.Int64
	fetch := func(ctx context.Context) (int64, error) {
		return counter.Add(1), nil
	}

	r, err := NewRefresher(context.Background(), "test", fetch, WithInterval(5*time.Millisecond))
	require.NoError(t, err)
	defer r.Close()

	resp, err := r.Load()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, resp.Data, int64(1))

	assert.Eventually(t, func() bool {
		resp, err := r.Load()
		return err == nil && resp.Data >= 3
	}, 5*time.Second, 5*time.Millisecond)
}

func TestRefresherKeepsSnapshotOnFailure(t *testing.T) {
	clock := newFakeClock()

	var calls atomic.Int64
	fetch := func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "initial", nil
		}

		return "", errors.New("upstream down")
	}

	r, err := NewRefresher(
		context.Background(), "test", fetch,
		WithInterval(5*time.Millisecond), WithValidity(time.Minute), withClock(clock.Now),
	)
	require.NoError(t, err)
	defer r.Close()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 5*time.Second, time.Millisecond)

	resp, err := r.Load()
	require.NoError(t, err)
	assert.Equal(t, "initial", resp.Data)

	clock.Advance(time.Minute + time.Second)

	_, err = r.Load()
	assert.ErrorIs(t, err, ErrStale)
}

func TestRefresherClose(t *testing.T) {
	var calls atomic.Int64
	r, err := NewRefresher(context.Background(), "test", func(ctx context.Context) (int, error) {
		calls.Add(1)
		return 1, nil
	}, WithInterval(time.Millisecond))
	require.NoError(t, err)

	r.Close()
	r.Close()

	_, err = r.Load()
	assert.ErrorIs(t, err, ErrNotReady)

	// no more fetches once closed
	n := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, calls.Load())
}
