package gasstation

import (
	"context"
	"sync"
	"time"

	"github.com/Conflux-Chain/gas-estimation/util/metrics"
	logutil "github.com/Conflux-Chain/go-conflux-util/log"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// CachedResponse is an upstream response along with the time it was received.
type CachedResponse[T any] struct {
	Time time.Time
	Data T
}

// IsStale returns whether the response is older than validity at now.
func (r CachedResponse[T]) IsStale(now time.Time, validity time.Duration) bool {
	return now.Sub(r.Time) > validity
}

// cell holds the latest snapshot shared between a writer and any number of readers.
type cell[T any] struct {
	mu   sync.RWMutex
	resp *CachedResponse[T]
}

func (c *cell[T]) store(resp CachedResponse[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resp = &resp
}

func (c *cell[T]) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resp = nil
}

func (c *cell[T]) load() (CachedResponse[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.resp == nil {
		return CachedResponse[T]{}, false
	}

	return *c.resp, true
}

// loadFresh returns the snapshot unless it is missing or older than validity.
func (c *cell[T]) loadFresh(now time.Time, validity time.Duration) (CachedResponse[T], error) {
	resp, ok := c.load()
	if !ok {
		return resp, newError(KindNotReady, nil, "no response received yet")
	}

	if resp.IsStale(now, validity) {
		return resp, newError(
			KindStale, nil, "last update %v ago exceeds validity %v", now.Sub(resp.Time).Truncate(time.Millisecond), validity,
		)
	}

	return resp, nil
}

type refresherOptions struct {
	interval time.Duration
	validity time.Duration
	clock    func() time.Time
}

type RefresherOption func(opts *refresherOptions)

// WithInterval sets the minimum interval between two upstream fetches.
func WithInterval(interval time.Duration) RefresherOption {
	return func(opts *refresherOptions) {
		opts.interval = interval
	}
}

// WithValidity sets how long a fetched response could be served to readers.
func WithValidity(validity time.Duration) RefresherOption {
	return func(opts *refresherOptions) {
		opts.validity = validity
	}
}

func withClock(clock func() time.Time) RefresherOption {
	return func(opts *refresherOptions) {
		opts.clock = clock
	}
}

// Refresher keeps the latest successful result of fetch cached, refreshing it in the
// background at most once per interval.
//
// Fetch failures are only logged, readers keep seeing the previous result until it
// turns stale.
type Refresher[T any] struct {
	name    string
	fetch   func(ctx context.Context) (T, error)
	opts    refresherOptions
	limiter *rate.Limiter

	cell      cell[T]
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewRefresher fetches the first result synchronously and then starts to refresh in
// the background until closed.
func NewRefresher[T any](
	ctx context.Context, name string, fetch func(ctx context.Context) (T, error), options ...RefresherOption,
) (*Refresher[T], error) {
	opts := refresherOptions{
		interval: 10 * time.Second,
		validity: CachedResponseValidity,
		clock:    time.Now,
	}

	for _, o := range options {
		o(&opts)
	}

	if opts.interval <= 0 {
		opts.interval = 10 * time.Second
	}

	if opts.validity <= 0 {
		opts.validity = CachedResponseValidity
	}

	r := &Refresher[T]{
		name:    name,
		fetch:   fetch,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(opts.interval), 1),
		done:    make(chan struct{}),
	}

	// the initial fetch consumes the only token
	r.limiter.Allow()
	if err := r.refresh(ctx); err != nil {
		return nil, asError(KindUpstream, err, "initial fetch of "+name+" failed")
	}

	var loopCtx context.Context
	loopCtx, r.cancel = context.WithCancel(context.Background())
	go r.run(loopCtx)

	return r, nil
}

func (r *Refresher[T]) run(ctx context.Context) {
	defer close(r.done)

	etLogger := logutil.NewErrorTolerantLogger(logutil.DefaultETConfig)
	for {
		if err := r.limiter.Wait(ctx); err != nil {
			logrus.WithField("name", r.name).Debug("Gas station refresher terminated")
			return
		}

		err := r.refresh(ctx)
		if ctx.Err() != nil {
			return
		}

		etLogger.Log(
			logrus.WithField("name", r.name), err, "Gas station refresher failed to fetch",
		)
	}
}

func (r *Refresher[T]) refresh(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		metrics.Registry.Refresher.Update(r.name, err, start)
	}()

	data, err := r.fetch(ctx)
	if err != nil {
		return err
	}

	r.cell.store(CachedResponse[T]{Time: r.opts.clock(), Data: data})
	return nil
}

// Load returns the latest snapshot, or an error of KindNotReady or KindStale.
func (r *Refresher[T]) Load() (CachedResponse[T], error) {
	now := r.opts.clock()

	resp, err := r.cell.loadFresh(now, r.opts.validity)
	if err == nil {
		metrics.Registry.Refresher.SnapshotAge(r.name).Update(now.Sub(resp.Time).Milliseconds())
	}

	return resp, err
}

// Close stops the background refresh and releases the cached snapshot.
func (r *Refresher[T]) Close() {
	r.closeOnce.Do(func() {
		r.cancel()
		<-r.done
		r.cell.reset()
	})
}
