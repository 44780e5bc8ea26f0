package gasstation

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeTransport serves a fixed JSON body, or fails with err if set.
type fakeTransport struct {
	mu      sync.Mutex
	body    string
	err     error
	calls   int
	urls    []string
	headers []map[string]string
}

func (t *fakeTransport) GetJSON(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls++
	t.urls = append(t.urls, url)
	t.headers = append(t.headers, headers)

	if t.err != nil {
		return t.err
	}

	return json.Unmarshal([]byte(t.body), out)
}

func (t *fakeTransport) set(body string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.body, t.err = body, err
}

func (t *fakeTransport) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
