package gasstation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gasNowUpdateMessage = `{"type": "gasprice_s", "data": {"rapid": 4, "fast": 3, "standard": 2, "slow": 1, "timestamp": 1626240000000}}`

// newGasNowServer serves each WebSocket connection with handler, and returns the ws url.
func newGasNowServer(t *testing.T, handler func(conn *websocket.Conn)) (string, *atomic.Int64) {
	var (
		upgrader    websocket.Upgrader
		connections atomic.Int64
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		connections.Add(1)
		handler(conn)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), &connections
}

// drain blocks until the client goes away.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

type recordingReporter struct {
	mu    sync.Mutex
	kinds []ErrorKind
}

func (r *recordingReporter) ReportError(err *Error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, err.Kind)
}

func (r *recordingReporter) has(kind ErrorKind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, k := range r.kinds {
		if k == kind {
			return true
		}
	}

	return false
}

func TestGasNowWebSocketUpdates(t *testing.T) {
	release := make(chan struct{})
	url, _ := newGasNowServer(t, func(conn *websocket.Conn) {
		<-release
		if err := conn.WriteMessage(websocket.TextMessage, []byte(gasNowUpdateMessage)); err != nil {
			return
		}
		drain(conn)
	})

	clock := newFakeClock()
	ws := NewGasNowWebSocket(time.Minute, WithGasNowURL(url), withWebSocketClock(clock.Now))
	defer ws.Close()

	_, err := ws.EstimateWithLimits(context.Background(), DefaultGasLimit, DefaultTimeLimit)
	assert.ErrorIs(t, err, ErrNotReady)

	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ws.WaitForFirstUpdate(ctx))

	price, err := ws.EstimateWithLimits(context.Background(), DefaultGasLimit, 20*time.Second)
	require.NoError(t, err)
	assert.Greater(t, price.Legacy, 3.0)
	assert.Less(t, price.Legacy, 4.0)

	clock.Advance(time.Minute + time.Second)

	_, err = ws.EstimateWithLimits(context.Background(), DefaultGasLimit, 20*time.Second)
	assert.ErrorIs(t, err, ErrStale)
}

func TestGasNowWebSocketDecodeFailureAndReconnect(t *testing.T) {
	url, connections := newGasNowServer(t, func(conn *websocket.Conn) {
		for _, msg := range []string{"not json", `{"type": "ping"}`, gasNowUpdateMessage} {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
	})

	reporter := &recordingReporter{}
	ws := NewGasNowWebSocket(
		time.Minute, WithGasNowURL(url), WithErrorReporter(reporter),
		WithReconnectInterval(10*time.Millisecond),
	)
	defer ws.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ws.WaitForFirstUpdate(ctx))

	assert.Eventually(t, func() bool { return connections.Load() >= 2 }, 5*time.Second, 5*time.Millisecond)
	assert.True(t, reporter.has(KindJSONDecodeFailed))

	price, err := ws.EstimateWithLimits(context.Background(), DefaultGasLimit, GasNowStandard)
	require.NoError(t, err)
	assert.Equal(t, 2.0, price.Legacy)
}

func TestGasNowWebSocketConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	reporter := &recordingReporter{}
	ws := NewGasNowWebSocket(
		time.Second, WithGasNowURL(url), WithErrorReporter(reporter),
		WithReconnectInterval(10*time.Millisecond),
	)
	defer ws.Close()

	assert.Eventually(t, func() bool { return reporter.has(KindConnectionFailure) }, 5*time.Second, 5*time.Millisecond)

	_, err := ws.EstimateWithLimits(context.Background(), DefaultGasLimit, DefaultTimeLimit)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestGasNowWebSocketStreamTimeout(t *testing.T) {
	url, _ := newGasNowServer(t, drain)

	reporter := &recordingReporter{}
	ws := NewGasNowWebSocket(
		50*time.Millisecond, WithGasNowURL(url), WithErrorReporter(reporter),
		WithReconnectInterval(10*time.Millisecond),
	)
	defer ws.Close()

	assert.Eventually(t, func() bool { return reporter.has(KindStreamTimeOut) }, 5*time.Second, 5*time.Millisecond)
}

func TestGasNowWebSocketClose(t *testing.T) {
	url, _ := newGasNowServer(t, func(conn *websocket.Conn) {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(gasNowUpdateMessage)); err != nil {
			return
		}
		drain(conn)
	})

	ws := NewGasNowWebSocket(time.Minute, WithGasNowURL(url))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ws.WaitForFirstUpdate(ctx))

	assert.NoError(t, ws.Close())
	assert.NoError(t, ws.Close())

	_, err := ws.EstimateWithLimits(context.Background(), DefaultGasLimit, DefaultTimeLimit)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestGasNowUpdateParse(t *testing.T) {
	rapid, fast, standard := 4.0, 3.0, 2.0

	update := gasNowUpdate{Data: &gasNowUpdateData{Rapid: &rapid, Fast: &fast, Standard: &standard}}
	_, ok := update.parse()
	assert.False(t, ok)

	slow := 1.0
	update.Data.Slow = &slow
	data, ok := update.parse()
	assert.True(t, ok)
	assert.Equal(t, GasNowData{Rapid: 4, Fast: 3, Standard: 2, Slow: 1}, data)
}
