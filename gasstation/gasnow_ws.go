package gasstation

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/Conflux-Chain/gas-estimation/types"
	"github.com/Conflux-Chain/gas-estimation/util/metrics"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const GasNowWebSocketURL = "wss://etherchain.org/api/gasnow"

// ErrorReporter receives the errors of a WebSocket feed, which never reach readers.
type ErrorReporter interface {
	ReportError(err *Error)
}

// ErrorReporterFunc adapts an ordinary function to ErrorReporter.
type ErrorReporterFunc func(err *Error)

func (f ErrorReporterFunc) ReportError(err *Error) {
	f(err)
}

// LogErrorReporter logs errors at warn level.
type LogErrorReporter struct{}

func (LogErrorReporter) ReportError(err *Error) {
	logger := logrus.WithField("kind", err.Kind.String())
	if err.Err != nil {
		logger = logger.WithError(err.Err)
	}

	switch err.Kind {
	case KindConnectionTimeOut:
		logger.Warn("GasNow websocket connect timed out")
	case KindConnectionFailure:
		logger.Warn("GasNow websocket connect failed")
	case KindStreamTimeOut:
		logger.Warn("GasNow websocket stream timed out")
	case KindStreamFailure:
		logger.Warn("GasNow websocket stream failed")
	case KindJSONDecodeFailed:
		logger.WithField("msg", err.Msg).Warn("GasNow websocket message decode failed")
	default:
		logger.Warn("GasNow websocket error")
	}
}

type gasNowWebSocketOptions struct {
	url               string
	reconnectInterval time.Duration
	reporter          ErrorReporter
	dialer            *websocket.Dialer
	clock             func() time.Time
}

type GasNowWebSocketOption func(opts *gasNowWebSocketOptions)

func WithGasNowURL(url string) GasNowWebSocketOption {
	return func(opts *gasNowWebSocketOptions) {
		opts.url = url
	}
}

func WithReconnectInterval(interval time.Duration) GasNowWebSocketOption {
	return func(opts *gasNowWebSocketOptions) {
		opts.reconnectInterval = interval
	}
}

func WithErrorReporter(reporter ErrorReporter) GasNowWebSocketOption {
	return func(opts *gasNowWebSocketOptions) {
		opts.reporter = reporter
	}
}

func WithDialer(dialer *websocket.Dialer) GasNowWebSocketOption {
	return func(opts *gasNowWebSocketOptions) {
		opts.dialer = dialer
	}
}

func withWebSocketClock(clock func() time.Time) GasNowWebSocketOption {
	return func(opts *gasNowWebSocketOptions) {
		opts.clock = clock
	}
}

// GasNowWebSocket is similar to GasNowStation, but subscribes to the GasNow WebSocket
// feed instead of polling.
//
// Estimates use the most recently received update unless it is older than the max
// update age. The connection is re-established automatically on errors, or if no
// message is received within the max update age.
type GasNowWebSocket struct {
	maxUpdateAge time.Duration
	opts         gasNowWebSocketOptions

	cell       cell[GasNowData]
	firstReady chan struct{}
	firstOnce  sync.Once

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewGasNowWebSocket starts to receive updates in the background and returns immediately.
func NewGasNowWebSocket(maxUpdateAge time.Duration, options ...GasNowWebSocketOption) *GasNowWebSocket {
	opts := gasNowWebSocketOptions{
		url:               GasNowWebSocketURL,
		reconnectInterval: 15 * time.Second,
		reporter:          LogErrorReporter{},
		dialer:            websocket.DefaultDialer,
		clock:             time.Now,
	}

	for _, o := range options {
		o(&opts)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &GasNowWebSocket{
		maxUpdateAge: maxUpdateAge,
		opts:         opts,
		firstReady:   make(chan struct{}),
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	go s.receiveForever(ctx)

	return s
}

// WaitForFirstUpdate blocks until the first update is received or ctx is done.
func (s *GasNowWebSocket) WaitForFirstUpdate(ctx context.Context) error {
	select {
	case <-s.firstReady:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *GasNowWebSocket) EstimateWithLimits(
	ctx context.Context, gasLimit float64, timeLimit time.Duration,
) (price types.EstimatedGasPrice, err error) {
	defer func() {
		metrics.Registry.Estimator.Update("gasnow-ws", err)
	}()

	resp, err := s.cell.loadFresh(s.opts.clock(), s.maxUpdateAge)
	if err != nil {
		return types.EstimatedGasPrice{}, err
	}

	return EstimateGasNow(timeLimit, resp.Data)
}

// Close stops receiving updates and drops the last one.
func (s *GasNowWebSocket) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		s.cell.reset()
	})

	return nil
}

// receiveForever reconnects until closed.
func (s *GasNowWebSocket) receiveForever(ctx context.Context) {
	defer close(s.done)

	for {
		s.connectAndReceive(ctx)

		select {
		case <-ctx.Done():
			logrus.Debug("GasNow websocket receiver terminated")
			return
		case <-time.After(s.opts.reconnectInterval):
			metrics.Registry.WebSocket.Reconnects().Inc(1)
		}
	}
}

// connectAndReceive returns on the first error, or if no message is received within
// the max update age.
func (s *GasNowWebSocket) connectAndReceive(ctx context.Context) {
	dialCtx, cancel := context.WithTimeout(ctx, s.maxUpdateAge)
	conn, _, err := s.opts.dialer.DialContext(dialCtx, s.opts.url, nil)
	timedOut := errors.Is(dialCtx.Err(), context.DeadlineExceeded)
	cancel()

	if err != nil {
		switch {
		case ctx.Err() != nil:
		case timedOut:
			s.report(newError(KindConnectionTimeOut, err, "failed to connect %v", s.opts.url))
		default:
			s.report(newError(KindConnectionFailure, err, "failed to connect %v", s.opts.url))
		}

		return
	}

	defer conn.Close()

	// unblock the pending read once closed
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	logrus.WithField("url", s.opts.url).Debug("GasNow websocket connected")

	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.maxUpdateAge)); err != nil {
			s.report(newError(KindStreamFailure, err, "failed to set read deadline"))
			return
		}

		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			var netErr net.Error

			switch {
			case ctx.Err() != nil:
			case errors.As(err, &netErr) && netErr.Timeout():
				s.report(newError(KindStreamTimeOut, err, "no message within %v", s.maxUpdateAge))
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				logrus.WithError(err).Info("GasNow websocket stream closed")
			default:
				s.report(newError(KindStreamFailure, err, "failed to read message"))
			}

			return
		}

		if msgType == websocket.TextMessage || msgType == websocket.BinaryMessage {
			s.handleMessage(payload)
		}
	}
}

type gasNowUpdateData struct {
	Rapid    *float64 `json:"rapid"`
	Fast     *float64 `json:"fast"`
	Standard *float64 `json:"standard"`
	Slow     *float64 `json:"slow"`
}

type gasNowUpdate struct {
	Data *gasNowUpdateData `json:"data"`
}

// parse returns the tier prices if the message is a complete update.
func (u *gasNowUpdate) parse() (GasNowData, bool) {
	d := u.Data
	if d == nil || d.Rapid == nil || d.Fast == nil || d.Standard == nil || d.Slow == nil {
		return GasNowData{}, false
	}

	return GasNowData{Rapid: *d.Rapid, Fast: *d.Fast, Standard: *d.Standard, Slow: *d.Slow}, true
}

func (s *GasNowWebSocket) handleMessage(payload []byte) {
	var value interface{}
	if err := json.Unmarshal(payload, &value); err != nil {
		s.report(newError(KindJSONDecodeFailed, err, "%s", payload))
		return
	}

	var update gasNowUpdate
	if err := json.Unmarshal(payload, &update); err == nil {
		if data, ok := update.parse(); ok {
			logrus.WithField("data", data).Debug("GasNow websocket received update")

			s.cell.store(CachedResponse[GasNowData]{Time: s.opts.clock(), Data: data})
			s.firstOnce.Do(func() { close(s.firstReady) })
			metrics.Registry.WebSocket.Updates().Inc(1)

			return
		}
	}

	logrus.WithField("value", value).Warn("GasNow websocket received unexpected message")
}

func (s *GasNowWebSocket) report(err *Error) {
	metrics.Registry.WebSocket.Errors(strings.ReplaceAll(err.Kind.String(), " ", "_")).Inc(1)
	s.opts.reporter.ReportError(err)
}
