package metrics

import (
	"time"

	"github.com/ethereum/go-ethereum/metrics"
)

var Registry Metrics

type Metrics struct {
	Refresher RefresherMetrics
	Estimator EstimatorMetrics
	WebSocket WebSocketMetrics
	Oracle    OracleMetrics
	Client    ClientMetrics
}

// Background refresher metrics

type RefresherMetrics struct{}

func (*RefresherMetrics) Update(name string, err error, start time.Time) {
	if err != nil {
		GetOrRegisterCounter("gasstation/refresh/%v/failure", name).Inc(1)
		return
	}

	GetOrRegisterCounter("gasstation/refresh/%v/success", name).Inc(1)
	GetOrRegisterTimer("gasstation/refresh/%v/duration", name).UpdateSince(start)
}

// SnapshotAge tracks how old the snapshot served to readers is.
func (*RefresherMetrics) SnapshotAge(name string) metrics.Histogram {
	return GetOrRegisterHistogram("gasstation/refresh/%v/age", name)
}

// Read side estimator metrics

type EstimatorMetrics struct{}

func (*EstimatorMetrics) Update(name string, err error) {
	if err != nil {
		GetOrRegisterCounter("gasstation/estimate/%v/failure", name).Inc(1)
	} else {
		GetOrRegisterCounter("gasstation/estimate/%v/success", name).Inc(1)
	}
}

// Fallback counts how many children a priority estimator skipped before a success.
func (*EstimatorMetrics) Fallback() metrics.Histogram {
	return GetOrRegisterHistogram("gasstation/estimate/priority/fallback")
}

// WebSocket feed metrics

type WebSocketMetrics struct{}

func (*WebSocketMetrics) Reconnects() metrics.Gauge {
	return GetOrRegisterGauge("gasstation/ws/reconnects")
}

func (*WebSocketMetrics) Errors(kind string) metrics.Counter {
	return GetOrRegisterCounter("gasstation/ws/errors/%v", kind)
}

func (*WebSocketMetrics) Updates() metrics.Counter {
	return GetOrRegisterCounter("gasstation/ws/updates")
}

// Native fee oracle metrics

type OracleMetrics struct{}

func (*OracleMetrics) PendingBaseFee() metrics.GaugeFloat64 {
	return GetOrRegisterGaugeFloat64("gasstation/native/baseFee/pending")
}

func (*OracleMetrics) Congestion() metrics.GaugeFloat64 {
	return GetOrRegisterGaugeFloat64("gasstation/native/congestion")
}

func (*OracleMetrics) RewardSamples() metrics.Histogram {
	return GetOrRegisterHistogram("gasstation/native/rewards/samples")
}

// Upstream client metrics

type ClientMetrics struct{}

func (*ClientMetrics) Update(node, method string, err error, start time.Time) {
	if err != nil {
		GetOrRegisterTimer("gasstation/client/%v/%v/failure", node, method).UpdateSince(start)
	} else {
		GetOrRegisterTimer("gasstation/client/%v/%v/success", node, method).UpdateSince(start)
	}
}
