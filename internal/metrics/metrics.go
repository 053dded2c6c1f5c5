// Package metrics holds the Prometheus collectors shared by the relay
// components. A nil *Metrics is valid and records nothing, so components can
// be constructed without metrics in tests.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "relay"

// Metrics groups every collector the relay exports.
type Metrics struct {
	bridgeDeliveries *prometheus.CounterVec
	queueWrites      *prometheus.CounterVec
	queueDepth       prometheus.Gauge
	keepAliveState   prometheus.Gauge
	promotions       *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
// Panics if any collector is already registered (prometheus.MustRegister).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bridgeDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bridge",
				Name:      "deliveries_total",
				Help:      "Captured events handled by the bridge, by outcome",
			},
			[]string{"category", "outcome"},
		),
		queueWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "writes_total",
				Help:      "Durable queue write attempts, by result",
			},
			[]string{"result"},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "depth",
				Help:      "Records currently held in the durable queue",
			},
		),
		keepAliveState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "keepalive",
				Name:      "state",
				Help:      "Keep-alive run state (0=stopped, 1=starting, 2=foreground)",
			},
		),
		promotions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "keepalive",
				Name:      "promotions_total",
				Help:      "Foreground promotion requests, by classification and result",
			},
			[]string{"class", "result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ipc",
				Name:      "requests_total",
				Help:      "Total number of IPC requests",
			},
			[]string{"path", "method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ipc",
				Name:      "request_duration_seconds",
				Help:      "Duration of IPC requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path", "method", "status"},
		),
	}

	reg.MustRegister(
		m.bridgeDeliveries,
		m.queueWrites,
		m.queueDepth,
		m.keepAliveState,
		m.promotions,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// BridgeDelivery counts one bridge outcome (forwarded, queued, dropped).
func (m *Metrics) BridgeDelivery(category, outcome string) {
	if m == nil {
		return
	}
	m.bridgeDeliveries.WithLabelValues(category, outcome).Inc()
}

// QueueWrite counts one durable queue write (ok, failed).
func (m *Metrics) QueueWrite(result string) {
	if m == nil {
		return
	}
	m.queueWrites.WithLabelValues(result).Inc()
}

// SetQueueDepth records the queue size after a write or drain.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// SetKeepAliveState records the supervisor's run state ordinal.
func (m *Metrics) SetKeepAliveState(state int) {
	if m == nil {
		return
	}
	m.keepAliveState.Set(float64(state))
}

// Promotion counts one foreground promotion attempt.
func (m *Metrics) Promotion(class, result string) {
	if m == nil {
		return
	}
	m.promotions.WithLabelValues(class, result).Inc()
}

// ObserveHTTP records one served IPC request.
func (m *Metrics) ObserveHTTP(path, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(path, method, code).Inc()
	m.httpDuration.WithLabelValues(path, method, code).Observe(elapsed.Seconds())
}
