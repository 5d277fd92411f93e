// Package bridge exposes a small HTTP server that forwards single chat
// turns to the agent gateway and records a trace for every one of them.
package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the bridge.
type Metrics struct {
	ChatRequestsTotal  *prometheus.CounterVec
	ChatDuration       prometheus.Histogram
	ChatsInFlight      prometheus.Gauge
	TracesWrittenTotal prometheus.Counter
}

// NewMetrics creates and registers all bridge metrics on reg. Each server
// owns its registry, so tests can build servers freely.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.ChatRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clawtrace_bridge_chat_requests_total",
			Help: "Total number of chat requests handled",
		},
		[]string{"status"},
	)

	m.ChatDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clawtrace_bridge_chat_duration_seconds",
			Help:    "Duration of chat requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.ChatsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "clawtrace_bridge_chats_in_flight",
			Help: "Number of chat requests currently being processed",
		},
	)

	m.TracesWrittenTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "clawtrace_bridge_traces_written_total",
			Help: "Total number of trace files written",
		},
	)

	return m
}
