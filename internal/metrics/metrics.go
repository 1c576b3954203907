// Package metrics defines the prometheus collectors exported by the daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "daod"

// Metrics groups every collector. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	TxTotal          *prometheus.CounterVec
	TxDuration       prometheus.Histogram
	SubMsgFailures   *prometheus.CounterVec
	HookDeregistered *prometheus.CounterVec
	BlockHeight      prometheus.Gauge
	MempoolSize      prometheus.Gauge
	APIRequests      *prometheus.CounterVec
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TxTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "transactions_total",
			Help:      "Executed transactions by result",
		}, []string{"result"}),
		TxDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "transaction_duration_seconds",
			Help:      "Transaction execution time",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		SubMsgFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "submessage_failures_total",
			Help:      "Failed sub-messages by whether a reply caught them",
		}, []string{"caught"}),
		HookDeregistered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hooks",
			Name:      "deregistered_total",
			Help:      "Hook subscribers removed after failing",
		}, []string{"contract"}),
		BlockHeight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "block_height",
			Help:      "Height of the last produced block",
		}),
		MempoolSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mempool",
			Name:      "pending_transactions",
			Help:      "Transactions waiting for the next block",
		}),
		APIRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "path", "status"}),
	}
}

// ObserveTx records one transaction outcome
func (m *Metrics) ObserveTx(ok bool, seconds float64) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.TxTotal.WithLabelValues(result).Inc()
	m.TxDuration.Observe(seconds)
}

// SubMsgFailed records a failed sub-message
func (m *Metrics) SubMsgFailed(caught bool) {
	if m == nil {
		return
	}
	label := "false"
	if caught {
		label = "true"
	}
	m.SubMsgFailures.WithLabelValues(label).Inc()
}

// HookRemoved records a subscriber removed by contract
func (m *Metrics) HookRemoved(contract string) {
	if m == nil {
		return
	}
	m.HookDeregistered.WithLabelValues(contract).Inc()
}

// SetHeight records the chain height
func (m *Metrics) SetHeight(h uint64) {
	if m == nil {
		return
	}
	m.BlockHeight.Set(float64(h))
}

// SetMempoolSize records the number of pending transactions
func (m *Metrics) SetMempoolSize(n int) {
	if m == nil {
		return
	}
	m.MempoolSize.Set(float64(n))
}

// APIRequest records one HTTP request
func (m *Metrics) APIRequest(method, path, status string) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(method, path, status).Inc()
}
