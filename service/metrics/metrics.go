package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
// All record methods are safe to call on a nil *Metrics.
type Metrics struct {
	// Solana RPC metrics
	rpcCallsTotal   *prometheus.CounterVec
	rpcCallDuration *prometheus.HistogramVec

	// Monitor metrics
	pollDuration          *prometheus.HistogramVec
	pollErrorsTotal       *prometheus.CounterVec
	transactionsProcessed *prometheus.CounterVec
	dedupSkipsTotal       *prometheus.CounterVec
	signalsEmittedTotal   *prometheus.CounterVec

	// NATS metrics
	natsPublishesTotal  *prometheus.CounterVec
	natsPublishDuration *prometheus.HistogramVec

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	streamClients       *prometheus.GaugeVec
	streamEventsSent    *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		rpcCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status"},
		),
		rpcCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method"},
		),
		pollDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "monitor_poll_duration_seconds",
				Help:    "Duration of one monitor poll tick in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"wallet"},
		),
		pollErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_poll_errors_total",
				Help: "Total number of aborted poll ticks by stage (list, fetch)",
			},
			[]string{"wallet", "stage"},
		),
		transactionsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_transactions_processed_total",
				Help: "Total number of transactions run through swap extraction by outcome",
			},
			[]string{"wallet", "outcome"},
		),
		dedupSkipsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_dedup_skips_total",
				Help: "Total number of signatures skipped because the ledger already had them",
			},
			[]string{"wallet"},
		),
		signalsEmittedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monitor_signals_emitted_total",
				Help: "Total number of swap signals emitted by wallet and direction",
			},
			[]string{"wallet", "direction"},
		),
		natsPublishesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_signal_publishes_total",
				Help: "Total number of signal events published to NATS by status",
			},
			[]string{"status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_signal_publish_duration_seconds",
				Help:    "Duration of NATS signal publishes in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by handler, method, and status class",
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 5.0},
			},
			[]string{"handler", "method"},
		),
		streamClients: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stream_active_clients",
				Help: "Number of currently connected signal stream clients by transport (sse, ws)",
			},
			[]string{"transport"},
		),
		streamEventsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stream_events_sent_total",
				Help: "Total number of signal events delivered to stream clients by transport",
			},
			[]string{"transport"},
		),
	}
}

// RecordRPCCall records one Solana RPC call.
func (m *Metrics) RecordRPCCall(method, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.rpcCallsTotal.WithLabelValues(method, status).Inc()
	m.rpcCallDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordPoll records the duration of one completed poll tick.
func (m *Metrics) RecordPoll(wallet string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.pollDuration.WithLabelValues(wallet).Observe(durationSeconds)
}

// RecordPollError records an aborted poll tick.
func (m *Metrics) RecordPollError(wallet, stage string) {
	if m == nil {
		return
	}
	m.pollErrorsTotal.WithLabelValues(wallet, stage).Inc()
}

// RecordTransactionProcessed records the extraction outcome for one
// transaction. Outcome is one of "swap", "no_swap", "unavailable".
func (m *Metrics) RecordTransactionProcessed(wallet, outcome string) {
	if m == nil {
		return
	}
	m.transactionsProcessed.WithLabelValues(wallet, outcome).Inc()
}

// RecordDedupSkip records a signature skipped via the ledger.
func (m *Metrics) RecordDedupSkip(wallet string) {
	if m == nil {
		return
	}
	m.dedupSkipsTotal.WithLabelValues(wallet).Inc()
}

// RecordSignalEmitted records one emitted swap signal.
func (m *Metrics) RecordSignalEmitted(wallet, direction string) {
	if m == nil {
		return
	}
	m.signalsEmittedTotal.WithLabelValues(wallet, direction).Inc()
}

// RecordNATSPublish records one signal publish attempt.
func (m *Metrics) RecordNATSPublish(status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.natsPublishesTotal.WithLabelValues(status).Inc()
	m.natsPublishDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordHTTPRequest records one handled HTTP request.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(handler, method, statusClass(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(handler, method).Observe(durationSeconds)
}

// StreamClientConnected increments the active client gauge for a transport.
func (m *Metrics) StreamClientConnected(transport string) {
	if m == nil {
		return
	}
	m.streamClients.WithLabelValues(transport).Inc()
}

// StreamClientDisconnected decrements the active client gauge for a transport.
func (m *Metrics) StreamClientDisconnected(transport string) {
	if m == nil {
		return
	}
	m.streamClients.WithLabelValues(transport).Dec()
}

// RecordStreamEvent records one event delivered to a stream client.
func (m *Metrics) RecordStreamEvent(transport string) {
	if m == nil {
		return
	}
	m.streamEventsSent.WithLabelValues(transport).Inc()
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
