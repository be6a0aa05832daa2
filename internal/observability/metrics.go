// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Exchange metrics
	ExchangesTotal   *prometheus.CounterVec
	ExchangeDuration *prometheus.HistogramVec
	PointsDebited    prometheus.Counter

	// Poll metrics
	PollOpsTotal *prometheus.CounterVec

	// Vote metrics
	VoteTxBuilt prometheus.Counter

	// Chain metrics
	RPCCallLatency       *prometheus.HistogramVec
	ConfirmationDuration prometheus.Histogram

	// HTTP metrics
	RequestsTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "vote_server"
	}

	return &Metrics{
		ExchangesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "requests_total",
			Help:      "Total number of exchange requests by outcome",
		}, []string{"outcome"}),
		ExchangeDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "duration_seconds",
			Help:      "Exchange request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),
		PointsDebited: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "points_debited_total",
			Help:      "Total points debited by committed exchanges",
		}),
		PollOpsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "operations_total",
			Help:      "Total poll gateway operations by type and status",
		}, []string{"operation", "status"}),
		VoteTxBuilt: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vote",
			Name:      "transactions_built_total",
			Help:      "Total unsigned vote transactions built",
		}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		ConfirmationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "confirmation_duration_seconds",
			Help:      "Transaction confirmation wait in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by path and status code",
		}, []string{"path", "status"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordExchange records an exchange attempt outcome.
func RecordExchange(outcome string, durationSeconds float64) {
	DefaultMetrics.ExchangesTotal.WithLabelValues(outcome).Inc()
	DefaultMetrics.ExchangeDuration.WithLabelValues(outcome).Observe(durationSeconds)
}

// RecordPointsDebited adds to the committed points counter.
func RecordPointsDebited(points int64) {
	DefaultMetrics.PointsDebited.Add(float64(points))
}

// RecordPollOp records a poll gateway operation.
func RecordPollOp(operation, status string) {
	DefaultMetrics.PollOpsTotal.WithLabelValues(operation, status).Inc()
}

// RecordVoteTxBuilt increments the built vote transaction counter.
func RecordVoteTxBuilt() {
	DefaultMetrics.VoteTxBuilt.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordConfirmation records a confirmation wait duration.
func RecordConfirmation(seconds float64) {
	DefaultMetrics.ConfirmationDuration.Observe(seconds)
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(path, status string) {
	DefaultMetrics.RequestsTotal.WithLabelValues(path, status).Inc()
}
