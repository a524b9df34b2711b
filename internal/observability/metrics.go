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
	// Issuance metrics
	TokensCreated     prometheus.Counter
	StosCreated       prometheus.Counter
	StatusTransitions *prometheus.CounterVec

	// Investment metrics
	InvestmentsAccepted prometheus.Counter
	InvestmentsRejected *prometheus.CounterVec
	TokensSold          *prometheus.CounterVec
	PaymentVolume       *prometheus.CounterVec
	CommitConflicts     prometheus.Counter
	TierAdvances        prometheus.Counter

	// Latency metrics
	InvestmentLatency prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Stream metrics
	StreamClients         prometheus.Gauge
	StreamEventsPublished prometheus.Counter
	StreamEventsDropped   prometheus.Counter

	// Health metrics
	LastAcceptedInvestment prometheus.Gauge
	UptimeSeconds          prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "estate_sto"
	}

	return &Metrics{
		// Issuance metrics
		TokensCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "issuance",
			Name:      "tokens_created_total",
			Help:      "Total number of security tokens created",
		}),
		StosCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "issuance",
			Name:      "stos_created_total",
			Help:      "Total number of offerings created",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "issuance",
			Name:      "status_transitions_total",
			Help:      "Total number of lifecycle transitions by entity and target status",
		}, []string{"entity", "to"}),

		// Investment metrics
		InvestmentsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invest",
			Name:      "accepted_total",
			Help:      "Total number of accepted investments",
		}),
		InvestmentsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invest",
			Name:      "rejected_total",
			Help:      "Total number of rejected investments by reason",
		}, []string{"reason"}),
		TokensSold: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invest",
			Name:      "tokens_sold_total",
			Help:      "Total security-token base units sold by offering",
		}, []string{"sto"}),
		PaymentVolume: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invest",
			Name:      "payment_volume_total",
			Help:      "Total payment-token base units collected by payment mint",
		}, []string{"payment_mint"}),
		CommitConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invest",
			Name:      "commit_conflicts_total",
			Help:      "Total number of investment commits rejected on a version conflict",
		}),
		TierAdvances: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invest",
			Name:      "tier_advances_total",
			Help:      "Total number of automatic tier advances",
		}),

		// Latency metrics
		InvestmentLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "invest",
			Name:      "latency_seconds",
			Help:      "Investment processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Stream metrics
		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Current number of connected event stream clients",
		}),
		StreamEventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_published_total",
			Help:      "Total number of events published to the stream",
		}),
		StreamEventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped on slow clients",
		}),

		// Health metrics
		LastAcceptedInvestment: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_accepted_investment_timestamp",
			Help:      "Unix timestamp of the last accepted investment",
		}),
		UptimeSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds",
			Help:      "Server uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTokenCreated increments the tokens created counter.
func RecordTokenCreated() {
	DefaultMetrics.TokensCreated.Inc()
}

// RecordStoCreated increments the offerings created counter.
func RecordStoCreated() {
	DefaultMetrics.StosCreated.Inc()
}

// RecordStatusTransition records a lifecycle transition.
func RecordStatusTransition(entity, to string) {
	DefaultMetrics.StatusTransitions.WithLabelValues(entity, to).Inc()
}

// RecordInvestmentAccepted records an accepted investment with its volumes.
func RecordInvestmentAccepted(stoAddress, paymentMint string, tokensOut, amountPaid, at int64) {
	DefaultMetrics.InvestmentsAccepted.Inc()
	DefaultMetrics.TokensSold.WithLabelValues(stoAddress).Add(float64(tokensOut))
	DefaultMetrics.PaymentVolume.WithLabelValues(paymentMint).Add(float64(amountPaid))
	DefaultMetrics.LastAcceptedInvestment.Set(float64(at))
}

// RecordInvestmentRejected records a rejected investment by reason.
func RecordInvestmentRejected(reason string) {
	DefaultMetrics.InvestmentsRejected.WithLabelValues(reason).Inc()
}

// RecordCommitConflict increments the commit conflict counter.
func RecordCommitConflict() {
	DefaultMetrics.CommitConflicts.Inc()
}

// RecordTierAdvance increments the tier advance counter.
func RecordTierAdvance() {
	DefaultMetrics.TierAdvances.Inc()
}

// RecordInvestmentLatency records investment processing latency.
func RecordInvestmentLatency(seconds float64) {
	DefaultMetrics.InvestmentLatency.Observe(seconds)
}

// RecordStreamClients updates the connected client gauge.
func RecordStreamClients(n int) {
	DefaultMetrics.StreamClients.Set(float64(n))
}

// RecordStreamPublished increments the published event counter.
func RecordStreamPublished() {
	DefaultMetrics.StreamEventsPublished.Inc()
}

// RecordStreamDropped increments the dropped event counter.
func RecordStreamDropped() {
	DefaultMetrics.StreamEventsDropped.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
