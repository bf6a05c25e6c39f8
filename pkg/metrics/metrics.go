// Package metrics provides Prometheus metrics for the document chain manager
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric name when no namespace is configured.
const DefaultNamespace = "bwriter"

// Outcome labels used by the seal, verification and storage counters.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeTimeout  = "timeout"
	OutcomeMismatch = "mismatch"
	OutcomeValid    = "valid"
	OutcomeInvalid  = "invalid"
)

// Metrics holds all Prometheus metrics for the version chain manager.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Chain metrics
	VersionsCreatedTotal prometheus.Counter
	ChainsLoadedTotal    prometheus.Counter
	VerificationsTotal   *prometheus.CounterVec

	// Sealing metrics
	SealAttemptsTotal *prometheus.CounterVec
	SealDuration      prometheus.Histogram
	SealsInFlight     prometheus.Gauge

	// Share metrics
	ShareIssuancesTotal *prometheus.CounterVec
	SharesIssuedTotal   prometheus.Counter

	// Store metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec
}

// NewMetrics creates all metrics under namespace and registers them on reg.
// Passing prometheus.DefaultRegisterer exposes them on the default /metrics handler.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)
	m := &Metrics{}

	m.VersionsCreatedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "versions_created_total",
			Help:      "Total number of document versions created",
		},
	)

	m.ChainsLoadedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chains_loaded_total",
			Help:      "Total number of version chains loaded from the store",
		},
	)

	m.VerificationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_verifications_total",
			Help:      "Total number of structural chain verifications by result",
		},
		[]string{"result"},
	)

	m.SealAttemptsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seal_attempts_total",
			Help:      "Total number of inscription seal attempts by outcome",
		},
		[]string{"outcome"},
	)

	m.SealDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "seal_duration_seconds",
			Help:      "Duration of sealer calls in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	m.SealsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "seals_in_flight",
			Help:      "Number of sealer calls currently running",
		},
	)

	m.ShareIssuancesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "share_issuances_total",
			Help:      "Total number of share token issuances by outcome",
		},
		[]string{"outcome"},
	)

	m.SharesIssuedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shares_issued_total",
			Help:      "Total number of individual shares issued",
		},
	)

	m.StoreOperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of chain store operations",
		},
		[]string{"operation", "status"},
	)

	m.StoreOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of chain store operations in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	return m
}

// RecordVersionCreated counts a new version.
func (m *Metrics) RecordVersionCreated() {
	if m == nil {
		return
	}
	m.VersionsCreatedTotal.Inc()
}

// RecordChainLoaded counts a chain loaded from the store.
func (m *Metrics) RecordChainLoaded() {
	if m == nil {
		return
	}
	m.ChainsLoadedTotal.Inc()
}

// RecordVerification records the result of a structural verification
func (m *Metrics) RecordVerification(valid bool) {
	if m == nil {
		return
	}
	result := OutcomeValid
	if !valid {
		result = OutcomeInvalid
	}
	m.VerificationsTotal.WithLabelValues(result).Inc()
}

// SealStarted marks a sealer call as running.
func (m *Metrics) SealStarted() {
	if m == nil {
		return
	}
	m.SealsInFlight.Inc()
}

// RecordSeal records a finished sealer call with its outcome
func (m *Metrics) RecordSeal(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SealsInFlight.Dec()
	m.SealAttemptsTotal.WithLabelValues(outcome).Inc()
	m.SealDuration.Observe(duration.Seconds())
}

// RecordShareIssuance records a share issuance and the number of shares minted.
func (m *Metrics) RecordShareIssuance(outcome string, shares uint64) {
	if m == nil {
		return
	}
	m.ShareIssuancesTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.SharesIssuedTotal.Add(float64(shares))
	}
}

// RecordStoreOperation records a chain store operation
func (m *Metrics) RecordStoreOperation(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := OutcomeSuccess
	if err != nil {
		status = OutcomeFailure
	}
	m.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	m.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
