// Package services provides the infrastructure services behind the ledger:
// balance caching, health checks and Prometheus metrics.
package services

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LedgerMetrics holds Prometheus metrics for ledger computations.
type LedgerMetrics struct {
	computations        *prometheus.CounterVec
	computationDuration *prometheus.HistogramVec
	cacheLookups        *prometheus.CounterVec
	settlements         *prometheus.CounterVec
	strongAuthRequired  prometheus.Counter
	plannedPayments     prometheus.Histogram
}

// Singleton pattern for metrics (avoid double registration in tests).
var (
	ledgerMetricsInstance *LedgerMetrics
	ledgerMetricsOnce     sync.Once
	ledgerRegistry        = prometheus.DefaultRegisterer
)

// Metrics returns the process-wide ledger metrics, registering them on first use.
func Metrics() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		factory := promauto.With(ledgerRegistry)
		ledgerMetricsInstance = &LedgerMetrics{
			computations: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "ledger_computations_total",
				Help: "Total number of ledger computations by operation",
			}, []string{"operation"}),
			computationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "ledger_computation_duration_seconds",
				Help:    "Time taken to load records and compute a ledger view",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			}, []string{"operation"}),
			cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "ledger_balance_cache_lookups_total",
				Help: "Balance cache lookups by result (hit, miss, error)",
			}, []string{"result"}),
			settlements: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "ledger_settlements_total",
				Help: "Settlements recorded or transitioned, by resulting status",
			}, []string{"status"}),
			strongAuthRequired: factory.NewCounter(prometheus.CounterOpts{
				Name: "ledger_strong_auth_required_total",
				Help: "Settlement confirmations refused for lack of strong authentication",
			}),
			plannedPayments: factory.NewHistogram(prometheus.HistogramOpts{
				Name:    "ledger_planned_payments",
				Help:    "Number of payments in simplified settlement plans",
				Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
			}),
		}
	})
	return ledgerMetricsInstance
}

// resetMetricsForTesting swaps in a fresh registry. Tests only.
func resetMetricsForTesting() {
	ledgerRegistry = prometheus.NewRegistry()
	ledgerMetricsInstance = nil
	ledgerMetricsOnce = sync.Once{}
}

// ObserveComputation counts one computation of operation started at start.
func (m *LedgerMetrics) ObserveComputation(operation string, start time.Time) {
	m.computations.WithLabelValues(operation).Inc()
	m.computationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// CacheLookup records a balance cache lookup result: "hit", "miss" or "error".
func (m *LedgerMetrics) CacheLookup(result string) {
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Settlement records a settlement reaching status.
func (m *LedgerMetrics) Settlement(status string) {
	m.settlements.WithLabelValues(status).Inc()
}

// StrongAuthRequired records a confirmation refused by the biometric policy.
func (m *LedgerMetrics) StrongAuthRequired() {
	m.strongAuthRequired.Inc()
}

// PlannedPayments records the size of a simplified plan.
func (m *LedgerMetrics) PlannedPayments(n int) {
	m.plannedPayments.Observe(float64(n))
}
