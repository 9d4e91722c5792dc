package utils

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulingMetrics exposes counters/histograms for coordinator operations.
type SchedulingMetrics struct {
	operations   *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	txnConflicts *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medibook",
			Subsystem: "scheduling",
			Name:      "operations_total",
			Help:      "Scheduling operations by outcome code",
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medibook",
			Subsystem: "scheduling",
			Name:      "operation_latency_seconds",
			Help:      "Latency of scheduling operations including transaction retries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		txnConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medibook",
			Subsystem: "store",
			Name:      "transaction_conflicts_total",
			Help:      "Optimistic transaction attempts that lost a write race",
		}, []string{"backend"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operations, m.latency, m.txnConflicts)
	return m
}

// ObserveOperation records one coordinator call; outcome is "ok" or an error code.
func (m *SchedulingMetrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveConflict records one retried transaction attempt.
func (m *SchedulingMetrics) ObserveConflict(backend string) {
	if m == nil {
		return
	}
	m.txnConflicts.WithLabelValues(backend).Inc()
}
