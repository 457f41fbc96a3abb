package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the gateway module.
type Metrics struct {
	InvocationsCompleted prometheus.Counter
	InvocationsBlocked   *prometheus.CounterVec
	InvocationDuration   prometheus.Histogram
}

// NewMetrics creates a Metrics instance with all gateway metrics registered.
func NewMetrics() *Metrics {
	return &Metrics{
		InvocationsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rgpd_ai_invocations_completed_total",
			Help: "Total number of AI invocations that passed every gate",
		}),
		InvocationsBlocked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rgpd_ai_invocations_blocked_total",
			Help: "Total number of AI invocations refused, by block reason",
		}, []string{"reason"}),
		InvocationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rgpd_ai_invocation_duration_seconds",
			Help:    "End-to-end latency of permitted AI invocations",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
