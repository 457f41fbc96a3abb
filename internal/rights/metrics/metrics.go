package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the rights module.
type Metrics struct {
	OppositionsSubmitted *prometheus.CounterVec
	OppositionsReviewed  *prometheus.CounterVec
	DisputesSubmitted    prometheus.Counter
	DisputesResolved     *prometheus.CounterVec
	SuspensionsToggled   *prometheus.CounterVec
	UsersErased          prometheus.Counter
}

// New creates a Metrics instance with all rights module metrics registered.
func New() *Metrics {
	return &Metrics{
		OppositionsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rgpd_oppositions_submitted_total",
			Help: "Total number of user oppositions submitted, by treatment",
		}, []string{"treatment"}),
		OppositionsReviewed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rgpd_oppositions_reviewed_total",
			Help: "Total number of opposition reviews, by outcome",
		}, []string{"status"}),
		DisputesSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rgpd_disputes_submitted_total",
			Help: "Total number of automated-decision disputes submitted",
		}),
		DisputesResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rgpd_disputes_resolved_total",
			Help: "Total number of dispute resolutions, by outcome",
		}, []string{"status"}),
		SuspensionsToggled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rgpd_data_suspensions_toggled_total",
			Help: "Total number of Art. 18 suspension state changes, by direction",
		}, []string{"direction"}),
		UsersErased: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rgpd_users_erased_total",
			Help: "Total number of Art. 17 user erasures",
		}),
	}
}

// IncrementOppositionSubmitted records an accepted opposition submission.
func (m *Metrics) IncrementOppositionSubmitted(treatment string) {
	m.OppositionsSubmitted.WithLabelValues(treatment).Inc()
}

// IncrementOppositionReviewed records a completed opposition review.
func (m *Metrics) IncrementOppositionReviewed(status string) {
	m.OppositionsReviewed.WithLabelValues(status).Inc()
}

// IncrementDisputeSubmitted records an accepted dispute submission.
func (m *Metrics) IncrementDisputeSubmitted() {
	m.DisputesSubmitted.Inc()
}

// IncrementDisputeResolved records a terminal dispute resolution.
func (m *Metrics) IncrementDisputeResolved(status string) {
	m.DisputesResolved.WithLabelValues(status).Inc()
}

// IncrementSuspensionToggled records a suspension activation or deactivation.
func (m *Metrics) IncrementSuspensionToggled(direction string) {
	m.SuspensionsToggled.WithLabelValues(direction).Inc()
}

// IncrementUserErased records a completed user erasure.
func (m *Metrics) IncrementUserErased() {
	m.UsersErased.Inc()
}
