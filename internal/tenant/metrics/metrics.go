package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tenant module.
type Metrics struct {
	TenantCreated     prometheus.Counter
	TenantDeactivated prometheus.Counter
	APIKeyRotated     prometheus.Counter
}

// New creates a Metrics instance with all tenant module metrics registered.
func New() *Metrics {
	return &Metrics{
		TenantCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rgpd_tenants_created_total",
			Help: "Total number of tenants created",
		}),
		TenantDeactivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rgpd_tenants_deactivated_total",
			Help: "Total number of tenant deactivations",
		}),
		APIKeyRotated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rgpd_tenant_api_keys_rotated_total",
			Help: "Total number of tenant API key rotations",
		}),
	}
}

// IncrementTenantCreated records a successful tenant creation.
func (m *Metrics) IncrementTenantCreated() {
	m.TenantCreated.Inc()
}

// IncrementTenantDeactivated records a tenant deactivation.
func (m *Metrics) IncrementTenantDeactivated() {
	m.TenantDeactivated.Inc()
}

// IncrementAPIKeyRotated records an API key rotation.
func (m *Metrics) IncrementAPIKeyRotated() {
	m.APIKeyRotated.Inc()
}
