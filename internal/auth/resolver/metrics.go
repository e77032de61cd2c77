package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for credential resolution.
type Metrics struct {
	Resolutions *prometheus.CounterVec
}

// NewMetrics registers resolution metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "keygate_auth_resolutions_total",
			Help: "Total number of credential resolutions by scheme, outcome and rejection reason",
		}, []string{"scheme", "outcome", "reason"}),
	}
}

// IncSuccess counts a successful resolution via scheme.
func (m *Metrics) IncSuccess(scheme string) {
	m.Resolutions.WithLabelValues(scheme, "success", "").Inc()
}

// IncFailure counts a failed resolution with reason.
func (m *Metrics) IncFailure(scheme, reason string) {
	m.Resolutions.WithLabelValues(scheme, "failure", reason).Inc()
}
