package indexing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the index queue. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	FailedAttempts prometheus.Counter
	Writes         *prometheus.CounterVec
	Dropped        prometheus.Counter
	Pending        prometheus.Gauge
}

// NewMetrics registers index queue metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FailedAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "keygate_index_failed_attempts_total",
			Help: "Total number of failed index write attempts, including retried ones",
		}),
		Writes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "keygate_index_writes_total",
			Help: "Total number of index writes by final result (success, exhausted)",
		}, []string{"result"}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "keygate_index_dropped_total",
			Help: "Total number of pending writes dropped before being attempted",
		}),
		Pending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "keygate_index_pending",
			Help: "Number of writes waiting for the worker",
		}),
	}
}

func (m *Metrics) incFailedAttempt() {
	if m != nil {
		m.FailedAttempts.Inc()
	}
}

func (m *Metrics) incWrite(result string) {
	if m != nil {
		m.Writes.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) addDropped(n int) {
	if m != nil && n > 0 {
		m.Dropped.Add(float64(n))
	}
}

func (m *Metrics) setPending(n int) {
	if m != nil {
		m.Pending.Set(float64(n))
	}
}
