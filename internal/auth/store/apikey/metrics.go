package apikey

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CacheMetrics counts key cache lookups. A nil *CacheMetrics is valid and
// records nothing.
type CacheMetrics struct {
	Lookups *prometheus.CounterVec
}

// NewCacheMetrics registers key cache metrics on reg.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	return &CacheMetrics{
		Lookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "keygate_apikey_cache_lookups_total",
			Help: "API key cache lookups by cache and result (hit, miss, error)",
		}, []string{"cache", "result"}),
	}
}

func (m *CacheMetrics) incLookup(cache, result string) {
	if m != nil {
		m.Lookups.WithLabelValues(cache, result).Inc()
	}
}
