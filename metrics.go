package offlinecache

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the Prometheus collectors for the transport
type metrics struct {
	requestsTotal *prometheus.CounterVec
	cacheReads    *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "offlinecache_requests_total",
				Help: "Requests handled by the caching transport, by strategy and outcome.",
			},
			[]string{"strategy", "outcome"},
		),
		cacheReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "offlinecache_cache_reads_total",
				Help: "Cache store lookups by result.",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.requestsTotal, m.cacheReads)
	return m
}

func (m *metrics) request(strategy, outcome string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(strategy, outcome).Inc()
}

func (m *metrics) cacheRead(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheReads.WithLabelValues(result).Inc()
}
