package pressfront

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for calls made to the content API.
type Metrics struct {
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec
	CacheHitsTotal          prometheus.Counter
	CacheMissesTotal        prometheus.Counter
}

// NewMetrics registers the content API collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UpstreamRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pressfront_upstream_requests_total",
				Help: "Total number of requests sent to the content API",
			},
			[]string{"endpoint", "code"},
		),
		UpstreamRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pressfront_upstream_request_duration_seconds",
				Help:    "Duration of content API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		CacheHitsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "pressfront_post_cache_hits_total",
				Help: "Total number of post list cache hits",
			},
		),
		CacheMissesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "pressfront_post_cache_misses_total",
				Help: "Total number of post list cache misses",
			},
		),
	}
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
