package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all metrics
type Metrics struct {
	VectorInserts        prometheus.Counter
	SearchQueries        prometheus.Counter
	SearchErrors         prometheus.Counter
	SearchLatency        prometheus.Histogram
	IndexRebuilds        prometheus.Counter
	DistanceCacheHitRate prometheus.Gauge
}

// NewMetrics creates metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		VectorInserts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "unichrome_vector_inserts_total",
			Help: "Total vector insertions",
		}),
		SearchQueries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "unichrome_search_queries_total",
			Help: "Total search queries",
		}),
		SearchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "unichrome_search_errors_total",
			Help: "Total search errors",
		}),
		SearchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "unichrome_search_latency_seconds",
			Help: "Search latency",
		}),
		IndexRebuilds: promauto.NewCounter(prometheus.CounterOpts{
			Name: "unichrome_index_rebuilds_total",
			Help: "Total full graph rebuilds triggered by delete/update operations",
		}),
		DistanceCacheHitRate: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "unichrome_distance_cache_hit_rate",
			Help: "Most recent construction-time distance cache hit rate, per collection observation",
		}),
	}
}
