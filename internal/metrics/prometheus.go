package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cavemanloverboy/balancer/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
type PrometheusCollector struct {
	mapDuration        *prometheus.HistogramVec
	mapElements        *prometheus.CounterVec
	collectiveDuration *prometheus.HistogramVec
	collectiveBytes    *prometheus.CounterVec
	collectiveErrors   *prometheus.CounterVec
	groupRank          prometheus.Gauge
}

var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a Prometheus-backed metrics collector and registers
// its metrics.
//
// Parameters:
//   - reg: Prometheus registerer (prometheus.DefaultRegisterer if nil)
//   - namespace: Metrics namespace ("balancer" if empty)
//
// Returns:
//   - *PrometheusCollector: Collector with all metrics registered
//   - error: Registration failure (e.g., duplicate registration)
func NewPrometheus(reg prometheus.Registerer, namespace string) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "balancer"
	}

	c := &PrometheusCollector{
		mapDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "map_duration_seconds",
			Help:      "Wall time of local parallel map phases.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 12),
		}, []string{"mode"}),
		mapElements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "map_elements_total",
			Help:      "Elements processed by local parallel map phases.",
		}, []string{"mode"}),
		collectiveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collective_duration_seconds",
			Help:      "Wall time of collective operations.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 12),
		}, []string{"op"}),
		collectiveBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collective_bytes_total",
			Help:      "Payload bytes contributed to collective operations.",
		}, []string{"op"}),
		collectiveErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collective_errors_total",
			Help:      "Failed collective operations.",
		}, []string{"op"}),
		groupRank: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "group_rank",
			Help:      "Rank of this process within its group.",
		}),
	}

	for _, col := range []prometheus.Collector{
		c.mapDuration, c.mapElements, c.collectiveDuration,
		c.collectiveBytes, c.collectiveErrors, c.groupRank,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// RecordMapDuration records the wall time of one local parallel map.
func (c *PrometheusCollector) RecordMapDuration(mode string, d time.Duration) {
	c.mapDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// RecordMapElements records how many elements one local map processed.
func (c *PrometheusCollector) RecordMapElements(mode string, n int) {
	c.mapElements.WithLabelValues(mode).Add(float64(n))
}

// RecordCollectiveDuration records the wall time of one collective.
func (c *PrometheusCollector) RecordCollectiveDuration(op string, d time.Duration) {
	c.collectiveDuration.WithLabelValues(op).Observe(d.Seconds())
}

// RecordCollectiveBytes records payload bytes moved by a collective.
func (c *PrometheusCollector) RecordCollectiveBytes(op string, n int) {
	c.collectiveBytes.WithLabelValues(op).Add(float64(n))
}

// RecordCollectiveError counts a failed collective operation.
func (c *PrometheusCollector) RecordCollectiveError(op string) {
	c.collectiveErrors.WithLabelValues(op).Inc()
}

// RecordGroupJoin records the rank this process joined with.
func (c *PrometheusCollector) RecordGroupJoin(rank int) {
	c.groupRank.Set(float64(rank))
}
