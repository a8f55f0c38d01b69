package balancer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cavemanloverboy/balancer/internal/metrics"
)

// NewPrometheusMetrics creates a Prometheus-backed metrics collector and
// registers its metrics, for use with WithMetrics.
//
// Parameters:
//   - reg: Prometheus registerer (prometheus.DefaultRegisterer if nil)
//   - namespace: Metrics namespace ("balancer" if empty)
//
// Returns:
//   - MetricsCollector: Collector with all metrics registered
//   - error: Registration failure (e.g., duplicate registration)
//
// Example:
//
//	m, err := balancer.NewPrometheusMetrics(nil, "")
//	if err != nil {
//	    return err
//	}
//	bal, err := balancer.New[int, int](g, false, balancer.WithMetrics(m))
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) (MetricsCollector, error) {
	return metrics.NewPrometheus(reg, namespace)
}
