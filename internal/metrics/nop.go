// Package metrics provides the built-in types.MetricsCollector
// implementations: a no-op collector used as the default and a
// Prometheus-backed collector for production observability.
package metrics

import (
	"time"

	"github.com/cavemanloverboy/balancer/types"
)

// NopMetrics discards all instrumentation events.
type NopMetrics struct{}

var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a collector that records nothing.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordMapDuration discards the event.
func (*NopMetrics) RecordMapDuration(_ string, _ time.Duration) {}

// RecordMapElements discards the event.
func (*NopMetrics) RecordMapElements(_ string, _ int) {}

// RecordCollectiveDuration discards the event.
func (*NopMetrics) RecordCollectiveDuration(_ string, _ time.Duration) {}

// RecordCollectiveBytes discards the event.
func (*NopMetrics) RecordCollectiveBytes(_ string, _ int) {}

// RecordCollectiveError discards the event.
func (*NopMetrics) RecordCollectiveError(_ string) {}

// RecordGroupJoin discards the event.
func (*NopMetrics) RecordGroupJoin(_ int) {}
