package types

import "time"

// MetricsCollector receives instrumentation events from the balancer.
//
// All methods must be safe for concurrent use and cheap enough to call on
// every operation. The default collector is a no-op; a Prometheus-backed
// implementation is available via balancer.NewPrometheusMetrics.
type MetricsCollector interface {
	// RecordMapDuration records the wall time of one local parallel map.
	// mode is "local" or "subset".
	RecordMapDuration(mode string, d time.Duration)

	// RecordMapElements records how many elements one local map processed.
	RecordMapElements(mode string, n int)

	// RecordCollectiveDuration records the wall time of one collective
	// operation. op is "gather", "scatter", "broadcast" or "barrier".
	RecordCollectiveDuration(op string, d time.Duration)

	// RecordCollectiveBytes records the payload size this rank contributed
	// to or received from a collective.
	RecordCollectiveBytes(op string, n int)

	// RecordCollectiveError counts a failed collective operation.
	RecordCollectiveError(op string)

	// RecordGroupJoin records that this process joined a group with the
	// given rank.
	RecordGroupJoin(rank int)
}
