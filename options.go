package balancer

// Option configures a Balancer with optional dependencies.
type Option func(*balancerOptions)

// balancerOptions holds optional Balancer configuration.
type balancerOptions struct {
	pool    WorkerPool
	codec   Codec
	logger  Logger
	metrics MetricsCollector
}

// WithPool sets a custom worker pool for the local parallel map.
//
// By default each Balancer uses a pool sized to the process's available
// parallelism; pass a shared pool to cap or share worker goroutines across
// sequential computations.
//
// Parameters:
//   - pool: WorkerPool implementation
//
// Returns:
//   - Option: Functional option for New
func WithPool(pool WorkerPool) Option {
	return func(o *balancerOptions) {
		o.pool = pool
	}
}

// WithCodec sets the codec used to move result chunks across the group.
//
// Defaults to codec.JSON. Every member of the group must use the same
// codec; use codec.Gob for payloads JSON cannot carry.
//
// Parameters:
//   - codec: Codec implementation
//
// Returns:
//   - Option: Functional option for New
func WithCodec(codec Codec) Option {
	return func(o *balancerOptions) {
		o.codec = codec
	}
}

// WithLogger sets a logger.
//
// Verbose balancers emit their activation banner and phase timings through
// it. Defaults to a no-op logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for New
//
// Example:
//
//	logger := balancer.NewSlogLogger(slog.Default())
//	bal, err := balancer.New[int, int](g, true, balancer.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *balancerOptions) {
		o.logger = logger
	}
}

// WithMetrics sets a metrics collector.
//
// Defaults to a no-op collector; see NewPrometheusMetrics for the
// Prometheus-backed one.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for New
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *balancerOptions) {
		o.metrics = metrics
	}
}
