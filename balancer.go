package balancer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/cavemanloverboy/balancer/codec"
	"github.com/cavemanloverboy/balancer/internal/logging"
	"github.com/cavemanloverboy/balancer/internal/metrics"
	"github.com/cavemanloverboy/balancer/partition"
	"github.com/cavemanloverboy/balancer/pool"
	"github.com/cavemanloverboy/balancer/types"
)

// Balancer manages one logical map computation over a process group: it
// partitions work across ranks, runs the local share on a worker pool, and
// gathers per-rank results back into global order on the coordinator.
//
// A Balancer is created once per logical computation (though its buffer is
// consumed by Collect, so sequential work/collect cycles on one instance are
// fine). The process group handle it binds to is process-wide shared state;
// the Balancer never mutates it. The local result buffer is exclusively
// owned and not meant for concurrent use by multiple computations at once.
type Balancer[T, U any] struct {
	group   types.ProcessGroup
	pool    types.WorkerPool
	codec   types.Codec
	logger  types.Logger
	metrics types.MetricsCollector
	verbose bool

	rank int
	size int

	mu      sync.Mutex
	results []U
	total   int // global length for gather preallocation; 0 when unknown
	pending bool
}

// New creates a Balancer bound to an already-joined process group.
//
// No collective communication happens here; construction is purely local.
// When verbose is set, the coordinator logs an activation banner and both
// work and collect phases log timings.
//
// Parameters:
//   - group: Joined process group handle (required)
//   - verbose: Emit diagnostic banner and phase timings via the logger
//   - opts: Optional pool, codec, logger and metrics
//
// Returns:
//   - *Balancer[T, U]: Initialized balancer
//   - error: ErrProcessGroupRequired if group is nil
//
// Example:
//
//	bal, err := balancer.New[float64, float64](g, false)
func New[T, U any](group types.ProcessGroup, verbose bool, opts ...Option) (*Balancer[T, U], error) {
	if group == nil {
		return nil, ErrProcessGroupRequired
	}

	options := &balancerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	// Safe defaults for optional dependencies.
	workerPool := options.pool
	if workerPool == nil {
		workerPool = pool.New(0)
	}
	resultCodec := options.codec
	if resultCodec == nil {
		resultCodec = codec.JSON{}
	}
	logger := options.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	b := &Balancer[T, U]{
		group:   group,
		pool:    workerPool,
		codec:   resultCodec,
		logger:  logger,
		metrics: metricsCollector,
		verbose: verbose,
		rank:    group.Rank(),
		size:    group.Size(),
	}

	b.metrics.RecordGroupJoin(b.rank)

	if verbose && b.rank == 0 {
		b.logger.Info("balancer activated",
			"nodes", b.size,
			"workers", b.pool.Workers(),
		)
	}

	return b, nil
}

// Rank returns this process's position in [0, Size()).
func (b *Balancer[T, U]) Rank() int {
	return b.rank
}

// Size returns the number of cooperating processes.
func (b *Balancer[T, U]) Size() int {
	return b.size
}

// Workers returns the number of local worker goroutines.
func (b *Balancer[T, U]) Workers() int {
	return b.pool.Workers()
}

// WorkLocal applies work to data that is already this rank's partition.
//
// The caller is responsible for distributing the global sequence upstream,
// typically with Distribute, or by slicing with the partition package in
// rank order. Passing full global data here is a caller error: it is not
// detected, and Collect would then concatenate overlapping results. No
// cross-process communication happens; results land in the local buffer in
// input order.
//
// Parameters:
//   - ctx: Context for cancellation of the local map
//   - data: This rank's slice of the global sequence (read-only during the
//     call; may be empty)
//   - work: Pure element mapping, safe for concurrent invocation
//
// Returns:
//   - error: Recovered work panic (wrapping ErrWorkPanic) or cancellation;
//     on error no results are kept
func (b *Balancer[T, U]) WorkLocal(ctx context.Context, data []T, work func(T) U) error {
	return b.run(ctx, "local", data, 0, work)
}

// WorkSubset applies work to this rank's partition of the full global
// sequence, which must be identically replicated on every rank.
//
// The partition is computed locally via partition.Contiguous; no
// communication is needed for ranks to agree on who owns what. After every
// rank's WorkSubset, a Collect on the coordinator reconstructs exactly
// work applied element-wise to data in original order.
//
// Parameters:
//   - ctx: Context for cancellation of the local map
//   - data: The full global sequence, identical on every rank
//   - work: Pure element mapping, safe for concurrent invocation
//
// Returns:
//   - error: Partition error, recovered work panic, or cancellation
func (b *Balancer[T, U]) WorkSubset(ctx context.Context, data []T, work func(T) U) error {
	r, err := partition.Contiguous(len(data), b.rank, b.size)
	if err != nil {
		return err
	}

	return b.run(ctx, "subset", data[r.Start:r.End], len(data), work)
}

// run executes the local parallel map and stores the result buffer.
func (b *Balancer[T, U]) run(ctx context.Context, mode string, local []T, total int, work func(T) U) error {
	start := time.Now()

	out, err := pool.Map(ctx, b.pool, local, work)
	if err != nil {
		return fmt.Errorf("%s map: %w", mode, err)
	}

	elapsed := time.Since(start)
	b.metrics.RecordMapDuration(mode, elapsed)
	b.metrics.RecordMapElements(mode, len(local))
	if b.verbose {
		b.logger.Debug("local map complete",
			"mode", mode,
			"rank", b.rank,
			"elements", len(local),
			"duration", elapsed,
		)
	}

	b.mu.Lock()
	if b.pending {
		b.logger.Warn("replacing uncollected results", "rank", b.rank)
	}
	b.results = out
	b.total = total
	b.pending = true
	b.mu.Unlock()

	return nil
}

// Collect gathers every rank's local result buffer onto the coordinator and
// reassembles global order.
//
// This is a blocking collective: every rank in the group must call Collect
// or the group stalls until the substrate's timeout. Per-rank buffers are
// concatenated in rank order, which reproduces the original global order
// because partitions are contiguous and rank-ordered. The local buffer is
// consumed, so a subsequent work/collect cycle can reuse the Balancer.
//
// Calling Collect with no pending work returns ErrNoPendingWork before any
// collective is engaged, so a misusing rank fails locally instead of
// half-entering a collective. Note the other ranks may then be left blocked
// in their own Collect until the substrate timeout; the uniform-call
// contract still stands.
//
// Parameters:
//   - ctx: Context for cancellation
//
// Returns:
//   - []U: On rank 0, work applied element-wise to the global sequence in
//     original order; nil on every other rank by design
//   - error: ErrNoPendingWork, collective failure (treat as fatal), or a
//     decode failure per misbehaving rank
func (b *Balancer[T, U]) Collect(ctx context.Context) ([]U, error) {
	b.mu.Lock()
	if !b.pending {
		b.mu.Unlock()
		return nil, ErrNoPendingWork
	}
	results := b.results
	total := b.total
	b.results = nil
	b.total = 0
	b.pending = false
	b.mu.Unlock()

	payload, err := b.codec.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("encode local results: %w", err)
	}

	start := time.Now()
	bufs, err := b.group.Gather(ctx, payload)
	if err != nil {
		b.metrics.RecordCollectiveError("gather")
		return nil, fmt.Errorf("gather: %w", err)
	}

	elapsed := time.Since(start)
	b.metrics.RecordCollectiveDuration("gather", elapsed)
	b.metrics.RecordCollectiveBytes("gather", len(payload))
	if b.verbose {
		b.logger.Debug("collect complete",
			"rank", b.rank,
			"bytes", len(payload),
			"duration", elapsed,
		)
	}

	if b.rank != 0 {
		// Only the coordinator consumes the aggregate result.
		return nil, nil
	}

	out := make([]U, 0, total)
	var decodeErr error
	for r, buf := range bufs {
		var chunk []U
		if err := b.codec.Unmarshal(buf, &chunk); err != nil {
			decodeErr = multierr.Append(decodeErr,
				fmt.Errorf("%w: rank %d: %v", ErrDecodeFailed, r, err))
			continue
		}
		out = append(out, chunk...)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}

	return out, nil
}

// Distribute scatters the coordinator's global sequence so each rank
// receives its contiguous partition.
//
// Rank 0 supplies the full sequence and receives its own partition back;
// every other rank passes nil and receives the slice addressed to it. The
// split matches partition.Contiguous, so data distributed here feeds
// WorkLocal and collects back in global order. Blocking collective; the
// uniform-call contract applies.
//
// Parameters:
//   - ctx: Context for cancellation
//   - data: Full global sequence on rank 0, nil elsewhere
//
// Returns:
//   - []T: This rank's partition of the sequence
//   - error: ErrNotCoordinator if a non-coordinator passes data, collective
//     failure, or codec failure
func (b *Balancer[T, U]) Distribute(ctx context.Context, data []T) ([]T, error) {
	var payloads [][]byte

	if b.rank == 0 {
		table, err := partition.Table(len(data), b.size)
		if err != nil {
			return nil, err
		}

		payloads = make([][]byte, b.size)
		for r, rg := range table {
			payloads[r], err = b.codec.Marshal(data[rg.Start:rg.End])
			if err != nil {
				return nil, fmt.Errorf("encode partition for rank %d: %w", r, err)
			}
		}
	} else if data != nil {
		return nil, fmt.Errorf("%w: only rank 0 supplies data to Distribute", ErrNotCoordinator)
	}

	start := time.Now()
	buf, err := b.group.Scatter(ctx, payloads)
	if err != nil {
		b.metrics.RecordCollectiveError("scatter")
		return nil, fmt.Errorf("scatter: %w", err)
	}
	b.metrics.RecordCollectiveDuration("scatter", time.Since(start))
	b.metrics.RecordCollectiveBytes("scatter", len(buf))

	var local []T
	if err := b.codec.Unmarshal(buf, &local); err != nil {
		return nil, fmt.Errorf("decode partition: %w", err)
	}

	return local, nil
}

// Barrier blocks until every rank in the group has reached it.
//
// Parameters:
//   - ctx: Context for cancellation
//
// Returns:
//   - error: Collective failure or cancellation
func (b *Balancer[T, U]) Barrier(ctx context.Context) error {
	start := time.Now()
	if err := b.group.Barrier(ctx); err != nil {
		b.metrics.RecordCollectiveError("barrier")
		return fmt.Errorf("barrier: %w", err)
	}
	b.metrics.RecordCollectiveDuration("barrier", time.Since(start))

	return nil
}

// Synchronize broadcasts a value from the coordinator to every rank,
// overwriting *v in place on non-coordinator ranks.
//
// It is a free function rather than a Balancer method because the value type
// is independent of the Balancer's input and output types. Blocking
// collective; the uniform-call contract applies.
//
// Parameters:
//   - ctx: Context for cancellation
//   - group: Joined process group handle
//   - c: Codec shared by the group (nil for JSON)
//   - v: On rank 0 the value to broadcast; on other ranks overwritten with
//     rank 0's value
//
// Returns:
//   - error: Collective or codec failure
//
// Example:
//
//	multiple := 0.0
//	if g.Rank() == 0 {
//	    multiple = computeStep()
//	}
//	err := balancer.Synchronize(ctx, g, nil, &multiple)
func Synchronize[V any](ctx context.Context, group types.ProcessGroup, c types.Codec, v *V) error {
	if c == nil {
		c = codec.JSON{}
	}

	var payload []byte
	if group.Rank() == 0 {
		var err error
		if payload, err = c.Marshal(v); err != nil {
			return fmt.Errorf("encode broadcast value: %w", err)
		}
	}

	buf, err := group.Broadcast(ctx, payload)
	if err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}

	if group.Rank() != 0 {
		if err := c.Unmarshal(buf, v); err != nil {
			return fmt.Errorf("decode broadcast value: %w", err)
		}
	}

	return nil
}
