package types

import "context"

// WorkerPool executes an index-space loop in parallel over the CPU cores of a
// single process.
//
// The interface is deliberately index-based rather than generic so that any
// pool implementation can be substituted without touching partition or gather
// logic; the generic parallel map is built on top of it (see pool.Map).
//
// Implementations must call fn for every index in [0, n) exactly once, from
// any number of worker goroutines. fn must therefore be safe for concurrent
// invocation; callers guarantee that distinct indices touch disjoint output
// slots, so no locking is required around the loop body.
type WorkerPool interface {
	// Workers returns the number of worker goroutines the pool runs.
	Workers() int

	// ForEach invokes fn(i) for every i in [0, n), possibly concurrently.
	//
	// The first error returned by fn aborts the loop; remaining indices may
	// be skipped. A panic inside fn is recovered and reported as an error
	// wrapping ErrWorkPanic: the loop is considered failed as a whole, no
	// partial results are salvaged.
	//
	// Parameters:
	//   - ctx: Context for cancellation between chunks
	//   - n: Exclusive upper bound of the index space
	//   - fn: Loop body, called once per index
	//
	// Returns:
	//   - error: First fn error, recovered panic, or context cancellation
	ForEach(ctx context.Context, n int, fn func(i int) error) error
}
