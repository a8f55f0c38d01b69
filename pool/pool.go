package pool

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/cavemanloverboy/balancer/types"
)

// chunksPerWorker controls stealing granularity: the index space is cut into
// roughly this many chunks per worker so a slow chunk does not strand a core.
const chunksPerWorker = 4

// Pool executes index-space loops across a fixed number of worker goroutines.
//
// A Pool is stateless between calls and safe for concurrent use; a single
// process-wide Pool can serve any number of Balancer instances.
type Pool struct {
	workers int
}

var _ types.WorkerPool = (*Pool)(nil)

// New creates a worker pool with the given number of workers.
//
// Parameters:
//   - workers: Worker goroutine count; values below 1 default to
//     runtime.GOMAXPROCS(0), the available parallelism of the process
//
// Returns:
//   - *Pool: Initialized pool
func New(workers int) *Pool {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Pool{workers: workers}
}

// Workers returns the number of worker goroutines the pool runs.
func (p *Pool) Workers() int {
	return p.workers
}

// ForEach invokes fn(i) for every i in [0, n), spread across the pool's
// workers. See types.WorkerPool for the full contract.
func (p *Pool) ForEach(ctx context.Context, n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}

	chunk := n / (p.workers * chunksPerWorker)
	if chunk < 1 {
		chunk = 1
	}

	workers := p.workers
	if workers > n {
		workers = n
	}

	// Workers claim chunks off a shared cursor until the space is exhausted.
	var cursor atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			for {
				start := int(cursor.Add(int64(chunk))) - chunk
				if start >= n {
					return nil
				}

				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}

				end := start + chunk
				if end > n {
					end = n
				}
				if err := runChunk(start, end, fn); err != nil {
					return err
				}
			}
		})
	}

	return g.Wait()
}

// runChunk executes fn over [start, end), converting a panic into an error so
// a failing work function aborts the loop instead of killing the process.
func runChunk(start, end int, fn func(i int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", types.ErrWorkPanic, r)
		}
	}()

	for i := start; i < end; i++ {
		if err := fn(i); err != nil {
			return err
		}
	}

	return nil
}
