package pool

import (
	"context"

	"github.com/cavemanloverboy/balancer/types"
)

// Map applies work to every element of in using the worker pool and returns
// the outputs in input order.
//
// The output slice is pre-sized and each index is written exactly once by
// exactly one worker, so parallel completion order is irrelevant and no
// locking is needed. work must be pure: it may run concurrently from
// multiple workers and its invocation order is unspecified.
//
// Parameters:
//   - ctx: Context for cancellation
//   - wp: Worker pool to run on
//   - in: Input elements (read-only for the duration of the call)
//   - work: Pure element mapping
//
// Returns:
//   - []U: Outputs, out[i] = work(in[i])
//   - error: Recovered work panic or context cancellation; no partial
//     results are returned on failure
func Map[T, U any](ctx context.Context, wp types.WorkerPool, in []T, work func(T) U) ([]U, error) {
	out := make([]U, len(in))

	err := wp.ForEach(ctx, len(in), func(i int) error {
		out[i] = work(in[i])
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
