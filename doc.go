// Package balancer distributes an embarrassingly-parallel map workload
// across a fixed group of cooperating processes and, within each process,
// across its CPU cores, hiding the partitioning scheme and gather protocol
// behind a minimal API.
//
// # Quick Start
//
// One logical computation runs over a static process group. Each rank builds
// a Balancer, submits work, and collects:
//
//	members, _ := group.NewLocal(1) // or group.JoinNATS(...) across processes
//	bal, _ := balancer.New[float64, float64](members[0], false)
//
//	data := make([]float64, 100_000)
//	for i := range data {
//	    data[i] = float64(i) / 100_000
//	}
//
//	_ = bal.WorkSubset(ctx, data, func(x float64) float64 { return x * x })
//	out, _ := bal.Collect(ctx)
//	if bal.Rank() == 0 {
//	    // out holds the full squared sequence in original order
//	}
//
// # Two Levels of Parallelism
//
// Across processes, the global index range is split deterministically: every
// rank computes the same contiguous partition table from (length, rank,
// size) with no communication (see the partition package). Within a process,
// the local slice is mapped in parallel over a worker pool (see the pool
// package). Results flow back through a single blocking gather-to-
// coordinator collective; concatenating per-rank buffers in rank order
// reproduces global order with no offset metadata.
//
// # Work Submission Modes
//
// WorkSubset takes the full global sequence, identically replicated on every
// rank, and processes only this rank's partition. WorkLocal takes data that
// is already this rank's partition (distributed upstream, typically with
// Distribute). Both populate the local result buffer that Collect consumes.
//
// # Collectives Are Blocking
//
// Collect, Distribute, Synchronize and Barrier are synchronous collectives:
// every rank must make the same call or the group stalls until the
// configured timeout. Collective failures have no recovery path; treat them
// as fatal to the whole computation. Only the coordinator (rank 0) receives
// the gathered result; all other ranks receive nil by design.
package balancer
