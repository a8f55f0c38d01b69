// Package pool provides the intra-process half of the balancer's two-level
// parallelism: a worker pool that spreads an index-space loop across the CPU
// cores of a single process, and a generic parallel map built on top of it.
//
// Workers pull fixed-size chunks of the index space from a shared atomic
// cursor, so uneven per-chunk cost still balances across cores without any
// cross-worker coordination beyond the cursor itself.
package pool
