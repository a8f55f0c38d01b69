package types

import "context"

// ProcessGroup is a fixed-size group of cooperating processes with blocking
// collective operations. It is the coordination substrate the Balancer rides
// on; implementations live in the group subpackage (an in-process group for
// tests and single-process runs, and a NATS-backed group for real
// multi-process deployments).
//
// Collective Contract:
//
// Every collective method (Gather, Scatter, Broadcast, Barrier) is a
// rendezvous: ALL members of the group must call the same sequence of
// collectives in the same order. A member that skips a collective stalls the
// whole group until the operation times out. There is no cancellation and no
// partial delivery; a collective either completes on every rank or fails on
// every rank. This is a correctness contract, not an implementation detail.
//
// The handle is process-wide, read-mostly state: it is initialized once,
// shared by any number of sequential Balancer instances, and torn down once
// at process exit. No Balancer ever exclusively owns or mutates it.
type ProcessGroup interface {
	// Rank returns this process's zero-based identity within the group.
	// Stable for the lifetime of the group: 0 <= Rank() < Size().
	Rank() int

	// Size returns the total number of cooperating processes. Stable for the
	// lifetime of the group, and at least 1.
	Size() int

	// Gather sends this rank's payload to the coordinator (rank 0).
	//
	// On rank 0 it returns the payloads of all ranks in rank order (index r
	// holds rank r's payload, including rank 0's own). On every other rank
	// it returns nil. Gather does not return on any rank until the
	// coordinator has received every payload, so it doubles as a barrier.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - payload: This rank's contribution (may be nil or empty)
	//
	// Returns:
	//   - [][]byte: Rank-ordered payloads on rank 0, nil elsewhere
	//   - error: Timeout, group mismatch, or context cancellation
	Gather(ctx context.Context, payload []byte) ([][]byte, error)

	// Scatter distributes one payload per rank from the coordinator.
	//
	// Rank 0 supplies exactly Size() payloads (index r goes to rank r) and
	// receives payloads[0] back. Every other rank passes nil and receives
	// the payload addressed to it.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - payloads: Size() payloads on rank 0, nil on other ranks
	//
	// Returns:
	//   - []byte: The payload addressed to this rank
	//   - error: Payload count mismatch, timeout, or group mismatch
	Scatter(ctx context.Context, payloads [][]byte) ([]byte, error)

	// Broadcast sends the coordinator's payload to every rank.
	//
	// Rank 0 supplies the payload and receives it back; every other rank
	// passes nil and receives rank 0's payload.
	Broadcast(ctx context.Context, payload []byte) ([]byte, error)

	// Barrier blocks until every member of the group has reached it.
	Barrier(ctx context.Context) error
}
