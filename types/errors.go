package types

import "errors"

// Sentinel errors for the balancer library.
//
// These provide type-safe error checking with errors.Is and errors.As.
// Components wrap them with context using fmt.Errorf("...: %w", err).

// Balancer errors - returned by the root package's public API.
var (
	// ErrProcessGroupRequired is returned when the process group is nil.
	ErrProcessGroupRequired = errors.New("process group is required")

	// ErrNoPendingWork is returned when Collect is called before any
	// work-submission call. It is detected locally, before the collective is
	// engaged, so the caller can fix the misuse without deadlocking peers.
	ErrNoPendingWork = errors.New("no pending work to collect")

	// ErrWorkPanic is returned when the work function panics for any
	// element. The whole local computation is considered failed; no partial
	// results are kept.
	ErrWorkPanic = errors.New("work function panicked")

	// ErrDecodeFailed is returned when the coordinator cannot decode a
	// rank's gathered result buffer.
	ErrDecodeFailed = errors.New("failed to decode rank results")

	// ErrNotCoordinator is returned by coordinator-only operations invoked
	// on a non-coordinator rank with coordinator-side arguments.
	ErrNotCoordinator = errors.New("operation requires coordinator rank")
)

// Process group errors - returned by group implementations. Collective
// failures have no safe mid-collective recovery path; callers should treat
// them as fatal to the whole group.
var (
	// ErrInvalidGroupSize is returned when a group is configured with a size
	// below 1.
	ErrInvalidGroupSize = errors.New("group size must be at least 1")

	// ErrInvalidRank is returned when a rank is outside [0, size).
	ErrInvalidRank = errors.New("rank out of range")

	// ErrGroupFull is returned when every rank in the group is already
	// claimed by another process.
	ErrGroupFull = errors.New("no available rank in group")

	// ErrGroupMismatch is returned when a collective message arrives from a
	// process whose group identity (name or size) disagrees with ours.
	ErrGroupMismatch = errors.New("process group mismatch")

	// ErrCollectiveTimeout is returned when a collective operation does not
	// complete within the configured timeout, typically because not every
	// rank called it.
	ErrCollectiveTimeout = errors.New("collective operation timed out")

	// ErrGroupClosed is returned when a collective is attempted on a closed
	// group handle.
	ErrGroupClosed = errors.New("group is closed")

	// ErrScatterPayloadCount is returned when the coordinator calls Scatter
	// with a payload count different from the group size, or a
	// non-coordinator passes payloads.
	ErrScatterPayloadCount = errors.New("scatter payload count must equal group size")
)
