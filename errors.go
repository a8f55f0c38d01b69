package balancer

import "github.com/cavemanloverboy/balancer/types"

// Sentinel errors, re-exported from the types subpackage for convenient
// errors.Is checks against the root package.
var (
	// ErrProcessGroupRequired is returned by New when the group is nil.
	ErrProcessGroupRequired = types.ErrProcessGroupRequired

	// ErrNoPendingWork is returned by Collect when no work-submission call
	// preceded it. Detected locally, before the collective is engaged.
	ErrNoPendingWork = types.ErrNoPendingWork

	// ErrWorkPanic is returned when the work function panics; the whole
	// local computation is considered failed.
	ErrWorkPanic = types.ErrWorkPanic

	// ErrDecodeFailed is returned when the coordinator cannot decode a
	// rank's gathered buffer.
	ErrDecodeFailed = types.ErrDecodeFailed

	// ErrNotCoordinator is returned when coordinator-side arguments are
	// passed on a non-coordinator rank.
	ErrNotCoordinator = types.ErrNotCoordinator

	// ErrGroupMismatch indicates collective traffic from a process with a
	// conflicting group identity. Fatal by policy.
	ErrGroupMismatch = types.ErrGroupMismatch

	// ErrCollectiveTimeout indicates a collective that not every rank
	// called. Fatal by policy.
	ErrCollectiveTimeout = types.ErrCollectiveTimeout
)
