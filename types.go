package balancer

import "github.com/cavemanloverboy/balancer/types"

// Re-export interfaces from the types subpackage.
//
// Interfaces live in types so internal packages can depend on them without
// importing the root package; these aliases keep the convenient
// balancer.ProcessGroup, balancer.Logger, etc. for users.
type (
	ProcessGroup     = types.ProcessGroup
	WorkerPool       = types.WorkerPool
	Codec            = types.Codec
	Logger           = types.Logger
	MetricsCollector = types.MetricsCollector
)
