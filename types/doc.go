// Package types defines the public interfaces and sentinel errors shared by
// the balancer library and its subpackages.
//
// Keeping interfaces here (rather than in the root package) lets internal
// packages depend on them without importing the root balancer package,
// avoiding import cycles. The root package re-exports everything users need,
// so most callers never import types directly.
package types
