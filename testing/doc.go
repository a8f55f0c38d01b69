// Package testing provides helpers for testing balancer-based code: an
// embedded NATS server with JetStream enabled and a logger that writes to
// the test log.
//
// The embedded server runs in-process with a random port and a temporary
// store directory, so NATS-backed process groups can be exercised in plain
// `go test` runs with no external dependencies.
package testing
