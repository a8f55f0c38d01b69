// Package group provides the process-group implementations the balancer
// coordinates over.
//
// Two implementations are included:
//
//   - Local: an in-process group whose members are connected by channels.
//     Collectives are real rendezvous operations, which makes Local the
//     multi-rank harness for tests and a zero-cost group for single-process
//     runs.
//
//   - NATS: a multi-process group over a NATS server. Ranks are either
//     assigned by the launcher (JoinNATSWithRank) or claimed atomically from
//     a JetStream KeyValue bucket (JoinNATS). Collective payloads travel on
//     core NATS subjects tagged with a per-member generation counter and a
//     checksum of the group identity, so mismatched groups fail fast instead
//     of silently interleaving.
//
// All collectives are blocking and must be called uniformly by every member
// in the same order; a member that skips one stalls the group until the
// configured timeout fires. There is no recovery from a failed collective;
// callers should treat such errors as fatal to the whole computation.
package group
