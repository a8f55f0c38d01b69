// Package partition computes the deterministic, contiguous split of a global
// index range across the ranks of a process group.
//
// The split is pure arithmetic over (total length, rank, group size): every
// rank computes the same partition table without exchanging a single message,
// which is what lets work distribution happen with no coordination and gather
// reconstruction happen with no offset metadata.
//
// Properties, for any total >= 0 and size >= 1:
//
//   - Coverage: the union of all ranks' ranges is exactly [0, total)
//   - Disjointness: ranges never overlap
//   - Balance: range lengths differ by at most 1; the first total%size
//     ranks carry the extra element
//   - Order: ranges are contiguous in rank order, so concatenating per-rank
//     results in rank order reproduces global order
//
// When total < size, trailing ranks receive empty ranges; empty ranges are
// valid and simply produce no local results.
package partition
