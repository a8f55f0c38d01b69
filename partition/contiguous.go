package partition

import (
	"errors"
	"fmt"
)

// Errors returned by partition calculations.
var (
	// ErrInvalidSize is returned when the group size is below 1.
	ErrInvalidSize = errors.New("group size must be at least 1")

	// ErrRankOutOfRange is returned when rank is outside [0, size).
	ErrRankOutOfRange = errors.New("rank out of range")

	// ErrNegativeLength is returned when the total length is negative.
	ErrNegativeLength = errors.New("total length must be non-negative")
)

// Range is the half-open interval [Start, End) of global indices assigned to
// one rank.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// IsEmpty reports whether the range contains no indices.
func (r Range) IsEmpty() bool {
	return r.End <= r.Start
}

// String returns the conventional half-open interval notation.
func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Contiguous computes the contiguous sub-range of [0, total) owned by rank.
//
// The base chunk is total/size and the remainder total%size is distributed
// one element each to the lowest ranks, so range lengths differ by at most
// one. The result depends only on the arguments; every rank of a group
// computes an identical partition table with no communication.
//
// Parameters:
//   - total: Global sequence length (>= 0)
//   - rank: This rank's position in [0, size)
//   - size: Group size (>= 1)
//
// Returns:
//   - Range: The half-open index range owned by rank (possibly empty)
//   - error: ErrInvalidSize, ErrRankOutOfRange, or ErrNegativeLength
func Contiguous(total, rank, size int) (Range, error) {
	if size < 1 {
		return Range{}, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if rank < 0 || rank >= size {
		return Range{}, fmt.Errorf("%w: rank %d with size %d", ErrRankOutOfRange, rank, size)
	}
	if total < 0 {
		return Range{}, fmt.Errorf("%w: %d", ErrNegativeLength, total)
	}

	chunk := total / size
	rem := total % size

	// Ranks below rem each hold chunk+1 elements, the rest hold chunk.
	start := rank*chunk + min(rank, rem)
	end := start + chunk
	if rank < rem {
		end++
	}

	return Range{Start: start, End: end}, nil
}

// Table computes the full partition table for a group: one Range per rank,
// contiguous, in rank order, covering [0, total) exactly once.
//
// Parameters:
//   - total: Global sequence length (>= 0)
//   - size: Group size (>= 1)
//
// Returns:
//   - []Range: size ranges, indexed by rank
//   - error: ErrInvalidSize or ErrNegativeLength
func Table(total, size int) ([]Range, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if total < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeLength, total)
	}

	table := make([]Range, size)
	for rank := range size {
		r, err := Contiguous(total, rank, size)
		if err != nil {
			return nil, err
		}
		table[rank] = r
	}

	return table, nil
}
