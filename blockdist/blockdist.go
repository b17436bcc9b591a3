// Package blockdist implements the pure block-distribution arithmetic that
// underlies every other package in this module: splitting an interval
// [0, N) into P nearly-equal contiguous blocks.
package blockdist

import "github.com/pkg/errors"

// Block is the length and starting offset of one peer's slice of [0, N).
type Block struct {
	Length int
	Offset int
}

// Compute splits [0, N) into size nearly-equal contiguous blocks and returns
// the block assigned to rank.
//
// Let q = N/size (floored) and m = N mod size. Ranks below m get a block of
// length q+1; the rest get a block of length q. Blocks are non-overlapping,
// contiguous, their lengths sum to N, and earlier ranks never get a smaller
// block than later ones.
//
// Compute returns an error if size <= 0, rank is not in [0, size), or N < 0.
// The error is a plain error, not wrapped in a sentinel kind; pencil.New
// wraps it in pencil.ErrInvalidArgument.
func Compute(n, size, rank int) (Block, error) {
	if size <= 0 {
		return Block{}, errors.Errorf("blockdist: size must be positive, got %d", size)
	}
	if rank < 0 || rank >= size {
		return Block{}, errors.Errorf("blockdist: rank %d out of range [0, %d)", rank, size)
	}
	if n < 0 {
		return Block{}, errors.Errorf("blockdist: n must be non-negative, got %d", n)
	}

	q, m := n/size, n%size
	length := q
	if rank < m {
		length = q + 1
	}
	offset := rank*q + min(rank, m)
	return Block{Length: length, Offset: offset}, nil
}

// All returns the Block for every rank in [0, size), in rank order.
func All(n, size int) ([]Block, error) {
	blocks := make([]Block, size)
	for rank := range size {
		block, err := Compute(n, size, rank)
		if err != nil {
			return nil, err
		}
		blocks[rank] = block
	}
	return blocks, nil
}
