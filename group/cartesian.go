package group

import (
	"slices"

	"github.com/pkg/errors"
)

// computeDims fills the zero entries of dims with a balanced factorization
// of size, leaving the non-zero (fixed) entries untouched.
//
// This is the Go-native equivalent of MPI_Dims_create: it never reorders
// the caller's fixed entries, and distributes the remaining factors of
// size/prod(fixed) as evenly as possible across the free axes, largest
// first, so that a 2D free-axis pair on 12 comes out [4, 3] rather than
// [12, 1] or [1, 12].
func computeDims(size int, dims []int) ([]int, error) {
	for i, d := range dims {
		if d < 0 {
			return nil, errors.Errorf("group: dims[%d] = %d must be non-negative", i, d)
		}
	}

	fixedProduct := 1
	freeAxes := 0
	for _, d := range dims {
		if d > 0 {
			fixedProduct *= d
		} else {
			freeAxes++
		}
	}
	if freeAxes == 0 {
		if fixedProduct != size {
			return nil, errors.Errorf("group: dims %v fully specified but product %d does not match size %d",
				dims, fixedProduct, size)
		}
		return slices.Clone(dims), nil
	}
	if fixedProduct == 0 || size%fixedProduct != 0 {
		return nil, errors.Errorf("group: size %d is not evenly divisible by the fixed dims in %v", size, dims)
	}

	free := balancedFactorization(size/fixedProduct, freeAxes)
	result := slices.Clone(dims)
	fi := 0
	for i, d := range result {
		if d == 0 {
			result[i] = free[fi]
			fi++
		}
	}
	return result, nil
}

// balancedFactorization returns count factors of n, as close to each other
// in magnitude as possible, sorted in descending order.
//
// It works by trial division: it collects the prime factors of n, then
// assigns them largest first, each to whichever bucket currently has the
// smallest running product, which keeps the buckets balanced.
func balancedFactorization(n, count int) []int {
	buckets := make([]int, count)
	for i := range buckets {
		buckets[i] = 1
	}
	var primes []int
	remaining := n
	for factor := 2; factor*factor <= remaining; factor++ {
		for remaining%factor == 0 {
			remaining /= factor
			primes = append(primes, factor)
		}
	}
	if remaining > 1 {
		primes = append(primes, remaining)
	}
	for i := len(primes) - 1; i >= 0; i-- {
		assignToSmallest(buckets, primes[i])
	}
	slices.SortFunc(buckets, func(a, b int) int { return b - a })
	return buckets
}

func assignToSmallest(buckets []int, factor int) {
	smallest := 0
	for i, b := range buckets {
		if b < buckets[smallest] {
			smallest = i
		}
	}
	buckets[smallest] *= factor
}

// coordsFromRank converts a flat rank into per-axis Cartesian coordinates
// for a grid shaped dims, in row-major order (axis 0 varies slowest).
func coordsFromRank(rank int, dims []int) []int {
	coords := make([]int, len(dims))
	remaining := rank
	for i := len(dims) - 1; i >= 0; i-- {
		coords[i] = remaining % dims[i]
		remaining /= dims[i]
	}
	return coords
}

// rankFromCoords is the inverse of coordsFromRank.
func rankFromCoords(coords, dims []int) int {
	rank := 0
	multiplier := 1
	for i := len(dims) - 1; i >= 0; i-- {
		rank += coords[i] * multiplier
		multiplier *= dims[i]
	}
	return rank
}

// peersSharingAllOtherCoords returns, for every rank in a grid shaped dims,
// the ordered list of ranks that share every coordinate except axis.
//
// This is the definition of a sub-communicator: the result for a given rank
// is the membership of that rank's sub-communicator along axis, and the
// rank's position within it is its index in the returned slice.
func peersSharingAllOtherCoords(rank int, dims []int, axis int) []int {
	coords := coordsFromRank(rank, dims)
	peers := make([]int, dims[axis])
	for v := range dims[axis] {
		peerCoords := slices.Clone(coords)
		peerCoords[axis] = v
		peers[v] = rankFromCoords(peerCoords, dims)
	}
	return peers
}
