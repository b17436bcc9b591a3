package pencil_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/pencil"
	"github.com/gomlx/pencil/group"
	"github.com/gomlx/pencil/types/shapes"
)

// runOnRanks runs fn once per rank in its own goroutine and waits for all to
// finish, mirroring how every rank of a real collective-synchronous program
// would call into this module independently and in lockstep.
func runOnRanks(size int, fn func(rank int)) {
	var wg sync.WaitGroup
	for rank := range size {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			fn(rank)
		}(rank)
	}
	wg.Wait()
}

// TestForwardRedistributesRowSlabsIntoColumnSlabs runs 4 ranks over a 2x2
// grid on a dense 8x8 float64 array: each rank starts holding a contiguous
// slab of rows (axis-1-aligned) and, after Forward, must hold exactly the
// corresponding slab of columns (axis-0-aligned), verified element-by-element
// against the known global array.
func TestForwardRedistributesRowSlabsIntoColumnSlabs(t *testing.T) {
	world, err := group.NewWorld(4)
	require.NoError(t, err)

	shape := shapes.Make(8, 8)
	global := make([]float64, 64)
	for i := range global {
		global[i] = float64(i)
	}

	runOnRanks(4, func(rank int) {
		sc, err := group.NewSubcomm(world, rank, []int{0, 0}, true)
		require.NoError(t, err)
		require.Equal(t, []int{2, 2}, sc.Dims())

		pencilA, err := pencil.New(sc.Comms()[:1], shape, 1)
		require.NoError(t, err)
		require.Equal(t, []int{4, 8}, pencilA.SubShape)

		pencilB, err := pencilA.Pencil(0)
		require.NoError(t, err)
		require.Equal(t, []int{8, 4}, pencilB.SubShape)

		// bufA holds rank's slab of rows [substart[0], substart[0]+subshape[0]).
		bufA := make([]float64, pencilA.SubShape[0]*pencilA.SubShape[1])
		for i := range pencilA.SubShape[0] {
			for j := range pencilA.SubShape[1] {
				globalRow := pencilA.SubStart[0] + i
				bufA[i*pencilA.SubShape[1]+j] = global[globalRow*8+j]
			}
		}

		tr, err := pencilA.Transfer(pencilB, dtypes.Float64)
		require.NoError(t, err)
		defer tr.Destroy()

		bufB := make([]float64, pencilB.SubShape[0]*pencilB.SubShape[1])
		require.NoError(t, pencil.Forward(tr, bufA, bufB))

		for i := range pencilB.SubShape[0] {
			for j := range pencilB.SubShape[1] {
				globalCol := pencilB.SubStart[1] + j
				require.Equal(t, global[i*8+globalCol], bufB[i*pencilB.SubShape[1]+j],
					"rank %d, global row %d, global col %d", rank, i, globalCol)
			}
		}
	})
}

// TestForwardBackwardRoundTripsOnAThreeAxisGrid runs 6 ranks over a 3x2x1
// grid on a dense 6x6x6 complex128 array and checks that Backward undoes
// Forward exactly, element-by-element, when two of the three axes are
// actually partitioned and one is fixed to size 1.
func TestForwardBackwardRoundTripsOnAThreeAxisGrid(t *testing.T) {
	world, err := group.NewWorld(6)
	require.NoError(t, err)

	shape := shapes.Make(6, 6, 6)
	global := make([]complex128, 6*6*6)
	for i := range global {
		global[i] = complex(float64(i), float64(-i))
	}

	runOnRanks(6, func(rank int) {
		sc, err := group.NewSubcomm(world, rank, []int{0, 0, 1}, true)
		require.NoError(t, err)
		require.ElementsMatch(t, []int{3, 2, 1}, sc.Dims())

		pencilA, err := pencil.New(sc.Comms()[:2], shape, 2)
		require.NoError(t, err)
		pencilB, err := pencilA.Pencil(0)
		require.NoError(t, err)

		tr, err := pencilA.Transfer(pencilB, dtypes.Complex128)
		require.NoError(t, err)
		defer tr.Destroy()

		bufA := make([]complex128, pencilA.SubShape[0]*pencilA.SubShape[1]*pencilA.SubShape[2])
		fillFromGlobal(bufA, global, shape.Dims, pencilA.SubShape, pencilA.SubStart)

		bufB := make([]complex128, pencilB.SubShape[0]*pencilB.SubShape[1]*pencilB.SubShape[2])
		require.NoError(t, pencil.Forward(tr, bufA, bufB))

		bufA2 := make([]complex128, len(bufA))
		require.NoError(t, pencil.Backward(tr, bufB, bufA2))
		require.Equal(t, bufA, bufA2, "rank %d round-trip", rank)
	})
}

// fillFromGlobal copies the tile of a dense row-major 3D global array that
// starts at subStart and has shape subShape into dst, row-major.
func fillFromGlobal(dst []complex128, global []complex128, globalShape, subShape, subStart []int) {
	idx := 0
	for i := range subShape[0] {
		for j := range subShape[1] {
			for k := range subShape[2] {
				gi, gj, gk := subStart[0]+i, subStart[1]+j, subStart[2]+k
				flat := (gi*globalShape[1]+gj)*globalShape[2] + gk
				dst[idx] = global[flat]
				idx++
			}
		}
	}
}

// TestForwardOnSingleRankIsAPureCopy checks that with only one rank in the
// process group, Forward just copies its input buffer unchanged: there are
// no peers to redistribute data with.
func TestForwardOnSingleRankIsAPureCopy(t *testing.T) {
	world, err := group.NewWorld(1)
	require.NoError(t, err)
	sc, err := group.NewSubcomm(world, 0, []int{0, 0}, true)
	require.NoError(t, err)

	shape := shapes.Make(5, 7)
	pencilA, err := pencil.New(sc.Comms(), shape, 0)
	require.NoError(t, err)
	require.Equal(t, []int{5, 7}, pencilA.SubShape)
	require.Equal(t, []int{0, 0}, pencilA.SubStart)

	pencilB, err := pencilA.Pencil(1)
	require.NoError(t, err)

	tr, err := pencilA.Transfer(pencilB, dtypes.Float32)
	require.NoError(t, err)
	defer tr.Destroy()

	bufA := make([]float32, 35)
	for i := range bufA {
		bufA[i] = float32(i)
	}
	bufB := make([]float32, 35)
	require.NoError(t, pencil.Forward(tr, bufA, bufB))
	require.Equal(t, bufA, bufB)
}

// TestTransferRejectsTwoPencilsAlignedOnTheSameAxis checks that building a
// Transfer between two pencils that share an aligned axis fails with
// ErrIncompatiblePencils: there is nothing to redistribute between them.
func TestTransferRejectsTwoPencilsAlignedOnTheSameAxis(t *testing.T) {
	world, err := group.NewWorld(4)
	require.NoError(t, err)
	sc, err := group.NewSubcomm(world, 0, []int{0, 0}, true)
	require.NoError(t, err)

	shape := shapes.Make(8, 8)
	pencilA, err := pencil.New(sc.Comms()[:1], shape, 1)
	require.NoError(t, err)
	pencilSame, err := pencil.New(sc.Comms()[:1], shape, 1)
	require.NoError(t, err)

	_, err = pencilA.Transfer(pencilSame, dtypes.Float64)
	require.ErrorIs(t, err, pencil.ErrIncompatiblePencils)
}

// TestTransferUsesFullGlobalExtentNotLocalSubShape builds a Transfer from a
// (4,8)-local axis-1 pencil to an (8,4)-local axis-0 pencil on a 2-peer
// sub-communicator and round-trips unexpanded (4,8) buffers through it. This
// only works if the descriptor sets were built against the full (8,8)
// global extent rather than the (4,8) local tile each rank actually holds.
func TestTransferUsesFullGlobalExtentNotLocalSubShape(t *testing.T) {
	world, err := group.NewWorld(2)
	require.NoError(t, err)

	runOnRanks(2, func(rank int) {
		sc, err := group.NewSubcomm(world, rank, []int{0, 0}, true)
		require.NoError(t, err)

		shape := shapes.Make(8, 8)
		pencilA, err := pencil.New(sc.Comms()[:1], shape, 1)
		require.NoError(t, err)
		require.Equal(t, []int{4, 8}, pencilA.SubShape)

		pencilB, err := pencilA.Pencil(0)
		require.NoError(t, err)
		require.Equal(t, []int{8, 4}, pencilB.SubShape)

		tr, err := pencilA.Transfer(pencilB, dtypes.Float64)
		require.NoError(t, err)
		defer tr.Destroy()

		bufA := make([]float64, 4*8)
		for i := range bufA {
			bufA[i] = float64(rank*100 + i)
		}
		bufB := make([]float64, 8*4)
		require.NoError(t, pencil.Forward(tr, bufA, bufB))

		bufA2 := make([]float64, len(bufA))
		require.NoError(t, pencil.Backward(tr, bufB, bufA2))
		require.Equal(t, bufA, bufA2)
	})
}
