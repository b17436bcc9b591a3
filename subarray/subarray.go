// Package subarray builds the per-peer strided subarray descriptors that let
// a single collective exchange move non-contiguous tiles between ranks with
// no manual packing loop at the call site.
package subarray

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/gomlx/pencil/blockdist"
)

// Descriptor is an opaque view into a buffer shaped TileShape: along Axis,
// the slice [Offset, Offset+Length) is addressed; every other axis uses the
// full extent. It is the Go analogue of the spec's "opaque strided-subarray
// datatype handle".
type Descriptor struct {
	TileShape []int
	Axis      int
	Offset    int
	Length    int
}

// TypeSet is the ordered tuple of P descriptors produced by New,
// one per peer, each cutting tileShape along axis at that peer's block.
type TypeSet struct {
	Descriptors []Descriptor
}

// New builds a TypeSet of numPeers descriptors: peer i's
// descriptor cuts a buffer shaped tileShape along axis to exactly the
// BlockDist(globalExtent, numPeers, i) slice, keeping every other axis at
// its full extent.
//
// tileShape must already have tileShape[axis] == globalExtent: the axis
// being cut is, by construction, the pencil's aligned (fully local) axis,
// so the buffer being sliced already holds the whole of it.
func New(tileShape []int, axis, globalExtent, numPeers int) (*TypeSet, error) {
	if axis < 0 || axis >= len(tileShape) {
		return nil, errors.Errorf("subarray: axis %d out of range [0, %d)", axis, len(tileShape))
	}
	if tileShape[axis] != globalExtent {
		return nil, errors.Errorf(
			"subarray: tileShape[%d] = %d does not match the global extent %d being distributed",
			axis, tileShape[axis], globalExtent)
	}

	blocks, err := blockdist.All(globalExtent, numPeers)
	if err != nil {
		return nil, errors.Wrap(err, "subarray: failed to block-distribute axis")
	}

	descriptors := make([]Descriptor, numPeers)
	for i, block := range blocks {
		descriptors[i] = Descriptor{
			TileShape: slices.Clone(tileShape),
			Axis:      axis,
			Offset:    block.Offset,
			Length:    block.Length,
		}
	}
	return &TypeSet{Descriptors: descriptors}, nil
}

// SubShape returns the shape of the tile this descriptor addresses: the
// same as TileShape except Length at Axis.
func (d Descriptor) SubShape() []int {
	shape := slices.Clone(d.TileShape)
	shape[d.Axis] = d.Length
	return shape
}

// outerInner splits a row-major shape around axis into the element count
// before axis (outer) and the element count from axis+1 onward (inner): a
// cut along axis is then a sequence of outer contiguous blocks, each of
// shape[axis]*inner elements in the source and Length*inner in the tile.
func outerInner(shape []int, axis int) (outer, inner int) {
	outer, inner = 1, 1
	for i, n := range shape {
		switch {
		case i < axis:
			outer *= n
		case i > axis:
			inner *= n
		}
	}
	return outer, inner
}

// Extract copies the tile described by d out of buf, which must be a flat
// row-major buffer shaped d.TileShape. The result is a freshly allocated,
// flat row-major buffer shaped d.SubShape().
func Extract[T any](buf []T, d Descriptor) []T {
	outer, inner := outerInner(d.TileShape, d.Axis)
	axisLen := d.TileShape[d.Axis]
	blockLen := d.Length * inner

	out := make([]T, outer*blockLen)
	for o := range outer {
		srcStart := o*axisLen*inner + d.Offset*inner
		dstStart := o * blockLen
		copy(out[dstStart:dstStart+blockLen], buf[srcStart:srcStart+blockLen])
	}
	return out
}

// Deposit writes a flat row-major tile shaped d.SubShape() into buf, which
// must be a flat row-major buffer shaped d.TileShape, at the location d
// describes. It is the inverse of Extract.
func Deposit[T any](buf []T, d Descriptor, tile []T) {
	outer, inner := outerInner(d.TileShape, d.Axis)
	axisLen := d.TileShape[d.Axis]
	blockLen := d.Length * inner

	for o := range outer {
		dstStart := o*axisLen*inner + d.Offset*inner
		srcStart := o * blockLen
		copy(buf[dstStart:dstStart+blockLen], tile[srcStart:srcStart+blockLen])
	}
}
