package pencil

import (
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/pencil/blockdist"
	"github.com/gomlx/pencil/group"
	"github.com/gomlx/pencil/types/shapes"
)

// Pencil is an immutable value object describing, for the calling rank,
// the local tile of a global array under one particular layout: the local
// shape (subShape) and offset (subStart) along every axis, and which axis
// is "aligned" — held in full locally, not partitioned.
//
// Ownership of Comms is shared with every other Pencil built from the same
// sub-communicator tuple; a Pencil never releases it.
type Pencil struct {
	Shape    shapes.Shape
	Axis     int
	Comms    []group.Comm
	SubShape []int
	SubStart []int
}

// New builds a Pencil over the given global shape, aligned on axis (negative
// indices wrap, -1 meaning the last axis).
//
// comms is a tuple of 1 to shape.Rank() sub-communicators. If it is shorter
// than shape.Rank(), it is first padded at the end with singleton
// communicators up to shape.Rank()-1 entries, then a singleton is inserted
// at position axis — so the aligned axis is never partitioned regardless of
// what the caller passed there. If comms already has shape.Rank() entries,
// it is used as-is and comms[axis] must already be a singleton: a
// full-length tuple with a non-singleton at the aligned axis is rejected
// rather than silently fixed.
func New(comms []group.Comm, shape shapes.Shape, axis int) (*Pencil, error) {
	d := shape.Rank()
	if d < 2 {
		return nil, invalidArgumentf("pencil: shape must have rank at least 2, got %d", d)
	}
	for i, n := range shape.Dims {
		if n < 1 {
			return nil, invalidArgumentf("pencil: shape dimension %d must be positive, got %d", i, n)
		}
	}

	axis, err := normalizeAxis(axis, d)
	if err != nil {
		return nil, err
	}

	resolved, err := resolveComms(comms, d, axis)
	if err != nil {
		return nil, err
	}

	subShape := make([]int, d)
	subStart := make([]int, d)
	for i, c := range resolved {
		if shape.Dims[i] < c.Size() {
			return nil, invalidArgumentf(
				"pencil: axis %d has global extent %d, smaller than its %d partitioning peers",
				i, shape.Dims[i], c.Size())
		}
		block, err := blockdist.Compute(shape.Dims[i], c.Size(), c.Rank())
		if err != nil {
			return nil, invalidArgumentf("pencil: axis %d: %v", i, err)
		}
		subShape[i] = block.Length
		subStart[i] = block.Offset
	}

	return &Pencil{
		Shape:    shape.Clone(),
		Axis:     axis,
		Comms:    resolved,
		SubShape: subShape,
		SubStart: subStart,
	}, nil
}

func normalizeAxis(axis, rank int) (int, error) {
	if axis < -rank || axis >= rank {
		return 0, invalidArgumentf("pencil: axis %d out of range [-%d, %d)", axis, rank, rank)
	}
	if axis < 0 {
		axis += rank
	}
	return axis, nil
}

// resolveComms pads a short sub-communicator tuple with singletons and
// inserts a singleton at the aligned axis, or validates a full-length one.
func resolveComms(comms []group.Comm, d, axis int) ([]group.Comm, error) {
	if len(comms) < 1 || len(comms) > d {
		return nil, invalidArgumentf(
			"pencil: sub-communicator tuple must have between 1 and %d entries, got %d", d, len(comms))
	}
	if len(comms) == d {
		if comms[axis].Size() != 1 {
			return nil, invalidArgumentf(
				"pencil: aligned axis %d already carries a non-singleton sub-communicator of size %d",
				axis, comms[axis].Size())
		}
		return slices.Clone(comms), nil
	}

	padded := slices.Clone(comms)
	for len(padded) < d-1 {
		padded = append(padded, group.NewSingleton())
	}
	return insertComm(padded, axis, group.NewSingleton()), nil
}

func insertComm(s []group.Comm, idx int, v group.Comm) []group.Comm {
	out := make([]group.Comm, len(s)+1)
	copy(out, s[:idx])
	out[idx] = v
	copy(out[idx+1:], s[idx:])
	return out
}

// Pencil returns the partner Pencil aligned on newAxis: the sub-communicators
// at the old and new aligned axes are swapped, which guarantees Transfer's
// compatibility invariant against the receiver by construction. This is the
// canonical way to build a Transfer partner.
func (p *Pencil) Pencil(newAxis int) (*Pencil, error) {
	newAxis, err := normalizeAxis(newAxis, p.Shape.Rank())
	if err != nil {
		return nil, err
	}
	comms := slices.Clone(p.Comms)
	comms[p.Axis], comms[newAxis] = comms[newAxis], comms[p.Axis]
	return New(comms, p.Shape, newAxis)
}

// Transfer builds the redistribution plan from p to target, after checking
// that the two pencils are compatible: same global shape, distinct aligned
// axes, matching sub-communicators and local shapes on every other axis,
// and swapped sub-communicators on the two distinguished axes. dtype fixes
// the element type every Forward/Backward call against the returned
// Transfer must use.
func (p *Pencil) Transfer(target *Pencil, dtype dtypes.DType) (*Transfer, error) {
	if dtype == dtypes.InvalidDType {
		return nil, invalidArgumentf("pencil: Transfer requires a valid element type")
	}
	if !p.Shape.Equal(target.Shape) {
		return nil, incompatiblePencilsf("pencil: shapes %s and %s differ", p.Shape, target.Shape)
	}
	if p.Axis == target.Axis {
		return nil, incompatiblePencilsf("pencil: both pencils are aligned on axis %d", p.Axis)
	}
	for i := range p.Shape.Dims {
		if i == p.Axis || i == target.Axis {
			continue
		}
		if p.Comms[i] != target.Comms[i] {
			return nil, incompatiblePencilsf("pencil: sub-communicators differ on shared axis %d", i)
		}
		if p.SubShape[i] != target.SubShape[i] {
			return nil, incompatiblePencilsf("pencil: local shapes differ on shared axis %d", i)
		}
	}
	if p.Comms[target.Axis] != target.Comms[p.Axis] {
		return nil, incompatiblePencilsf(
			"pencil: source's sub-communicator at axis %d does not match target's at axis %d",
			target.Axis, p.Axis)
	}

	comm := p.Comms[target.Axis]

	// The working shape is the source's local tile with the redistributed
	// axis (target.Axis) expanded to its global extent: that axis becomes
	// fully visible once gathered across comm.
	workingShape := slices.Clone(p.SubShape)
	workingShape[target.Axis] = p.Shape.Dims[target.Axis]

	return newTransfer(comm, workingShape, dtype, p.SubShape, p.Axis, target.SubShape, target.Axis)
}
