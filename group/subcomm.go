package group

import (
	"log"
	"runtime"
	"slices"
	"strconv"

	"github.com/pkg/errors"
)

// Subcomm is an ordered tuple of sub-communicators over an n-dimensional
// Cartesian process grid, one per axis: the peers of Subcomm.Axis(i) are
// exactly the ranks that share every Cartesian coordinate except i.
//
// dims may leave some axis sizes unspecified (zero), in which case they are
// filled in by a balanced factorization of the remaining rank count.
type Subcomm struct {
	world *World
	rank  int
	dims  []int
	comms []Comm

	destroyed bool
}

// NewSubcomm builds a Cartesian process grid of the given dims over world,
// from the perspective of rank, and derives one sub-communicator per axis.
//
// dims: nil defaults to a single axis ([0]); each entry >0 is a fixed axis
// size, each entry ==0 is filled in by a balanced factorization of
// world.Size() / product(fixed entries). All ranks must call NewSubcomm
// with identical dims and reorder for the resulting sub-communicators to
// agree across ranks — the same determinism precondition every
// collective-synchronous call in this module relies on.
//
// reorder is accepted for interface parity with the source library but has
// no effect: this module's World has no notion of physical placement for a
// Cartesian reordering to optimize, since every rank is a goroutine in the
// same process.
func NewSubcomm(world *World, rank int, dims []int, reorder bool) (*Subcomm, error) {
	_ = reorder
	if world == nil {
		return nil, errors.New("group: world must not be nil")
	}
	if dims == nil {
		dims = []int{0}
	}
	resolved, err := computeDims(world.Size(), dims)
	if err != nil {
		return nil, err
	}

	comms := make([]Comm, len(resolved))
	for axis := range resolved {
		peers := peersSharingAllOtherCoords(rank, resolved, axis)
		c, err := world.commFor(rank, peers, axisLabel(axis))
		if err != nil {
			return nil, err
		}
		comms[axis] = c
	}

	sc := &Subcomm{world: world, rank: rank, dims: resolved, comms: comms}
	runtime.SetFinalizer(sc, func(sc *Subcomm) {
		if !sc.destroyed {
			log.Printf("group: Subcomm %v garbage-collected without Destroy being called", sc.dims)
		}
	})
	return sc, nil
}

func axisLabel(axis int) string {
	return "axis" + strconv.Itoa(axis)
}

// Len returns the number of axes.
func (s *Subcomm) Len() int {
	return len(s.comms)
}

// Axis returns the sub-communicator for the given axis.
func (s *Subcomm) Axis(axis int) (Comm, error) {
	if axis < 0 || axis >= len(s.comms) {
		return nil, errors.Errorf("group: axis %d out of range [0, %d)", axis, len(s.comms))
	}
	return s.comms[axis], nil
}

// Dims returns a copy of the resolved Cartesian grid dimensions.
func (s *Subcomm) Dims() []int {
	return slices.Clone(s.dims)
}

// Comms returns a copy of the per-axis sub-communicator tuple, in axis
// order. Callers typically pass a prefix of this slice to pencil.New: given
// fewer entries than the shape's rank, a Pencil inserts a singleton at its
// aligned axis; given a full-length tuple, it requires the entry at the
// aligned axis to already have size 1.
func (s *Subcomm) Comms() []Comm {
	return slices.Clone(s.comms)
}

// Destroy releases the sub-communicators this Subcomm created. It is an
// error to call Destroy twice.
func (s *Subcomm) Destroy() error {
	if s.destroyed {
		return errors.New("group: Subcomm already destroyed")
	}
	s.destroyed = true
	s.comms = nil
	runtime.SetFinalizer(s, nil)
	return nil
}
