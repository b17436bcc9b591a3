// Package group provides the process-group abstraction consumed by the rest
// of this module: a static set of ranks, Cartesian topology derivation, and
// the "all-to-all with distinct per-peer datatypes" collective that Transfer
// is built on.
//
// No cgo MPI binding is used anywhere in this module's dependency graph, so
// World is this module's own reference implementation of that abstraction:
// it simulates a static process group in a single Go process, one goroutine
// per rank, communicating over channels. A production deployment with
// access to a real cgo MPI binding could implement the same Comm interface
// against it without changing anything in blockdist, subarray, or the root
// pencil package.
package group

import (
	"fmt"
	"sync"

	"github.com/gomlx/pencil/internal/utils"
	"github.com/pkg/errors"
)

// World is a static process group of a fixed size, the Go analogue of
// MPI_COMM_WORLD. It never grows or shrinks: this module provides no
// membership-change API.
type World struct {
	size int

	mu     sync.Mutex
	groups map[string]*rendezvous
}

// NewWorld creates a World of the given size. size must be positive.
func NewWorld(size int) (*World, error) {
	if size <= 0 {
		return nil, errors.Errorf("group: world size must be positive, got %d", size)
	}
	return &World{
		size:   size,
		groups: make(map[string]*rendezvous),
	}, nil
}

// Size returns the number of ranks in the world.
func (w *World) Size() int {
	return w.size
}

// Base returns the base communicator for rank, equivalent to MPI_COMM_WORLD
// as seen from that rank. rank must be in [0, w.Size()).
func (w *World) Base(rank int) (Comm, error) {
	if rank < 0 || rank >= w.size {
		return nil, errors.Errorf("group: rank %d out of range [0, %d)", rank, w.size)
	}
	peers := make([]int, w.size)
	for i := range peers {
		peers[i] = i
	}
	return w.commFor(rank, peers, "world")
}

// commFor returns the shared Comm for the given ordered peer set, creating
// its rendezvous channels on first use. Every rank in peers must call this
// with an identical peers slice and label for the returned handles to agree
// on a common rendezvous object — every rank is expected to reach the same
// precondition outcome deterministically, the same discipline every other
// collective-synchronous call in this module relies on.
func (w *World) commFor(rank int, peers []int, label string) (Comm, error) {
	seen := utils.MakeSet[int](len(peers))
	for _, p := range peers {
		if seen.Has(p) {
			return nil, errors.Errorf("group: peer set %q contains rank %d more than once", label, p)
		}
		seen.Insert(p)
	}

	key := groupKey(label, peers)

	w.mu.Lock()
	rv, found := w.groups[key]
	if !found {
		rv = newRendezvous(len(peers))
		w.groups[key] = rv
	}
	w.mu.Unlock()

	localRank := -1
	for i, p := range peers {
		if p == rank {
			localRank = i
			break
		}
	}
	if localRank < 0 {
		return nil, errors.Errorf("group: rank %d is not a member of group %q", rank, label)
	}

	return &comm{
		world:      w,
		globalRank: rank,
		localRank:  localRank,
		peers:      peers,
		label:      label,
		rendezvous: rv,
	}, nil
}

func groupKey(label string, peers []int) string {
	return fmt.Sprintf("%s:%v", label, peers)
}
