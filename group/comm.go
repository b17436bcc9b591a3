package group

import (
	"strconv"

	"github.com/gomlx/pencil/internal/utils"
	"github.com/pkg/errors"
)

// Comm is a communicator: a group of peers that can be addressed by a
// contiguous local rank and that can participate in collective exchanges.
//
// This is the interface the rest of the module programs against as its
// process-group abstraction; World's comm is its only implementation in
// this module, but any backend (a real MPI binding, a networked RPC
// fabric) could satisfy it instead.
type Comm interface {
	// Rank returns this handle's local rank within the communicator.
	Rank() int
	// Size returns the number of peers in the communicator.
	Size() int
	// AllToAllW exchanges distinct byte payloads with every peer in a
	// single collective: sendBufs[j] is delivered to peer j, and the
	// returned slice's [j] entry is what peer j sent back. len(sendBufs)
	// must equal Size().
	AllToAllW(sendBufs [][]byte) ([][]byte, error)
	// String returns a short debug label, never used in the wire protocol.
	String() string
}

type comm struct {
	world      *World
	globalRank int
	localRank  int
	peers      []int // global ranks, ordered by local rank
	label      string
	rendezvous *rendezvous
}

func (c *comm) Rank() int { return c.localRank }
func (c *comm) Size() int { return len(c.peers) }

func (c *comm) String() string {
	return utils.NormalizeIdentifier(c.label) + "#" + strconv.Itoa(c.globalRank)
}

func (c *comm) AllToAllW(sendBufs [][]byte) ([][]byte, error) {
	if len(sendBufs) != c.Size() {
		return nil, errors.Errorf("group: AllToAllW needs %d send buffers, got %d", c.Size(), len(sendBufs))
	}
	return c.rendezvous.exchange(c.localRank, sendBufs)
}
