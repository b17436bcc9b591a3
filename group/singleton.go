package group

import "github.com/pkg/errors"

// singleton is the trivial size-1 communicator used to pad or insert at
// axes a Pencil does not partition: "axis not partitioned here" for a
// Subcomm axis.
type singleton struct{}

// NewSingleton returns a Comm of size 1, the Go analogue of MPI_COMM_SELF.
func NewSingleton() Comm { return singleton{} }

func (singleton) Rank() int { return 0 }
func (singleton) Size() int { return 1 }

func (singleton) AllToAllW(sendBufs [][]byte) ([][]byte, error) {
	if len(sendBufs) != 1 {
		return nil, errors.Errorf("group: singleton communicator needs exactly 1 send buffer, got %d", len(sendBufs))
	}
	return sendBufs, nil
}

func (singleton) String() string { return "singleton" }
