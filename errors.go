package pencil

import "github.com/pkg/errors"

// Sentinel error kinds. Callers distinguish them with the standard
// library's errors.Is, e.g. errors.Is(err, pencil.ErrInvalidArgument).
var (
	// ErrInvalidArgument covers negative shapes, out-of-range axes, a
	// partitioned aligned axis, a global extent smaller than the number of
	// partitioning peers, and mismatched buffer shapes or element types at
	// Forward or Backward. Dims that cannot factor a communicator's size
	// are rejected by group.NewSubcomm with a plain error that does not
	// wrap ErrInvalidArgument.
	ErrInvalidArgument = errors.New("pencil: invalid argument")

	// ErrIncompatiblePencils is returned by Pencil.Transfer when the two
	// pencils don't form a valid transfer pair: different global shapes,
	// the same aligned axis, mismatched sub-communicators or local shapes
	// on a shared axis, or sub-communicators that aren't swapped on the
	// two distinguished axes.
	ErrIncompatiblePencils = errors.New("pencil: incompatible pencils")

	// ErrTransportFailure wraps an error reported by the underlying
	// collective primitive. The core performs no local recovery.
	ErrTransportFailure = errors.New("pencil: transport failure")
)

func invalidArgumentf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

func incompatiblePencilsf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrIncompatiblePencils, format, args...)
}

func transportFailuref(cause error, format string, args ...interface{}) error {
	return errors.Wrapf(ErrTransportFailure, format+": %v", append(args, cause)...)
}
