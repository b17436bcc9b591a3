// Package pencil implements the pencil decomposition and global
// redistribution core of a distributed multidimensional array library:
// given a grid partitioned across many ranks, it describes, per rank, the
// local tile of a given layout (a Pencil) and performs the collective
// exchange that switches which axis is locally contiguous (a Transfer).
//
// FFT computation, on-disk serialization, and spectral-domain math are
// out of scope: this package only moves and describes data.
package pencil
