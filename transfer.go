package pencil

import (
	"encoding/binary"
	"math"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/pencil/group"
	"github.com/gomlx/pencil/subarray"
)

// Element is the set of scalar types a Transfer can move: the real and
// complex floating point types an element of the distributed array can be.
type Element interface {
	~float32 | ~float64 | ~complex64 | ~complex128
}

// Transfer plans and executes an all-to-all redistribution between two
// compatible pencils. It owns typesA and typesB and releases them on
// Destroy; the communicator is borrowed from the pencils that built it.
//
// Forward and Backward cannot be methods parameterized by the element type
// (Go disallows type parameters on methods), so they are free functions
// taking a *Transfer, in the style of a generic container's package-level
// helpers.
type Transfer struct {
	comm  group.Comm
	shape []int
	dtype dtypes.DType

	subshapeA []int
	axisA     int
	subshapeB []int
	axisB     int

	typesA *subarray.TypeSet
	typesB *subarray.TypeSet

	destroyed bool
}

func newTransfer(comm group.Comm, shape []int, dtype dtypes.DType, subshapeA []int, axisA int, subshapeB []int, axisB int) (*Transfer, error) {
	typesA, err := subarray.New(subshapeA, axisA, shape[axisA], comm.Size())
	if err != nil {
		return nil, invalidArgumentf("pencil: building descriptors for axis %d: %v", axisA, err)
	}
	typesB, err := subarray.New(subshapeB, axisB, shape[axisB], comm.Size())
	if err != nil {
		return nil, invalidArgumentf("pencil: building descriptors for axis %d: %v", axisB, err)
	}
	return &Transfer{
		comm:      comm,
		shape:     shape,
		dtype:     dtype,
		subshapeA: subshapeA,
		axisA:     axisA,
		subshapeB: subshapeB,
		axisB:     axisB,
		typesA:    typesA,
		typesB:    typesB,
	}, nil
}

// Destroy releases both descriptor sets. Calling it twice is an error.
func (t *Transfer) Destroy() error {
	if t.destroyed {
		return invalidArgumentf("pencil: Transfer already destroyed")
	}
	t.destroyed = true
	t.typesA = nil
	t.typesB = nil
	return nil
}

func elementCount(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func checkBuffers[T Element](t *Transfer, bufA, bufB []T) error {
	if t.destroyed {
		return invalidArgumentf("pencil: Transfer already destroyed")
	}
	if dtypeOf[T]() != t.dtype {
		return invalidArgumentf("pencil: Transfer expects element type %s, got %T", t.dtype, *new(T))
	}
	if len(bufA) != elementCount(t.subshapeA) {
		return invalidArgumentf("pencil: bufA has %d elements, want %d (shape %v)", len(bufA), elementCount(t.subshapeA), t.subshapeA)
	}
	if len(bufB) != elementCount(t.subshapeB) {
		return invalidArgumentf("pencil: bufB has %d elements, want %d (shape %v)", len(bufB), elementCount(t.subshapeB), t.subshapeB)
	}
	return nil
}

// Forward performs the global redistribution from bufA (shaped subshapeA)
// into bufB (shaped subshapeB): peer i's typesA tile of bufA is exchanged
// for peer i's typesB tile, which is written into bufB.
func Forward[T Element](t *Transfer, bufA, bufB []T) error {
	if err := checkBuffers(t, bufA, bufB); err != nil {
		return err
	}
	return exchange(t, t.typesA, bufA, t.typesB, bufB)
}

// Backward is the dual exchange: bufB (shaped subshapeB) redistributed back
// into bufA (shaped subshapeA). backward(forward(x)) reproduces x
// element-wise.
func Backward[T Element](t *Transfer, bufB, bufA []T) error {
	if err := checkBuffers(t, bufA, bufB); err != nil {
		return err
	}
	return exchange(t, t.typesB, bufB, t.typesA, bufA)
}

// exchange is shared by Forward and Backward: cut send using sendTypes,
// exchange over the communicator, deposit the result using recvTypes.
func exchange[T Element](t *Transfer, sendTypes *subarray.TypeSet, send []T, recvTypes *subarray.TypeSet, recv []T) error {
	sendBufs := make([][]byte, t.comm.Size())
	for i, d := range sendTypes.Descriptors {
		sendBufs[i] = encodeElements(subarray.Extract(send, d))
	}

	recvBufs, err := t.comm.AllToAllW(sendBufs)
	if err != nil {
		return transportFailuref(err, "pencil: all-to-all exchange failed")
	}

	for i, d := range recvTypes.Descriptors {
		tile := decodeElements[T](recvBufs[i])
		subarray.Deposit(recv, d, tile)
	}
	return nil
}

func dtypeOf[T Element]() dtypes.DType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return dtypes.Float32
	case float64:
		return dtypes.Float64
	case complex64:
		return dtypes.Complex64
	case complex128:
		return dtypes.Complex128
	default:
		return dtypes.InvalidDType
	}
}

// encodeElements and decodeElements are the wire codec at the group.Comm
// boundary: AllToAllW moves opaque bytes, so every Transfer must serialize
// its tiles the same way on both sides. Plain encoding/binary,
// little-endian throughout.
func encodeElements[T Element](vals []T) []byte {
	switch v := any(vals).(type) {
	case []float32:
		buf := make([]byte, 4*len(v))
		for i, x := range v {
			binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
		}
		return buf
	case []float64:
		buf := make([]byte, 8*len(v))
		for i, x := range v {
			binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(x))
		}
		return buf
	case []complex64:
		buf := make([]byte, 8*len(v))
		for i, x := range v {
			binary.LittleEndian.PutUint32(buf[8*i:], math.Float32bits(real(x)))
			binary.LittleEndian.PutUint32(buf[8*i+4:], math.Float32bits(imag(x)))
		}
		return buf
	case []complex128:
		buf := make([]byte, 16*len(v))
		for i, x := range v {
			binary.LittleEndian.PutUint64(buf[16*i:], math.Float64bits(real(x)))
			binary.LittleEndian.PutUint64(buf[16*i+8:], math.Float64bits(imag(x)))
		}
		return buf
	default:
		panic("pencil: unreachable element type in encodeElements")
	}
}

func decodeElements[T Element](buf []byte) []T {
	var out []T
	switch any(out).(type) {
	case []float32:
		vals := make([]float32, len(buf)/4)
		for i := range vals {
			vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
		}
		return any(vals).([]T)
	case []float64:
		vals := make([]float64, len(buf)/8)
		for i := range vals {
			vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
		}
		return any(vals).([]T)
	case []complex64:
		vals := make([]complex64, len(buf)/8)
		for i := range vals {
			re := math.Float32frombits(binary.LittleEndian.Uint32(buf[8*i:]))
			im := math.Float32frombits(binary.LittleEndian.Uint32(buf[8*i+4:]))
			vals[i] = complex(re, im)
		}
		return any(vals).([]T)
	case []complex128:
		vals := make([]complex128, len(buf)/16)
		for i := range vals {
			re := math.Float64frombits(binary.LittleEndian.Uint64(buf[16*i:]))
			im := math.Float64frombits(binary.LittleEndian.Uint64(buf[16*i+8:]))
			vals[i] = complex(re, im)
		}
		return any(vals).([]T)
	default:
		panic("pencil: unreachable element type in decodeElements")
	}
}
