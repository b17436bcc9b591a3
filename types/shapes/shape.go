// Package shapes provides the lightweight global-shape value type pencils
// and transfers are described over: a plain dimension tuple, with the
// element type tracked separately via github.com/gomlx/gopjrt/dtypes.
//
// Unlike a full tensor shape type tightly coupled to StableHLO/PJRT
// semantics, Shape carries no element-type field: a Pencil's element type
// is a property of the Transfer built over it, not of the shape itself.
package shapes

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/pkg/errors"
)

// Shape is an ordered tuple of non-negative dimension sizes describing a
// dense n-dimensional array's global extent.
type Shape struct {
	Dims []int
}

// Make builds a Shape from the given dimensions.
func Make(dims ...int) Shape {
	return Shape{Dims: slices.Clone(dims)}
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s.Dims)
}

// Dim returns the size of the given axis.
func (s Shape) Dim(axis int) int {
	return s.Dims[axis]
}

// Clone returns a deep copy.
func (s Shape) Clone() Shape {
	return Shape{Dims: slices.Clone(s.Dims)}
}

// Equal reports whether s and other have identical dimensions.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s.Dims, other.Dims)
}

// Size returns the total number of elements, the product of all dimensions.
func (s Shape) Size() int {
	size := 1
	for _, d := range s.Dims {
		size *= d
	}
	return size
}

// Check validates that every dimension is non-negative.
func (s Shape) Check() error {
	for axis, d := range s.Dims {
		if d < 0 {
			return errors.Errorf("shapes: dimension %d of shape %s is negative", axis, s)
		}
	}
	return nil
}

// String implements fmt.Stringer.
func (s Shape) String() string {
	return fmt.Sprintf("%v", s.Dims)
}

// FromValue infers the shape of a dense, rectangular Go slice value, e.g.
// [][]float64, by walking nested slices recursively and checking every
// sub-slice at a given depth agrees on length.
func FromValue(v any) (Shape, error) {
	var dims []int
	if err := dimsForValueRecursive(&dims, reflect.ValueOf(v), reflect.TypeOf(v)); err != nil {
		return Shape{}, err
	}
	return Shape{Dims: dims}, nil
}

func dimsForValueRecursive(dims *[]int, v reflect.Value, t reflect.Type) error {
	if t.Kind() != reflect.Slice {
		return nil
	}
	elemType := t.Elem()
	*dims = append(*dims, v.Len())
	if v.Len() == 0 {
		return errors.Errorf("shapes: value with an empty slice not valid for shape inference: %T", v.Interface())
	}

	prefixLen := len(*dims)
	if err := dimsForValueRecursive(dims, v.Index(0), elemType); err != nil {
		return err
	}
	want := (*dims)[prefixLen:]

	for i := 1; i < v.Len(); i++ {
		var got []int
		if err := dimsForValueRecursive(&got, v.Index(i), elemType); err != nil {
			return err
		}
		if !slices.Equal(want, got) {
			return errors.Errorf("shapes: sub-slices have irregular shapes, found %v and %v", want, got)
		}
	}
	return nil
}
