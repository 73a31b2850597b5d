// Package core provides the dense array model shared by every stage of a
// spectral transform pipeline.
//
// An Array is a row-major N-dimensional block of either float64 or complex128
// scalars. The element type is part of the array's identity because a forward
// transform may switch from real to complex exactly once along the pipeline,
// at the axis whose basis exploits conjugate symmetry. All pipeline stages,
// transfers and boundary splicing operate on Arrays through the same small
// surface: shape and stride queries, line iteration along one axis, and block
// copies addressed by per-axis index ranges.
//
// Key components:
//   - Array: dense real or complex N-d array with explicit strides
//   - Line iteration: walking all 1-D lines along a chosen axis
//   - Block copy helpers used by pencil transfers and boundary splicing
package core

import (
	"errors"
	"fmt"
	"math"
)

// Dtype identifies the scalar type held by an Array.
type Dtype int

const (
	Real Dtype = iota
	Complex
)

// String returns a short name for the dtype.
func (d Dtype) String() string {
	if d == Real {
		return "real"
	}
	return "complex"
}

// ErrBadShape is returned when a requested shape has a non-positive extent.
var ErrBadShape = errors.New("core: shape extent must be positive")

// Array is a dense row-major N-dimensional array. Exactly one of the two
// backing slices is non-nil, selected by the dtype.
type Array struct {
	shape   []int
	strides []int
	dtype   Dtype
	re      []float64
	cx      []complex128
}

// NewArray allocates a zeroed array of the given dtype and shape.
func NewArray(dtype Dtype, shape ...int) (*Array, error) {
	n := 1
	for _, s := range shape {
		if s <= 0 {
			return nil, fmt.Errorf("%w: %v", ErrBadShape, shape)
		}
		n *= s
	}
	a := &Array{
		shape:   append([]int(nil), shape...),
		strides: rowMajorStrides(shape),
		dtype:   dtype,
	}
	if dtype == Real {
		a.re = make([]float64, n)
	} else {
		a.cx = make([]complex128, n)
	}
	return a, nil
}

// NewReal allocates a zeroed real array.
func NewReal(shape ...int) (*Array, error) { return NewArray(Real, shape...) }

// NewComplex allocates a zeroed complex array.
func NewComplex(shape ...int) (*Array, error) { return NewArray(Complex, shape...) }

// MustArray is NewArray for shapes known to be valid; it panics otherwise.
func MustArray(dtype Dtype, shape ...int) *Array {
	a, err := NewArray(dtype, shape...)
	if err != nil {
		panic(err)
	}
	return a
}

// Dtype returns the scalar type of the array.
func (a *Array) Dtype() Dtype { return a.dtype }

// Ndim returns the number of axes.
func (a *Array) Ndim() int { return len(a.shape) }

// Shape returns a copy of the per-axis extents.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Extent returns the size along one axis.
func (a *Array) Extent(axis int) int { return a.shape[axis] }

// Strides returns a copy of the per-axis element strides.
func (a *Array) Strides() []int { return append([]int(nil), a.strides...) }

// Stride returns the element stride along one axis.
func (a *Array) Stride(axis int) int { return a.strides[axis] }

// Len returns the total number of elements.
func (a *Array) Len() int {
	n := 1
	for _, s := range a.shape {
		n *= s
	}
	return n
}

// Real returns the backing float64 slice; nil for complex arrays.
func (a *Array) Real() []float64 { return a.re }

// Complex returns the backing complex128 slice; nil for real arrays.
func (a *Array) Complex() []complex128 { return a.cx }

// FlatIndex converts a multi-index to a position in the backing slice.
func (a *Array) FlatIndex(ix []int) int {
	p := 0
	for i, k := range ix {
		p += k * a.strides[i]
	}
	return p
}

// At returns the element at a multi-index, widened to complex128.
func (a *Array) At(ix ...int) complex128 {
	p := a.FlatIndex(ix)
	if a.dtype == Real {
		return complex(a.re[p], 0)
	}
	return a.cx[p]
}

// Set stores a value at a multi-index. For real arrays the imaginary part is
// discarded.
func (a *Array) Set(v complex128, ix ...int) {
	p := a.FlatIndex(ix)
	if a.dtype == Real {
		a.re[p] = real(v)
		return
	}
	a.cx[p] = v
}

// Zero clears every element.
func (a *Array) Zero() {
	if a.dtype == Real {
		for i := range a.re {
			a.re[i] = 0
		}
		return
	}
	for i := range a.cx {
		a.cx[i] = 0
	}
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	b := MustArray(a.dtype, a.shape...)
	if a.dtype == Real {
		copy(b.re, a.re)
	} else {
		copy(b.cx, a.cx)
	}
	return b
}

// CopyFrom copies the contents of src, which must have the same dtype and
// total length. Shapes may differ as long as both are contiguous.
func (a *Array) CopyFrom(src *Array) error {
	if a.dtype != src.dtype {
		return fmt.Errorf("core: copy between %s and %s arrays", src.dtype, a.dtype)
	}
	if a.Len() != src.Len() {
		return fmt.Errorf("core: copy length mismatch: %d != %d", src.Len(), a.Len())
	}
	if a.dtype == Real {
		copy(a.re, src.re)
	} else {
		copy(a.cx, src.cx)
	}
	return nil
}

// SameShape reports whether the two arrays agree on every extent.
func (a *Array) SameShape(b *Array) bool {
	if len(a.shape) != len(b.shape) {
		return false
	}
	for i := range a.shape {
		if a.shape[i] != b.shape[i] {
			return false
		}
	}
	return true
}

// MaxAbsDiff returns the largest element-wise |a-b|. The arrays must agree on
// dtype and length; it is a test and diagnostics helper, not a hot path.
func (a *Array) MaxAbsDiff(b *Array) float64 {
	max := 0.0
	if a.dtype == Real {
		for i := range a.re {
			if d := abs(a.re[i] - b.re[i]); d > max {
				max = d
			}
		}
		return max
	}
	for i := range a.cx {
		if d := cabs(a.cx[i] - b.cx[i]); d > max {
			max = d
		}
	}
	return max
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func cabs(z complex128) float64 {
	return math.Hypot(real(z), imag(z))
}
