package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArrayValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		dtype   Dtype
		shape   []int
		wantErr bool
	}{
		{name: "real 2d", dtype: Real, shape: []int{3, 4}},
		{name: "complex 1d", dtype: Complex, shape: []int{5}},
		{name: "zero extent", dtype: Real, shape: []int{3, 0}, wantErr: true},
		{name: "negative extent", dtype: Complex, shape: []int{-1}, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, err := NewArray(tt.dtype, tt.shape...)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadShape)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dtype, a.Dtype())
			assert.Empty(t, cmp.Diff(tt.shape, a.Shape()))
		})
	}
}

func TestStridesRowMajor(t *testing.T) {
	t.Parallel()
	a := MustArray(Real, 2, 3, 4)
	assert.Equal(t, []int{12, 4, 1}, a.Strides())
	assert.Equal(t, 24, a.Len())
	assert.Equal(t, 1*12+2*4+3, a.FlatIndex([]int{1, 2, 3}))
}

func TestAtSetClone(t *testing.T) {
	t.Parallel()
	a := MustArray(Complex, 2, 3)
	a.Set(complex(1, -2), 1, 2)
	assert.Equal(t, complex(1, -2), a.At(1, 2))

	b := a.Clone()
	assert.Zero(t, a.MaxAbsDiff(b))
	b.Set(7, 0, 0)
	assert.Equal(t, complex(0, 0), a.At(0, 0))

	r := MustArray(Real, 2, 2)
	r.Set(3, 1, 1)
	assert.Equal(t, complex(3, 0), r.At(1, 1))

	a.Zero()
	for _, z := range a.Complex() {
		assert.Zero(t, z)
	}
}

func TestCopyFromMismatch(t *testing.T) {
	t.Parallel()
	a := MustArray(Real, 2, 3)
	b := MustArray(Real, 2, 4)
	assert.Error(t, a.CopyFrom(b))
	c := MustArray(Complex, 2, 3)
	assert.Error(t, a.CopyFrom(c))

	// Same length, different shape: reshaping copies are allowed.
	resh := MustArray(Real, 3, 2)
	require.NoError(t, a.CopyFrom(resh))

	d := MustArray(Real, 2, 3)
	for i := range d.Real() {
		d.Real()[i] = float64(i)
	}
	require.NoError(t, a.CopyFrom(d))
	assert.Zero(t, a.MaxAbsDiff(d))
}

func TestForEachIndexOrder(t *testing.T) {
	t.Parallel()
	a := MustArray(Real, 2, 3)
	var ixs [][]int
	var flats []int
	a.ForEachIndex(func(ix []int, flat int) {
		ixs = append(ixs, append([]int(nil), ix...))
		flats = append(flats, flat)
	})
	assert.Empty(t, cmp.Diff([][]int{
		{0, 0}, {0, 1}, {0, 2},
		{1, 0}, {1, 1}, {1, 2},
	}, ixs))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, flats)
}

func TestLineGatherScatter(t *testing.T) {
	t.Parallel()
	a := MustArray(Real, 3, 4)
	for i := range a.Real() {
		a.Real()[i] = float64(i)
	}
	out := MustArray(Real, 3, 4)

	var lineCount int
	buf := make([]float64, 3)
	ForEachLine(0, func(lines []Line) {
		lineCount++
		a.GatherReal(lines[0], buf)
		out.ScatterReal(lines[1], buf)
	}, a, out)
	assert.Equal(t, 4, lineCount)
	assert.Zero(t, a.MaxAbsDiff(out))

	// A gathered line along axis 0 strides by the row length.
	a.GatherReal(Line{Base: 1, Stride: 4, N: 3}, buf)
	assert.Equal(t, []float64{1, 5, 9}, buf)
}

func TestLinePartsRoundTrip(t *testing.T) {
	t.Parallel()
	a := MustArray(Complex, 2, 3)
	for i := range a.Complex() {
		a.Complex()[i] = complex(float64(i), -float64(i))
	}
	re := make([]float64, 3)
	im := make([]float64, 3)
	out := MustArray(Complex, 2, 3)
	ForEachLine(1, func(lines []Line) {
		a.GatherRealPart(lines[0], re)
		a.GatherImagPart(lines[0], im)
		out.ScatterParts(lines[1], re, im)
	}, a, out)
	assert.Zero(t, a.MaxAbsDiff(out))
}

func TestPackUnpackBlocks(t *testing.T) {
	t.Parallel()
	a := MustArray(Complex, 4, 4)
	for i := range a.Complex() {
		a.Complex()[i] = complex(float64(i), 0)
	}
	lo, hi := []int{1, 2}, []int{3, 4}
	n := BlockLen(lo, hi)
	require.Equal(t, 4, n)

	buf := make([]complex128, n)
	assert.Equal(t, n, a.PackBlockComplex(lo, hi, buf))
	assert.Equal(t, []complex128{6, 7, 10, 11}, buf)

	b := MustArray(Complex, 4, 4)
	assert.Equal(t, n, b.UnpackBlockComplex(lo, hi, buf))
	assert.Equal(t, complex(6, 0), b.At(1, 2))
	assert.Equal(t, complex(11, 0), b.At(2, 3))
	assert.Equal(t, complex(0, 0), b.At(0, 0))

	r := MustArray(Real, 4, 4)
	for i := range r.Real() {
		r.Real()[i] = float64(i)
	}
	rbuf := make([]float64, n)
	assert.Equal(t, n, r.PackBlockReal(lo, hi, rbuf))
	assert.Equal(t, []float64{6, 7, 10, 11}, rbuf)
	r2 := MustArray(Real, 4, 4)
	assert.Equal(t, n, r2.UnpackBlockReal(lo, hi, rbuf))
	assert.Equal(t, complex(10, 0), r2.At(2, 2))
}

func TestDtypeString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "real", Real.String())
	assert.Equal(t, "complex", Complex.String())
}
