package space

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbl8/spectral/basis"
)

func TestVectorSpace(t *testing.T) {
	ts, err := NewTensorProduct(nil, cheb8fourier8())
	require.NoError(t, err)

	v, err := Vector(ts)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Dims())
	assert.Len(t, v.Flatten(), 2)
	assert.Equal(t, 2*ts.Dim(), v.Dim())

	// Components transform independently.
	u := NewPhysicalMulti(v)
	uh := NewSpectralMulti(v)
	back := NewPhysicalMulti(v)
	sampleField(ts, u.Part(0), poly2sin)
	sampleField(ts, u.Part(1), func(x []float64) float64 {
		return x[0] * math.Cos(x[1])
	})
	require.NoError(t, v.Forward(u, uh))
	require.NoError(t, v.Backward(uh, back))
	for i := 0; i < u.Len(); i++ {
		assert.Less(t, u.Part(i).MaxAbsDiff(back.Part(i)), tol, "component %d", i)
	}
}

func TestVectorCurvilinear(t *testing.T) {
	ts, err := NewTensorProduct(nil, cheb8fourier8(),
		WithCoordinates(Coordinates{Curvilinear: true, Names: []string{"r", "theta"}}))
	require.NoError(t, err)
	_, err = Vector(ts)
	assert.ErrorIs(t, err, ErrBadPlan)
}

func TestMixedSpace(t *testing.T) {
	scalar, err := NewTensorProduct(nil, cheb8fourier8())
	require.NoError(t, err)
	other, err := NewTensorProduct(nil, dirichletFourier())
	require.NoError(t, err)

	vec, err := Vector(scalar)
	require.NoError(t, err)
	m, err := Mixed(Leaf{T: other}, vec)
	require.NoError(t, err)

	assert.Len(t, m.Flatten(), 3)
	assert.Equal(t, other.Dim()+2*scalar.Dim(), m.Dim())
	assert.Empty(t, cmp.Diff([][]int{{10, 5}, {8, 5}, {8, 5}}, m.SpectralShapes()))
	assert.Len(t, m.Members(), 2)

	_, err = Mixed()
	assert.ErrorIs(t, err, ErrBadPlan)

	b0, err := basis.NewFourierR2C(8)
	require.NoError(t, err)
	oneD, err := NewTensorProduct(nil, []basis.Basis{b0})
	require.NoError(t, err)
	_, err = Mixed(Leaf{T: scalar}, Leaf{T: oneD})
	assert.ErrorIs(t, err, ErrBadPlan)
}

func TestMultiArrayPartMismatch(t *testing.T) {
	ts, err := NewTensorProduct(nil, cheb8fourier8())
	require.NoError(t, err)
	v, err := Vector(ts)
	require.NoError(t, err)

	u := NewPhysicalMulti(v)
	short := &MultiArray{parts: u.parts[:1]}
	uh := NewSpectralMulti(v)
	assert.ErrorIs(t, v.Forward(short, uh), ErrBadInput)
}
