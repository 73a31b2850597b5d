package space

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbl8/spectral/basis"
	"github.com/sbl8/spectral/grid"
)

func TestConvolveTrigTruncating(t *testing.T) {
	b, err := basis.NewFourierR2C(8, basis.WithPadding(1.5))
	require.NoError(t, err)
	ts, err := NewTensorProduct(nil, []basis.Basis{b})
	require.NoError(t, err)

	// cos(2x) * cos(3x) = (cos(5x) + cos(x)) / 2. Truncation to 8 modes
	// keeps only the cos(x) part; mode 5 is discarded, not aliased.
	a := ts.NewSpectralArray()
	bb := ts.NewSpectralArray()
	a.Complex()[2] = 0.5
	bb.Complex()[3] = 0.5

	out, err := Convolve(ts, a, bb, true)
	require.NoError(t, err)
	require.Equal(t, []int{5}, out.Shape())
	for k, v := range out.Complex() {
		want := complex(0, 0)
		if k == 1 {
			want = 0.25
		}
		assert.InDelta(t, real(want), real(v), tol, "mode %d", k)
		assert.InDelta(t, 0, imag(v), tol, "mode %d", k)
	}
}

func TestConvolveTrigFullSpectrum(t *testing.T) {
	b, err := basis.NewFourierR2C(8, basis.WithPadding(1.5))
	require.NoError(t, err)
	ts, err := NewTensorProduct(nil, []basis.Basis{b})
	require.NoError(t, err)

	cv, err := NewConvolver(ts, false)
	require.NoError(t, err)
	require.Equal(t, []int{7}, cv.Space().GlobalShape(true))

	a := ts.NewSpectralArray()
	bb := ts.NewSpectralArray()
	a.Complex()[2] = 0.5
	bb.Complex()[3] = 0.5

	out := cv.NewResultArray()
	require.NoError(t, cv.Convolve(a, bb, out))
	for k, v := range out.Complex() {
		want := complex(0, 0)
		if k == 1 || k == 5 {
			want = 0.25
		}
		assert.InDelta(t, real(want), real(v), tol, "mode %d", k)
		assert.InDelta(t, 0, imag(v), tol, "mode %d", k)
	}
}

func TestConvolveRequiresPadding(t *testing.T) {
	ts, err := NewTensorProduct(nil, cheb8fourier8())
	require.NoError(t, err)
	_, err = NewConvolver(ts, true)
	assert.ErrorIs(t, err, ErrBadPlan)
}

func TestConvolveDistributed(t *testing.T) {
	g, err := grid.NewGroup(2)
	require.NoError(t, err)
	err = g.Run(context.Background(), func(ctx context.Context, c *grid.Comm) error {
		ts, err := NewTensorProduct(c, cheb8fourier8(basis.WithPadding(1.5)))
		if err != nil {
			return err
		}
		// (x cos y)^2 = (T0+T2)/2 * (1 + cos 2y)/2.
		a := ts.NewSpectralArray()
		lo, _ := ts.LocalSlice(true)
		setAt := func(u []complex128, k0, k1 int, v complex128) {
			i0, i1 := k0-lo[0], k1-lo[1]
			sub := ts.Shape(true)
			if i0 < 0 || i0 >= sub[0] || i1 < 0 || i1 >= sub[1] {
				return
			}
			u[i0*sub[1]+i1] = v
		}
		setAt(a.Complex(), 1, 1, 0.5)

		out, err := Convolve(ts, a, a, true)
		if err != nil {
			return err
		}
		want := map[[2]int]float64{
			{0, 0}: 0.25, {2, 0}: 0.25,
			{0, 2}: 0.125, {2, 2}: 0.125,
		}
		out.ForEachIndex(func(ix []int, flat int) {
			k := [2]int{lo[0] + ix[0], lo[1] + ix[1]}
			v := out.Complex()[flat]
			assert.InDelta(t, want[k], real(v), tol, "mode %v", k)
			assert.InDelta(t, 0, imag(v), tol, "mode %v", k)
		})
		return nil
	})
	require.NoError(t, err)
}
