package basis

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-10

func randReal(rng *rand.Rand, n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = rng.NormFloat64()
	}
	return v
}

func randComplex(rng *rand.Rand, n int) []complex128 {
	v := make([]complex128, n)
	for i := range v {
		v[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	return v
}

func TestFourierRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{4, 7, 8} {
		b, err := NewFourier(n)
		require.NoError(t, err)
		spec := randComplex(rng, n)
		phys := make([]complex128, b.PhysLen())
		back := make([]complex128, n)
		b.BackwardLine(spec, phys)
		b.ForwardLine(phys, back)
		for k := range spec {
			assert.InDelta(t, real(spec[k]), real(back[k]), tol, "n=%d k=%d", n, k)
			assert.InDelta(t, imag(spec[k]), imag(back[k]), tol, "n=%d k=%d", n, k)
		}
	}
}

func TestFourierPaddedRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for _, n := range []int{6, 8, 9} {
		b, err := NewFourier(n, WithPadding(1.5))
		require.NoError(t, err)
		require.Equal(t, int(float64(n)*1.5), b.PhysLen())
		spec := randComplex(rng, n)
		phys := make([]complex128, b.PhysLen())
		back := make([]complex128, n)
		b.BackwardLine(spec, phys)
		b.ForwardLine(phys, back)
		for k := range spec {
			assert.InDelta(t, real(spec[k]), real(back[k]), tol, "n=%d k=%d", n, k)
			assert.InDelta(t, imag(spec[k]), imag(back[k]), tol, "n=%d k=%d", n, k)
		}
	}
}

func TestFourierScalarIsScaledForward(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	b, err := NewFourier(8)
	require.NoError(t, err)
	phys := randComplex(rng, b.PhysLen())
	fwd := make([]complex128, 8)
	sc := make([]complex128, 8)
	b.ForwardLine(phys, fwd)
	b.ScalarLine(phys, sc)
	for k := range fwd {
		assert.InDelta(t, 2*math.Pi*real(fwd[k]), real(sc[k]), tol)
		assert.InDelta(t, 2*math.Pi*imag(fwd[k]), imag(sc[k]), tol)
	}
}

func TestFourierR2CRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for _, tc := range []struct {
		n       int
		padding float64
	}{
		{8, 1}, {9, 1}, {8, 1.5}, {10, 1.5},
	} {
		b, err := NewFourierR2C(tc.n, WithPadding(tc.padding))
		require.NoError(t, err)
		require.Equal(t, tc.n/2+1, b.SpectralLen())
		phys := randReal(rng, b.PhysLen())
		spec := make([]complex128, b.SpectralLen())
		back := make([]float64, b.PhysLen())
		// A physical start guarantees the coefficients carry the
		// conjugate symmetry the half-spectrum assumes.
		b.ForwardLine(phys, spec)
		b.BackwardLine(spec, back)
		spec2 := make([]complex128, b.SpectralLen())
		b.ForwardLine(back, spec2)
		for k := range spec {
			assert.InDelta(t, real(spec[k]), real(spec2[k]), tol, "n=%d k=%d", tc.n, k)
			assert.InDelta(t, imag(spec[k]), imag(spec2[k]), tol, "n=%d k=%d", tc.n, k)
		}
	}
}

func TestFourierWavenumberOrder(t *testing.T) {
	b, err := NewFourier(6)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, -3, -2, -1}, b.Wavenumbers())

	r, err := NewFourierR2C(6)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2, 3}, r.Wavenumbers())
}

func TestChebyshevRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for _, padding := range []float64{1, 1.5} {
		b, err := NewChebyshev(8, WithPadding(padding))
		require.NoError(t, err)
		spec := randReal(rng, 8)
		phys := make([]float64, b.PhysLen())
		back := make([]float64, 8)
		b.BackwardLine(spec, phys)
		b.ForwardLine(phys, back)
		for k := range spec {
			assert.InDelta(t, spec[k], back[k], tol, "padding=%g k=%d", padding, k)
		}
	}
}

func TestChebyshevQuadrature(t *testing.T) {
	b, err := NewChebyshev(8)
	require.NoError(t, err)
	// Integral of the weight 1/sqrt(1-x^2) over [-1, 1] is pi.
	sum := 0.0
	for _, w := range b.Weights() {
		sum += w
	}
	assert.InDelta(t, math.Pi, sum, tol)
}

func TestLegendreRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	b, err := NewLegendre(9)
	require.NoError(t, err)
	spec := randReal(rng, 9)
	phys := make([]float64, b.PhysLen())
	back := make([]float64, 9)
	b.BackwardLine(spec, phys)
	b.ForwardLine(phys, back)
	for k := range spec {
		assert.InDelta(t, spec[k], back[k], tol, "k=%d", k)
	}
}

func TestLegendreQuadrature(t *testing.T) {
	b, err := NewLegendre(7)
	require.NoError(t, err)
	sum := 0.0
	for _, w := range b.Weights() {
		sum += w
	}
	assert.InDelta(t, 2.0, sum, tol)

	// Gauss-Legendre with m points integrates x^4 exactly for m >= 3.
	integral := 0.0
	for j, x := range b.Points() {
		integral += math.Pow(x, 4) * b.Weights()[j]
	}
	assert.InDelta(t, 2.0/5, integral, tol)
}

func TestChebyshevDirichletRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	b, err := NewChebyshevDirichlet(10)
	require.NoError(t, err)
	require.Equal(t, 2, b.BoundaryDofs())
	require.Equal(t, 8, b.Dim())

	spec := randReal(rng, 10)
	spec[8], spec[9] = 0, 0
	phys := make([]float64, b.PhysLen())
	back := make([]float64, 10)
	b.BackwardLine(spec, phys)
	b.ForwardLine(phys, back)
	for k := range spec {
		assert.InDelta(t, spec[k], back[k], tol, "k=%d", k)
	}
}

func TestChebyshevDirichletBoundaryValues(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	b, err := NewChebyshevDirichlet(10, WithBC(1.5, -0.5))
	require.NoError(t, err)
	assert.True(t, b.HasNonhomogeneous())

	spec := randReal(rng, 10)
	spec[8], spec[9] = 1.5, -0.5
	phys := make([]float64, b.PhysLen())
	b.BackwardLine(spec, phys)

	// The reconstructed series takes the boundary values at x = -1, 1.
	at := func(x float64) float64 {
		sum := 0.0
		for k := range spec {
			sum += spec[k] * real(b.Evaluate(x, k))
		}
		return sum
	}
	assert.InDelta(t, 1.5, at(-1), tol)
	assert.InDelta(t, -0.5, at(1), tol)

	// ForwardLineBC recovers both interior coefficients and boundary
	// slots from the mesh values.
	back := make([]float64, 10)
	b.ForwardLineBC(phys, back, []float64{1.5, -0.5})
	for k := range spec {
		assert.InDelta(t, spec[k], back[k], tol, "k=%d", k)
	}
}

func TestChebyshevDirichletSlice(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	b, err := NewChebyshevDirichlet(12, WithSlice(0, 6))
	require.NoError(t, err)
	assert.Equal(t, 6, b.Dim())
	lo, hi := b.Slice()
	assert.Equal(t, 0, lo)
	assert.Equal(t, 6, hi)

	phys := randReal(rng, b.PhysLen())
	spec := make([]float64, 12)
	b.ForwardLine(phys, spec)
	for k := 6; k <= 9; k++ {
		assert.Zero(t, spec[k], "k=%d", k)
	}
}

func TestBoundaryValueValidation(t *testing.T) {
	assert.NoError(t, ValidateBoundaryValue(1.0))
	assert.NoError(t, ValidateBoundaryValue(2))
	assert.NoError(t, ValidateBoundaryValue([]float64{1, 2}))
	assert.NoError(t, ValidateBoundaryValue(func(x []float64, t float64) float64 { return t }))
	assert.ErrorIs(t, ValidateBoundaryValue("no"), ErrBadBoundary)

	_, err := NewChebyshevDirichlet(8, WithBC("no", 0.0))
	assert.ErrorIs(t, err, ErrBadBoundary)
	_, err = NewChebyshevDirichlet(8, WithBC(1.0))
	assert.ErrorIs(t, err, ErrBadBoundary)
}

func TestBadSizes(t *testing.T) {
	_, err := NewFourier(0)
	assert.ErrorIs(t, err, ErrBadSize)
	_, err = NewChebyshev(4, WithPadding(-1))
	assert.ErrorIs(t, err, ErrBadSize)
	_, err = NewChebyshevDirichlet(3)
	assert.ErrorIs(t, err, ErrBadSize)
}
