package basis

import (
	"fmt"
	"math"
)

// Fourier is the complex/complex exponential basis exp(ikx) on [0, 2pi).
// Coefficients are stored in FFT order: nonnegative wavenumbers first, then
// the negative ones; for even n the single Nyquist slot carries k = -n/2.
type Fourier struct {
	n       int
	padding float64
	points  []float64
	weights []float64
	waves   []float64
}

// NewFourier creates a complex Fourier basis with n modes.
func NewFourier(n int, opts ...Option) (*Fourier, error) {
	o := applyOptions(opts)
	if err := checkSize(n, o.padding); err != nil {
		return nil, err
	}
	b := &Fourier{n: n, padding: o.padding}
	m := b.PhysLen()
	b.points, b.weights = uniformMesh(m)
	b.waves = fftWavenumbers(n)
	return b, nil
}

func uniformMesh(m int) ([]float64, []float64) {
	points := make([]float64, m)
	weights := make([]float64, m)
	w := 2 * math.Pi / float64(m)
	for j := range points {
		points[j] = w * float64(j)
		weights[j] = w
	}
	return points, weights
}

// fftWavenumbers returns wavenumbers in FFT order for n modes.
func fftWavenumbers(n int) []float64 {
	k := make([]float64, n)
	half := (n + 1) / 2
	for i := 0; i < half; i++ {
		k[i] = float64(i)
	}
	for i := half; i < n; i++ {
		k[i] = float64(i - n)
	}
	return k
}

func (b *Fourier) Len() int                { return b.n }
func (b *Fourier) Dim() int                { return b.n }
func (b *Fourier) Family() Family          { return FourierFamily }
func (b *Fourier) PhysLen() int            { return paddedLen(b.n, b.padding) }
func (b *Fourier) SpectralLen() int        { return b.n }
func (b *Fourier) PhysComplex() bool       { return true }
func (b *Fourier) SpectralComplex() bool   { return true }
func (b *Fourier) PaddingFactor() float64  { return b.padding }
func (b *Fourier) BoundaryDofs() int       { return 0 }
func (b *Fourier) Points() []float64       { return b.points }
func (b *Fourier) Weights() []float64      { return b.weights }
func (b *Fourier) Wavenumbers() []float64  { return b.waves }
func (b *Fourier) Slice() (int, int)       { return 0, b.n }
func (b *Fourier) DomainMap(x float64) float64 { return x }

// NyquistIndex returns the slot holding the Nyquist mode, or -1.
func (b *Fourier) NyquistIndex() int {
	if b.n%2 == 0 {
		return b.n / 2
	}
	return -1
}

// Evaluate returns exp(i*k*x) for coefficient slot k.
func (b *Fourier) Evaluate(x float64, k int) complex128 {
	return expi(b.waves[k] * x)
}

// Resized returns a Fourier basis with a new size and padding factor.
func (b *Fourier) Resized(n int, padding float64) (Basis, error) {
	return NewFourier(n, WithPadding(padding))
}

// ID identifies the basis configuration for compatibility checks.
func (b *Fourier) ID() string {
	return fmt.Sprintf("fourier(n=%d,padding=%g)", b.n, b.padding)
}

func expi(t float64) complex128 {
	s, c := math.Sincos(t)
	return complex(c, s)
}

// nyquistSplit reports whether the Nyquist mode must be evaluated as a
// cosine: on a padded mesh exp(+i n/2 x) and exp(-i n/2 x) are no longer
// identical at the quadrature points, so the single stored coefficient is
// shared between them.
func (b *Fourier) nyquistSplit() bool {
	return b.n%2 == 0 && b.PhysLen() > b.n
}

// BackwardLine evaluates the truncated series on the quadrature mesh.
func (b *Fourier) BackwardLine(spec, phys []complex128) {
	split := b.nyquistSplit()
	nyq := b.NyquistIndex()
	for j := range phys {
		x := b.points[j]
		var sum complex128
		for k, c := range spec {
			if split && k == nyq {
				sum += c * complex(math.Cos(b.waves[k]*x), 0)
				continue
			}
			sum += c * expi(b.waves[k]*x)
		}
		phys[j] = sum
	}
}

// ForwardLine projects mesh values onto the modal coefficients. With
// padding the extra modes of the fine mesh are discarded (dealiasing).
func (b *Fourier) ForwardLine(phys, spec []complex128) {
	m := len(phys)
	inv := 1 / float64(m)
	split := b.nyquistSplit()
	nyq := b.NyquistIndex()
	for k := range spec {
		var sum complex128
		if split && k == nyq {
			for j, f := range phys {
				sum += f * complex(2*math.Cos(b.waves[k]*b.points[j]), 0)
			}
		} else {
			for j, f := range phys {
				sum += f * expi(-b.waves[k]*b.points[j])
			}
		}
		spec[k] = sum * complex(inv, 0)
	}
}

// ScalarLine is the quadrature-weighted projection, 2*pi times ForwardLine.
func (b *Fourier) ScalarLine(phys, spec []complex128) {
	b.ForwardLine(phys, spec)
	for k := range spec {
		spec[k] *= complex(2*math.Pi, 0)
	}
}

// FourierR2C is the Fourier basis for real-valued fields. Conjugate symmetry
// halves the stored spectrum to wavenumbers 0..n/2; it is the pipeline's only
// real-to-complex dtype transition.
type FourierR2C struct {
	n       int
	padding float64
	points  []float64
	weights []float64
	waves   []float64
}

// NewFourierR2C creates a real-input Fourier basis with n physical modes.
func NewFourierR2C(n int, opts ...Option) (*FourierR2C, error) {
	o := applyOptions(opts)
	if err := checkSize(n, o.padding); err != nil {
		return nil, err
	}
	b := &FourierR2C{n: n, padding: o.padding}
	b.points, b.weights = uniformMesh(b.PhysLen())
	b.waves = make([]float64, n/2+1)
	for i := range b.waves {
		b.waves[i] = float64(i)
	}
	return b, nil
}

func (b *FourierR2C) Len() int               { return b.n }
func (b *FourierR2C) Dim() int               { return b.n/2 + 1 }
func (b *FourierR2C) Family() Family         { return FourierFamily }
func (b *FourierR2C) PhysLen() int           { return paddedLen(b.n, b.padding) }
func (b *FourierR2C) SpectralLen() int       { return b.n/2 + 1 }
func (b *FourierR2C) PhysComplex() bool      { return false }
func (b *FourierR2C) SpectralComplex() bool  { return true }
func (b *FourierR2C) PaddingFactor() float64 { return b.padding }
func (b *FourierR2C) BoundaryDofs() int      { return 0 }
func (b *FourierR2C) Points() []float64      { return b.points }
func (b *FourierR2C) Weights() []float64     { return b.weights }
func (b *FourierR2C) Wavenumbers() []float64 { return b.waves }
func (b *FourierR2C) Slice() (int, int)      { return 0, b.n/2 + 1 }
func (b *FourierR2C) DomainMap(x float64) float64 { return x }

// NyquistIndex returns the slot holding the Nyquist mode, or -1.
func (b *FourierR2C) NyquistIndex() int {
	if b.n%2 == 0 {
		return b.n / 2
	}
	return -1
}

// LastConjIndex returns the index just past the slots whose conjugate
// counterpart is implicit: doubling applies to slots 1..LastConjIndex-1.
func (b *FourierR2C) LastConjIndex() int {
	m := b.n/2 + 1
	if b.n%2 == 0 {
		return m - 1
	}
	return m
}

// Evaluate returns exp(i*k*x) for stored slot k.
func (b *FourierR2C) Evaluate(x float64, k int) complex128 {
	return expi(b.waves[k] * x)
}

// Resized returns an r2c basis with a new size and padding factor.
func (b *FourierR2C) Resized(n int, padding float64) (Basis, error) {
	return NewFourierR2C(n, WithPadding(padding))
}

// ID identifies the basis configuration for compatibility checks.
func (b *FourierR2C) ID() string {
	return fmt.Sprintf("fourier-r2c(n=%d,padding=%g)", b.n, b.padding)
}

func (b *FourierR2C) nyquistSplit() bool {
	return b.n%2 == 0 && b.PhysLen() > b.n
}

// BackwardLine evaluates the half spectrum plus its implicit conjugates.
func (b *FourierR2C) BackwardLine(spec []complex128, phys []float64) {
	nyq := b.NyquistIndex()
	split := b.nyquistSplit()
	for j := range phys {
		x := b.points[j]
		sum := real(spec[0])
		for k := 1; k < len(spec); k++ {
			if k == nyq {
				if split {
					sum += real(spec[k]) * math.Cos(b.waves[k]*x)
				} else {
					e := expi(b.waves[k] * x)
					sum += real(spec[k])*real(e) - imag(spec[k])*imag(e)
				}
				continue
			}
			e := expi(b.waves[k] * x)
			sum += 2 * (real(spec[k])*real(e) - imag(spec[k])*imag(e))
		}
		phys[j] = sum
	}
}

// ForwardLine projects real mesh values onto the half spectrum.
func (b *FourierR2C) ForwardLine(phys []float64, spec []complex128) {
	m := len(phys)
	inv := 1 / float64(m)
	nyq := b.NyquistIndex()
	split := b.nyquistSplit()
	for k := range spec {
		var sum complex128
		if split && k == nyq {
			var s float64
			for j, f := range phys {
				s += f * 2 * math.Cos(b.waves[k]*b.points[j])
			}
			sum = complex(s, 0)
		} else {
			for j, f := range phys {
				sum += complex(f, 0) * expi(-b.waves[k]*b.points[j])
			}
		}
		spec[k] = sum * complex(inv, 0)
	}
}

// ScalarLine is the quadrature-weighted projection, 2*pi times ForwardLine.
func (b *FourierR2C) ScalarLine(phys []float64, spec []complex128) {
	b.ForwardLine(phys, spec)
	for k := range spec {
		spec[k] *= complex(2*math.Pi, 0)
	}
}
