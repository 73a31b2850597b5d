package basis

import (
	"fmt"
	"math"
)

// legendreP evaluates P_n(x) and its derivative by the three-term
// recurrence.
func legendreP(n int, x float64) (p, dp float64) {
	if n == 0 {
		return 1, 0
	}
	pm, pc := 1.0, x
	for k := 2; k <= n; k++ {
		pm, pc = pc, ((2*float64(k)-1)*x*pc-(float64(k)-1)*pm)/float64(k)
	}
	dp = float64(n) * (x*pc - pm) / (x*x - 1)
	return pc, dp
}

// legendreNodes returns the Gauss-Legendre points and weights for m nodes,
// found by Newton iteration from the Chebyshev initial guess.
func legendreNodes(m int) ([]float64, []float64) {
	points := make([]float64, m)
	weights := make([]float64, m)
	for i := 0; i < m; i++ {
		x := math.Cos(math.Pi * (4*float64(i) + 3) / (4*float64(m) + 2))
		var dp float64
		for it := 0; it < 100; it++ {
			p, d := legendreP(m, x)
			dp = d
			dx := p / d
			x -= dx
			if math.Abs(dx) < 1e-15 {
				break
			}
		}
		points[i] = x
		weights[i] = 2 / ((1 - x*x) * dp * dp)
	}
	return points, weights
}

// Legendre is the orthogonal Legendre basis P_k on [-1, 1] with
// Gauss-Legendre quadrature.
type Legendre struct {
	n       int
	padding float64
	points  []float64
	weights []float64
	waves   []float64
}

// NewLegendre creates an orthogonal Legendre basis with n modes.
func NewLegendre(n int, opts ...Option) (*Legendre, error) {
	o := applyOptions(opts)
	if err := checkSize(n, o.padding); err != nil {
		return nil, err
	}
	b := &Legendre{n: n, padding: o.padding}
	b.points, b.weights = legendreNodes(b.PhysLen())
	b.waves = make([]float64, n)
	for k := range b.waves {
		b.waves[k] = float64(k)
	}
	return b, nil
}

func (b *Legendre) Len() int                { return b.n }
func (b *Legendre) Dim() int                { return b.n }
func (b *Legendre) Family() Family          { return LegendreFamily }
func (b *Legendre) PhysLen() int            { return paddedLen(b.n, b.padding) }
func (b *Legendre) SpectralLen() int        { return b.n }
func (b *Legendre) PhysComplex() bool       { return false }
func (b *Legendre) SpectralComplex() bool   { return false }
func (b *Legendre) PaddingFactor() float64  { return b.padding }
func (b *Legendre) BoundaryDofs() int       { return 0 }
func (b *Legendre) Points() []float64       { return b.points }
func (b *Legendre) Weights() []float64      { return b.weights }
func (b *Legendre) Wavenumbers() []float64  { return b.waves }
func (b *Legendre) Slice() (int, int)       { return 0, b.n }
func (b *Legendre) DomainMap(x float64) float64 { return x }

// Evaluate returns P_k at a reference coordinate.
func (b *Legendre) Evaluate(x float64, k int) complex128 {
	p, _ := legendreP(k, x)
	return complex(p, 0)
}

// Resized returns a Legendre basis with a new size and padding factor.
func (b *Legendre) Resized(n int, padding float64) (Basis, error) {
	return NewLegendre(n, WithPadding(padding))
}

// ID identifies the basis configuration for compatibility checks.
func (b *Legendre) ID() string {
	return fmt.Sprintf("legendre(n=%d,padding=%g)", b.n, b.padding)
}

// ScalarLine computes the quadrature-weighted projections (f, P_k)_w.
func (b *Legendre) ScalarLine(phys, spec []float64) {
	for k := range spec {
		spec[k] = 0
	}
	// Run the Legendre recurrence per mesh point so every mode sees the
	// point in one pass.
	for j, f := range phys {
		x := b.points[j]
		fw := f * b.weights[j]
		pm, pc := 1.0, x
		spec[0] += fw
		if len(spec) > 1 {
			spec[1] += fw * x
		}
		for k := 2; k < len(spec); k++ {
			pm, pc = pc, ((2*float64(k)-1)*x*pc-(float64(k)-1)*pm)/float64(k)
			spec[k] += fw * pc
		}
	}
}

// ForwardLine projects and scales by the inverse diagonal mass
// 2/(2k+1).
func (b *Legendre) ForwardLine(phys, spec []float64) {
	b.ScalarLine(phys, spec)
	for k := range spec {
		spec[k] *= (2*float64(k) + 1) / 2
	}
}

// BackwardLine evaluates the truncated Legendre series on the mesh.
func (b *Legendre) BackwardLine(spec, phys []float64) {
	for j := range phys {
		x := b.points[j]
		sum := spec[0]
		pm, pc := 1.0, x
		if len(spec) > 1 {
			sum += spec[1] * x
		}
		for k := 2; k < len(spec); k++ {
			pm, pc = pc, ((2*float64(k)-1)*x*pc-(float64(k)-1)*pm)/float64(k)
			sum += spec[k] * pc
		}
		phys[j] = sum
	}
}
