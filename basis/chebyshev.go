package basis

import (
	"fmt"
	"math"
)

// chebNodes returns the Chebyshev-Gauss points cos(pi*(2j+1)/(2m)) and the
// constant quadrature weights pi/m.
func chebNodes(m int) ([]float64, []float64) {
	points := make([]float64, m)
	weights := make([]float64, m)
	w := math.Pi / float64(m)
	for j := 0; j < m; j++ {
		points[j] = math.Cos(w * (float64(j) + 0.5))
		weights[j] = w
	}
	return points, weights
}

// chebT evaluates T_k(x) = cos(k*acos(x)) for x in [-1, 1].
func chebT(k int, x float64) float64 {
	return math.Cos(float64(k) * math.Acos(clamp1(x)))
}

func clamp1(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// Chebyshev is the orthogonal Chebyshev basis T_k on [-1, 1] with
// Chebyshev-Gauss quadrature.
type Chebyshev struct {
	n       int
	padding float64
	points  []float64
	weights []float64
	waves   []float64
	thetas  []float64
}

// NewChebyshev creates an orthogonal Chebyshev basis with n modes.
func NewChebyshev(n int, opts ...Option) (*Chebyshev, error) {
	o := applyOptions(opts)
	if err := checkSize(n, o.padding); err != nil {
		return nil, err
	}
	b := &Chebyshev{n: n, padding: o.padding}
	m := b.PhysLen()
	b.points, b.weights = chebNodes(m)
	b.thetas = make([]float64, m)
	for j := 0; j < m; j++ {
		b.thetas[j] = math.Pi * (float64(j) + 0.5) / float64(m)
	}
	b.waves = make([]float64, n)
	for k := range b.waves {
		b.waves[k] = float64(k)
	}
	return b, nil
}

func (b *Chebyshev) Len() int                { return b.n }
func (b *Chebyshev) Dim() int                { return b.n }
func (b *Chebyshev) Family() Family          { return ChebyshevFamily }
func (b *Chebyshev) PhysLen() int            { return paddedLen(b.n, b.padding) }
func (b *Chebyshev) SpectralLen() int        { return b.n }
func (b *Chebyshev) PhysComplex() bool       { return false }
func (b *Chebyshev) SpectralComplex() bool   { return false }
func (b *Chebyshev) PaddingFactor() float64  { return b.padding }
func (b *Chebyshev) BoundaryDofs() int       { return 0 }
func (b *Chebyshev) Points() []float64       { return b.points }
func (b *Chebyshev) Weights() []float64      { return b.weights }
func (b *Chebyshev) Wavenumbers() []float64  { return b.waves }
func (b *Chebyshev) Slice() (int, int)       { return 0, b.n }
func (b *Chebyshev) DomainMap(x float64) float64 { return x }

// Evaluate returns T_k at a reference coordinate.
func (b *Chebyshev) Evaluate(x float64, k int) complex128 {
	return complex(chebT(k, x), 0)
}

// Resized returns a Chebyshev basis with a new size and padding factor.
func (b *Chebyshev) Resized(n int, padding float64) (Basis, error) {
	return NewChebyshev(n, WithPadding(padding))
}

// ID identifies the basis configuration for compatibility checks.
func (b *Chebyshev) ID() string {
	return fmt.Sprintf("chebyshev(n=%d,padding=%g)", b.n, b.padding)
}

// ScalarLine computes the quadrature-weighted projections (f, T_k)_w.
func (b *Chebyshev) ScalarLine(phys, spec []float64) {
	scalarCheb(phys, spec, b.thetas, b.weights)
}

// scalarCheb projects mesh values onto cos(k*theta_j) with weights.
func scalarCheb(phys, spec, thetas, weights []float64) {
	for k := range spec {
		sum := 0.0
		kk := float64(k)
		for j, f := range phys {
			sum += f * math.Cos(kk*thetas[j]) * weights[j]
		}
		spec[k] = sum
	}
}

// ForwardLine projects and scales by the inverse diagonal mass (pi for k=0,
// pi/2 otherwise).
func (b *Chebyshev) ForwardLine(phys, spec []float64) {
	b.ScalarLine(phys, spec)
	spec[0] /= math.Pi
	for k := 1; k < len(spec); k++ {
		spec[k] /= math.Pi / 2
	}
}

// BackwardLine evaluates the truncated Chebyshev series on the mesh.
func (b *Chebyshev) BackwardLine(spec, phys []float64) {
	for j := range phys {
		sum := 0.0
		th := b.thetas[j]
		for k, c := range spec {
			sum += c * math.Cos(float64(k)*th)
		}
		phys[j] = sum
	}
}

// ChebyshevDirichlet is the composite basis phi_k = T_k - T_{k+2} vanishing
// at both endpoints, with two trailing slots reserved for the boundary dofs.
// Slot n-2 carries the value at x=-1 and slot n-1 the value at x=+1.
type ChebyshevDirichlet struct {
	n       int
	padding float64
	points  []float64
	weights []float64
	waves   []float64
	thetas  []float64
	bc      []any
	sliceLo int
	sliceHi int

	// Scratch for the forward mass solve; transforms sharing one basis
	// instance must be serialized by the caller.
	scratch []float64
}

// NewChebyshevDirichlet creates a Dirichlet composite basis with n slots,
// of which the last two hold boundary values.
func NewChebyshevDirichlet(n int, opts ...Option) (*ChebyshevDirichlet, error) {
	o := applyOptions(opts)
	if err := checkSize(n, o.padding); err != nil {
		return nil, err
	}
	if n < 4 {
		return nil, fmt.Errorf("%w: dirichlet basis needs n >= 4, got %d", ErrBadSize, n)
	}
	bc := o.bc
	if !o.hasBC {
		bc = []any{0.0, 0.0}
	}
	if len(bc) != 2 {
		return nil, fmt.Errorf("%w: dirichlet basis takes 2 boundary values, got %d", ErrBadBoundary, len(bc))
	}
	for _, v := range bc {
		if err := ValidateBoundaryValue(v); err != nil {
			return nil, err
		}
	}
	lo, hi := 0, n-2
	if o.sliced {
		if o.sliceLo < 0 || o.sliceHi > n-2 || o.sliceLo >= o.sliceHi {
			return nil, fmt.Errorf("%w: coefficient range [%d,%d)", ErrBadSize, o.sliceLo, o.sliceHi)
		}
		lo, hi = o.sliceLo, o.sliceHi
	}
	b := &ChebyshevDirichlet{
		n: n, padding: o.padding, bc: bc,
		sliceLo: lo, sliceHi: hi,
	}
	m := b.PhysLen()
	b.points, b.weights = chebNodes(m)
	b.thetas = make([]float64, m)
	for j := 0; j < m; j++ {
		b.thetas[j] = math.Pi * (float64(j) + 0.5) / float64(m)
	}
	b.waves = make([]float64, n)
	for k := range b.waves {
		b.waves[k] = float64(k)
	}
	b.scratch = make([]float64, n)
	return b, nil
}

func (b *ChebyshevDirichlet) Len() int                { return b.n }
func (b *ChebyshevDirichlet) Dim() int                { return b.sliceHi - b.sliceLo }
func (b *ChebyshevDirichlet) Family() Family          { return ChebyshevFamily }
func (b *ChebyshevDirichlet) PhysLen() int            { return paddedLen(b.n, b.padding) }
func (b *ChebyshevDirichlet) SpectralLen() int        { return b.n }
func (b *ChebyshevDirichlet) PhysComplex() bool       { return false }
func (b *ChebyshevDirichlet) SpectralComplex() bool   { return false }
func (b *ChebyshevDirichlet) PaddingFactor() float64  { return b.padding }
func (b *ChebyshevDirichlet) BoundaryDofs() int       { return 2 }
func (b *ChebyshevDirichlet) Points() []float64       { return b.points }
func (b *ChebyshevDirichlet) Weights() []float64      { return b.weights }
func (b *ChebyshevDirichlet) Wavenumbers() []float64  { return b.waves }
func (b *ChebyshevDirichlet) Slice() (int, int)       { return b.sliceLo, b.sliceHi }
func (b *ChebyshevDirichlet) DomainMap(x float64) float64 { return x }

// BoundaryValues returns the raw boundary specification.
func (b *ChebyshevDirichlet) BoundaryValues() []any { return b.bc }

// CoefficientMatrix maps the two boundary values onto (T_0, T_1)
// coefficients: B_0 = (T_0 - T_1)/2 and B_1 = (T_0 + T_1)/2.
func (b *ChebyshevDirichlet) CoefficientMatrix() [][]float64 {
	return [][]float64{{0.5, -0.5}, {0.5, 0.5}}
}

// AddMassMatrix holds (phi_k, B_j)_w for the two affected interior modes.
func (b *ChebyshevDirichlet) AddMassMatrix() [][]float64 {
	return [][]float64{
		{math.Pi / 2, math.Pi / 2},
		{-math.Pi / 4, math.Pi / 4},
	}
}

// EvaluateBoundary returns boundary mode j at a reference coordinate.
func (b *ChebyshevDirichlet) EvaluateBoundary(x float64, j int) float64 {
	if j == 0 {
		return (1 - x) / 2
	}
	return (1 + x) / 2
}

// HasNonhomogeneous reports whether any boundary entry can be nonzero.
func (b *ChebyshevDirichlet) HasNonhomogeneous() bool {
	for _, v := range b.bc {
		switch t := v.(type) {
		case float64:
			if t != 0 {
				return true
			}
		case int:
			if t != 0 {
				return true
			}
		case []float64:
			for _, x := range t {
				if x != 0 {
					return true
				}
			}
		default:
			// Functions are assumed nonhomogeneous.
			return true
		}
	}
	return false
}

// Evaluate returns composite mode k (or a boundary mode for the trailing
// slots) at a reference coordinate.
func (b *ChebyshevDirichlet) Evaluate(x float64, k int) complex128 {
	if k >= b.n-2 {
		return complex(b.EvaluateBoundary(x, k-(b.n-2)), 0)
	}
	return complex(chebT(k, x)-chebT(k+2, x), 0)
}

// Resized returns a Dirichlet basis with the same boundary specification
// and a new size and padding factor.
func (b *ChebyshevDirichlet) Resized(n int, padding float64) (Basis, error) {
	return NewChebyshevDirichlet(n, WithPadding(padding), WithBC(b.bc...))
}

// ID identifies the basis configuration for compatibility checks.
func (b *ChebyshevDirichlet) ID() string {
	return fmt.Sprintf("chebyshev-dirichlet(n=%d,padding=%g,range=[%d,%d))",
		b.n, b.padding, b.sliceLo, b.sliceHi)
}

// ScalarLine computes (f, phi_k)_w for the interior modes; the boundary
// slots are left zero.
func (b *ChebyshevDirichlet) ScalarLine(phys, spec []float64) {
	t := b.scratch
	scalarCheb(phys, t, b.thetas, b.weights)
	for k := 0; k <= b.n-3; k++ {
		spec[k] = t[k] - t[k+2]
	}
	spec[b.n-2] = 0
	spec[b.n-1] = 0
}

// ForwardLine is ForwardLineBC with homogeneous boundary values.
func (b *ChebyshevDirichlet) ForwardLine(phys, spec []float64) {
	b.ForwardLineBC(phys, spec, nil)
}

// ForwardLineBC projects onto the composite test functions, removes the
// boundary-mode mass contribution, solves the pentadiagonal (stride-2
// tridiagonal) mass system for the interior coefficients, and writes the
// boundary values into the trailing slots.
func (b *ChebyshevDirichlet) ForwardLineBC(phys, spec, bc []float64) {
	b.ScalarLine(phys, spec)
	if bc != nil {
		am := b.AddMassMatrix()
		for k := range am {
			for j, w := range am[k] {
				spec[k] -= w * bc[j]
			}
		}
	}
	b.solveMass(spec)
	for k := 0; k < b.sliceLo; k++ {
		spec[k] = 0
	}
	for k := b.sliceHi; k <= b.n-3; k++ {
		spec[k] = 0
	}
	if bc != nil {
		spec[b.n-2], spec[b.n-1] = bc[0], bc[1]
	} else {
		spec[b.n-2], spec[b.n-1] = 0, 0
	}
}

// solveMass solves (phi_k, phi_l) c = s in place over the interior slots.
// The matrix splits into independent even and odd tridiagonal chains with
// diagonal pi/2*(c_k+1) and off-diagonal -pi/2.
func (b *ChebyshevDirichlet) solveMass(s []float64) {
	ni := b.n - 2
	off := -math.Pi / 2
	for parity := 0; parity < 2; parity++ {
		// Chain indices parity, parity+2, ...
		cnt := (ni - parity + 1) / 2
		if cnt <= 0 {
			continue
		}
		// Thomas elimination with scratch storage for modified
		// coefficients; scratch aliases the basis work buffer.
		cp := b.scratch[:cnt]
		d0 := b.diag(parity)
		cp[0] = off / d0
		s[parity] /= d0
		for i := 1; i < cnt; i++ {
			k := parity + 2*i
			den := b.diag(k) - off*cp[i-1]
			if i < cnt-1 {
				cp[i] = off / den
			}
			s[k] = (s[k] - off*s[parity+2*(i-1)]) / den
		}
		for i := cnt - 2; i >= 0; i-- {
			k := parity + 2*i
			s[k] -= cp[i] * s[k+2]
		}
	}
}

func (b *ChebyshevDirichlet) diag(k int) float64 {
	ck := 1.0
	if k == 0 {
		ck = 2
	}
	return math.Pi / 2 * (ck + 1)
}

// BackwardLine maps composite plus boundary coefficients to orthogonal
// Chebyshev coefficients and evaluates the series on the mesh.
func (b *ChebyshevDirichlet) BackwardLine(spec, phys []float64) {
	d := b.scratch
	for k := range d {
		d[k] = 0
	}
	for k := 0; k <= b.n-3; k++ {
		d[k] += spec[k]
		d[k+2] -= spec[k]
	}
	lo, hi := spec[b.n-2], spec[b.n-1]
	d[0] += 0.5 * (lo + hi)
	d[1] += 0.5 * (hi - lo)
	for j := range phys {
		sum := 0.0
		th := b.thetas[j]
		for k, c := range d {
			sum += c * math.Cos(float64(k)*th)
		}
		phys[j] = sum
	}
}
