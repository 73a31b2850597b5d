// Package basis implements the per-axis 1D spectral bases consumed by the
// tensor-product pipeline.
//
// Every basis binds one axis of a multidimensional field: it knows its
// quadrature mesh, its modal coefficients, and how to move a single 1-D line
// between physical and spectral representation. The pipeline never looks
// inside a transform; it only composes the operations declared here.
//
// Key components:
//   - Basis: static metadata common to every family
//   - RealBasis / ComplexBasis / HalfComplexBasis: the three kernel shapes
//   - Fourier (complex/complex) and FourierR2C (real input, half spectrum)
//   - Chebyshev and Legendre orthogonal polynomial bases
//   - ChebyshevDirichlet: composite basis with two trailing boundary dofs
//
// All kernels operate on contiguous 1-D slices; line gather/scatter through
// array strides is the caller's concern. Padded variants evaluate the same
// truncated series on a finer quadrature mesh, so forward(backward(c)) == c
// holds with or without padding.
package basis

import (
	"errors"
	"fmt"
)

// Family tags the transform family of a basis.
type Family int

const (
	FourierFamily Family = iota
	ChebyshevFamily
	LegendreFamily
)

// String returns the lower-case family name.
func (f Family) String() string {
	switch f {
	case FourierFamily:
		return "fourier"
	case ChebyshevFamily:
		return "chebyshev"
	case LegendreFamily:
		return "legendre"
	}
	return "unknown"
}

// ErrBadSize is returned for non-positive modal sizes or padded sizes that
// truncate to nothing.
var ErrBadSize = errors.New("basis: invalid size")

// ErrBadBoundary is returned when a boundary value is not a number, an
// array, or a function of the mesh coordinates and time.
var ErrBadBoundary = errors.New("basis: unsupported boundary value type")

// Basis is the static metadata contract every 1D basis satisfies. A basis
// additionally implements exactly one of RealBasis, ComplexBasis or
// HalfComplexBasis for its kernels.
type Basis interface {
	// Len is the number of modal coefficient slots, boundary dofs included.
	Len() int
	// Dim is the number of interior degrees of freedom, honoring the
	// active coefficient range.
	Dim() int
	Family() Family
	// PhysLen is the quadrature mesh size, floor(Len*PaddingFactor).
	PhysLen() int
	// SpectralLen is the number of stored coefficients after any
	// real-to-complex reduction.
	SpectralLen() int
	// PhysComplex reports whether physical-space data is complex.
	PhysComplex() bool
	// SpectralComplex reports whether spectral-space data is complex.
	SpectralComplex() bool
	PaddingFactor() float64
	BoundaryDofs() int
	// Points returns the quadrature mesh on the physical domain.
	Points() []float64
	// Weights returns the quadrature weights matching Points.
	Weights() []float64
	// Wavenumbers returns one entry per stored coefficient slot.
	Wavenumbers() []float64
	// Slice returns the active interior coefficient range [lo, hi).
	Slice() (lo, hi int)
	// DomainMap maps a physical coordinate onto the reference domain.
	DomainMap(x float64) float64
	// Evaluate returns basis function k at a reference coordinate.
	Evaluate(x float64, k int) complex128
	// Resized returns a basis of the same family and configuration with a
	// new modal size and padding factor.
	Resized(n int, padding float64) (Basis, error)
	// ID is a structural identity used for compatibility checks.
	ID() string
}

// RealBasis transforms real lines; applied to complex data, the pipeline
// runs it over real and imaginary parts independently.
type RealBasis interface {
	Basis
	ForwardLine(phys, spec []float64)
	BackwardLine(spec, phys []float64)
	ScalarLine(phys, spec []float64)
}

// ComplexBasis transforms complex lines in both directions.
type ComplexBasis interface {
	Basis
	ForwardLine(phys, spec []complex128)
	BackwardLine(spec, phys []complex128)
	ScalarLine(phys, spec []complex128)
}

// HalfComplexBasis transforms real physical lines into a half spectrum,
// exploiting conjugate symmetry. It is the only dtype transition point a
// pipeline may contain.
type HalfComplexBasis interface {
	Basis
	ForwardLine(phys []float64, spec []complex128)
	BackwardLine(spec []complex128, phys []float64)
	ScalarLine(phys []float64, spec []complex128)
}

// WithBoundary is implemented by bases carrying trailing boundary dofs.
type WithBoundary interface {
	RealBasis
	// BoundaryValues returns the raw boundary specification, one entry per
	// boundary dof. Entries are float64, []float64, or
	// func(x []float64, t float64) float64.
	BoundaryValues() []any
	// CoefficientMatrix maps boundary dof values to coefficients of the
	// lowest orthogonal modes, one row per boundary dof.
	CoefficientMatrix() [][]float64
	// AddMassMatrix holds (phi_k, B_j) inner products, one row per affected
	// interior mode, one column per boundary dof.
	AddMassMatrix() [][]float64
	// EvaluateBoundary returns boundary mode j at a reference coordinate.
	EvaluateBoundary(x float64, j int) float64
	// ForwardLineBC is ForwardLine with explicit boundary dof values.
	ForwardLineBC(phys, spec, bc []float64)
	// HasNonhomogeneous reports whether any boundary entry can be nonzero.
	HasNonhomogeneous() bool
}

// ValidateBoundaryValue checks a single boundary specification entry.
func ValidateBoundaryValue(v any) error {
	switch v.(type) {
	case float64, int, []float64, func(x []float64, t float64) float64:
		return nil
	}
	return fmt.Errorf("%w: %T", ErrBadBoundary, v)
}

// paddedLen applies a padding factor to a modal size.
func paddedLen(n int, factor float64) int {
	return int(float64(n) * factor)
}

func checkSize(n int, padding float64) error {
	if n <= 0 {
		return fmt.Errorf("%w: n=%d", ErrBadSize, n)
	}
	if padding <= 0 {
		return fmt.Errorf("%w: padding=%g", ErrBadSize, padding)
	}
	if paddedLen(n, padding) <= 0 {
		return fmt.Errorf("%w: padded length %d truncates to nothing", ErrBadSize, paddedLen(n, padding))
	}
	return nil
}
