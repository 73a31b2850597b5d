package space

import (
	"fmt"

	"github.com/sbl8/spectral/basis"
	"github.com/sbl8/spectral/core"
	"github.com/sbl8/spectral/grid"
	"github.com/sbl8/spectral/pencil"
)

// Comm returns the communicator the space runs over.
func (t *TensorProduct) Comm() *grid.Comm { return t.comm }

// Basis returns the 1D basis bound to axis i.
func (t *TensorProduct) Basis(i int) basis.Basis { return t.bases[i] }

// AllBases returns the per-axis bases in input order.
func (t *TensorProduct) AllBases() []basis.Basis {
	return append([]basis.Basis(nil), t.bases...)
}

// Coordinates returns the coordinate-system metadata.
func (t *TensorProduct) Coordinates() Coordinates { return t.coords }

// Dims returns the spatial dimensionality.
func (t *TensorProduct) Dims() int { return len(t.bases) }

// Dim returns the number of interior degrees of freedom, the product of
// the per-axis active coefficient counts.
func (t *TensorProduct) Dim() int {
	d := 1
	for _, b := range t.bases {
		d *= b.Dim()
	}
	return d
}

// GlobalShape returns the per-axis global extents of the physical or the
// spectral representation.
func (t *TensorProduct) GlobalShape(spectral bool) []int {
	out := make([]int, len(t.bases))
	for i, b := range t.bases {
		if spectral {
			out[i] = b.SpectralLen()
		} else {
			out[i] = b.PhysLen()
		}
	}
	return out
}

// Size returns the product of the global extents.
func (t *TensorProduct) Size(spectral bool) int {
	n := 1
	for _, e := range t.GlobalShape(spectral) {
		n *= e
	}
	return n
}

// Shape returns the local extents on this rank.
func (t *TensorProduct) Shape(spectral bool) []int {
	if spectral {
		return t.specPen.Subshape()
	}
	return t.physPen.Subshape()
}

// LocalSlice returns this rank's [lo, hi) range per axis.
func (t *TensorProduct) LocalSlice(spectral bool) (lo, hi []int) {
	p := t.physPen
	if spectral {
		p = t.specPen
	}
	lo = p.Lo()
	hi = make([]int, len(lo))
	for i, n := range p.Subshape() {
		hi[i] = lo[i] + n
	}
	return lo, hi
}

// Boundaries returns the boundary splicers, one per boundary-bearing
// axis in transform order. The slice is empty when no basis carries
// boundary dofs.
func (t *TensorProduct) Boundaries() []*BoundaryValues {
	return append([]*BoundaryValues(nil), t.boundary...)
}

// Boundary returns the splicer for one axis, or nil.
func (t *TensorProduct) Boundary(axis int) *BoundaryValues {
	for _, bv := range t.boundary {
		if bv.axis == axis {
			return bv
		}
	}
	return nil
}

// PhysicalPencil returns the physical-side decomposition.
func (t *TensorProduct) PhysicalPencil() *pencil.Pencil { return t.physPen }

// SpectralPencil returns the spectral-side decomposition.
func (t *TensorProduct) SpectralPencil() *pencil.Pencil { return t.specPen }

// Mesh returns the global quadrature points per axis.
func (t *TensorProduct) Mesh() [][]float64 {
	out := make([][]float64, len(t.bases))
	for i, b := range t.bases {
		out[i] = b.Points()
	}
	return out
}

// LocalMesh returns the quadrature points this rank owns per axis.
func (t *TensorProduct) LocalMesh() [][]float64 {
	lo, hi := t.LocalSlice(false)
	mesh := t.Mesh()
	out := make([][]float64, len(mesh))
	for i := range mesh {
		out[i] = mesh[i][lo[i]:hi[i]]
	}
	return out
}

// Wavenumbers returns the global wavenumber (or mode index) array per
// axis.
func (t *TensorProduct) Wavenumbers() [][]float64 {
	out := make([][]float64, len(t.bases))
	for i, b := range t.bases {
		out[i] = b.Wavenumbers()
	}
	return out
}

// LocalWavenumbers returns the wavenumbers this rank owns per axis.
func (t *TensorProduct) LocalWavenumbers() [][]float64 {
	lo, hi := t.LocalSlice(true)
	waves := t.Wavenumbers()
	out := make([][]float64, len(waves))
	for i := range waves {
		out[i] = waves[i][lo[i]:hi[i]]
	}
	return out
}

// NonPeriodicAxes lists the axes carried by non-Fourier bases.
func (t *TensorProduct) NonPeriodicAxes() []int {
	var out []int
	for i, b := range t.bases {
		if b.Family() != basis.FourierFamily {
			out = append(out, i)
		}
	}
	return out
}

// MaskNyquist zeroes the Nyquist mode of every even-length Fourier axis
// in a local spectral array. The mode carries no phase information and is
// commonly dropped before differentiation.
func (t *TensorProduct) MaskNyquist(u *core.Array) error {
	if err := t.checkSpectral(u); err != nil {
		return err
	}
	lo := t.specPen.Lo()
	for axis, b := range t.bases {
		type nyquister interface{ NyquistIndex() int }
		nb, ok := b.(nyquister)
		if !ok {
			continue
		}
		nyq := nb.NyquistIndex()
		if nyq < 0 {
			continue
		}
		local := nyq - lo[axis]
		if local < 0 || local >= u.Extent(axis) {
			continue
		}
		core.ForEachLine(axis, func(lines []core.Line) {
			i := lines[0].Base + local*lines[0].Stride
			if u.Dtype() == core.Complex {
				u.Complex()[i] = 0
			} else {
				u.Real()[i] = 0
			}
		}, u)
	}
	return nil
}

// Compatible reports whether coefficients from the other space can be
// used with this one: same axis count, families and spectral extents.
func (t *TensorProduct) Compatible(other *TensorProduct) bool {
	if other == nil || len(t.bases) != len(other.bases) {
		return false
	}
	for i, b := range t.bases {
		ob := other.bases[i]
		if b.Family() != ob.Family() || b.SpectralLen() != ob.SpectralLen() ||
			b.BoundaryDofs() != ob.BoundaryDofs() {
			return false
		}
	}
	return true
}

// rebuild constructs a sibling space with per-axis replacement bases,
// keeping the process grid, axis order and coordinates.
func (t *TensorProduct) rebuild(bases []basis.Basis, extra ...SpaceOption) (*TensorProduct, error) {
	// Groups are stored in transform order; hand them back in input
	// order.
	axes := make([][]int, len(t.groups))
	for i := range t.groups {
		axes[len(t.groups)-1-i] = t.groups[i]
	}
	opts := []SpaceOption{
		WithAxes(axes...),
		WithProcGrid(t.dims...),
		WithCoordinates(t.coords),
		WithLogger(t.log),
	}
	opts = append(opts, extra...)
	return NewTensorProduct(t.comm, bases, opts...)
}

// Dealiased returns a space over the same modal content evaluated on a
// physical grid enlarged by factor, sharing this space's spectral layout.
func (t *TensorProduct) Dealiased(factor float64) (*TensorProduct, error) {
	if factor < 1 {
		return nil, fmt.Errorf("%w: padding factor %g", ErrBadPlan, factor)
	}
	bases := make([]basis.Basis, len(t.bases))
	for i, b := range t.bases {
		nb, err := b.Resized(b.Len(), factor)
		if err != nil {
			return nil, err
		}
		bases[i] = nb
	}
	return t.rebuild(bases, BackwardFromPencil(t.specPen))
}

// Refined returns a space with the per-axis modal sizes scaled, keeping
// families, padding and boundary specifications.
func (t *TensorProduct) Refined(sizes []int) (*TensorProduct, error) {
	if len(sizes) != len(t.bases) {
		return nil, fmt.Errorf("%w: %d sizes for %d axes", ErrBadPlan, len(sizes), len(t.bases))
	}
	bases := make([]basis.Basis, len(t.bases))
	for i, b := range t.bases {
		nb, err := b.Resized(sizes[i], b.PaddingFactor())
		if err != nil {
			return nil, err
		}
		bases[i] = nb
	}
	return t.rebuild(bases)
}

// Orthogonal returns a space with every composite basis replaced by the
// orthogonal basis of its family, same sizes and padding.
func (t *TensorProduct) Orthogonal() (*TensorProduct, error) {
	bases := make([]basis.Basis, len(t.bases))
	for i, b := range t.bases {
		if b.BoundaryDofs() == 0 {
			bases[i] = b
			continue
		}
		var (
			nb  basis.Basis
			err error
		)
		switch b.Family() {
		case basis.ChebyshevFamily:
			nb, err = basis.NewChebyshev(b.Len(), basis.WithPadding(b.PaddingFactor()))
		case basis.LegendreFamily:
			nb, err = basis.NewLegendre(b.Len(), basis.WithPadding(b.PaddingFactor()))
		default:
			err = fmt.Errorf("%w: no orthogonal counterpart for axis %d", ErrBadPlan, i)
		}
		if err != nil {
			return nil, err
		}
		bases[i] = nb
	}
	return t.rebuild(bases)
}
