package space

import (
	"fmt"

	"github.com/sbl8/spectral/core"
)

// Space is the query surface shared by single and composite function
// spaces. Composites answer by aggregating over their flattened leaves
// instead of delegating to the first member.
type Space interface {
	// Flatten returns the ordered leaf orchestrators, depth first.
	Flatten() []*TensorProduct
	// Dim is the total interior degree-of-freedom count.
	Dim() int
	// Dims is the spatial dimensionality.
	Dims() int
	// SpectralShapes lists the per-leaf global spectral extents; leaves
	// may differ.
	SpectralShapes() [][]int
	// Mesh returns the quadrature mesh of the underlying grid.
	Mesh() [][]float64
	// Wavenumbers returns the per-axis wavenumbers of the underlying
	// grid.
	Wavenumbers() [][]float64
}

// Leaf wraps one orchestrator as a Space.
type Leaf struct {
	T *TensorProduct
}

func (l Leaf) Flatten() []*TensorProduct { return []*TensorProduct{l.T} }
func (l Leaf) Dim() int                  { return l.T.Dim() }
func (l Leaf) Dims() int                 { return l.T.Dims() }
func (l Leaf) SpectralShapes() [][]int   { return [][]int{l.T.GlobalShape(true)} }
func (l Leaf) Mesh() [][]float64         { return l.T.Mesh() }
func (l Leaf) Wavenumbers() [][]float64  { return l.T.Wavenumbers() }

// Composite is an ordered aggregate of spaces; members may themselves be
// composite.
type Composite struct {
	members []Space
}

// Mixed builds a composite space from the given members.
func Mixed(members ...Space) (*Composite, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: empty composite", ErrBadPlan)
	}
	dims := members[0].Dims()
	for _, m := range members[1:] {
		if m.Dims() != dims {
			return nil, fmt.Errorf("%w: members span %d and %d dimensions", ErrBadPlan, dims, m.Dims())
		}
	}
	return &Composite{members: append([]Space(nil), members...)}, nil
}

// Vector builds a vector space over t with one component per spatial
// dimension. Vector calculus is Cartesian only.
func Vector(t *TensorProduct) (*Composite, error) {
	if t.Coordinates().Curvilinear {
		return nil, fmt.Errorf("%w: vector spaces over curvilinear coordinates are not supported", ErrBadPlan)
	}
	members := make([]Space, t.Dims())
	for i := range members {
		members[i] = Leaf{T: t}
	}
	return &Composite{members: members}, nil
}

// Members returns the direct members.
func (c *Composite) Members() []Space { return append([]Space(nil), c.members...) }

// Flatten returns the leaf orchestrators depth first, left to right.
func (c *Composite) Flatten() []*TensorProduct {
	var out []*TensorProduct
	for _, m := range c.members {
		out = append(out, m.Flatten()...)
	}
	return out
}

// Dim sums the interior degrees of freedom over the flattened leaves.
func (c *Composite) Dim() int {
	d := 0
	for _, leaf := range c.Flatten() {
		d += leaf.Dim()
	}
	return d
}

// Dims returns the spatial dimensionality shared by every member.
func (c *Composite) Dims() int { return c.members[0].Dims() }

// SpectralShapes lists the per-leaf global spectral extents.
func (c *Composite) SpectralShapes() [][]int {
	var out [][]int
	for _, leaf := range c.Flatten() {
		out = append(out, leaf.GlobalShape(true))
	}
	return out
}

// Mesh returns the first leaf's quadrature mesh; members share the grid.
func (c *Composite) Mesh() [][]float64 { return c.Flatten()[0].Mesh() }

// Wavenumbers returns the first leaf's wavenumbers.
func (c *Composite) Wavenumbers() [][]float64 { return c.Flatten()[0].Wavenumbers() }

// MultiArray stacks one component array per flattened leaf.
type MultiArray struct {
	parts []*core.Array
}

// NewPhysicalMulti allocates per-leaf physical arrays for a space.
func NewPhysicalMulti(s Space) *MultiArray {
	leaves := s.Flatten()
	m := &MultiArray{parts: make([]*core.Array, len(leaves))}
	for i, leaf := range leaves {
		m.parts[i] = leaf.NewPhysicalArray()
	}
	return m
}

// NewSpectralMulti allocates per-leaf spectral arrays for a space.
func NewSpectralMulti(s Space) *MultiArray {
	leaves := s.Flatten()
	m := &MultiArray{parts: make([]*core.Array, len(leaves))}
	for i, leaf := range leaves {
		m.parts[i] = leaf.NewSpectralArray()
	}
	return m
}

// Part returns component i.
func (m *MultiArray) Part(i int) *core.Array { return m.parts[i] }

// Len returns the number of components.
func (m *MultiArray) Len() int { return len(m.parts) }

func (c *Composite) checkParts(in, out *MultiArray) error {
	n := len(c.Flatten())
	if in.Len() != n || out.Len() != n {
		return fmt.Errorf("%w: %d components, got %d and %d", ErrBadInput, n, in.Len(), out.Len())
	}
	return nil
}

// Forward transforms every component through its leaf's pipeline.
func (c *Composite) Forward(in, out *MultiArray) error {
	if err := c.checkParts(in, out); err != nil {
		return err
	}
	for i, leaf := range c.Flatten() {
		if err := leaf.Forward(in.Part(i), out.Part(i)); err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
	}
	return nil
}

// Backward reconstructs every component.
func (c *Composite) Backward(in, out *MultiArray) error {
	if err := c.checkParts(in, out); err != nil {
		return err
	}
	for i, leaf := range c.Flatten() {
		if err := leaf.Backward(in.Part(i), out.Part(i)); err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
	}
	return nil
}

// ScalarProduct projects every component.
func (c *Composite) ScalarProduct(in, out *MultiArray) error {
	if err := c.checkParts(in, out); err != nil {
		return err
	}
	for i, leaf := range c.Flatten() {
		if err := leaf.ScalarProduct(in.Part(i), out.Part(i)); err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
	}
	return nil
}
