// Package pencil partitions global N-D arrays across a process group with
// one axis held fully local at a time, and moves data between two such
// partitions with a collective exchange. It is the distribution layer the
// tensor-product transform pipeline is staged on.
package pencil

import (
	"errors"
	"fmt"

	"github.com/sbl8/spectral/grid"
)

// ErrBadDecomposition is returned when a process grid cannot partition the
// requested global shape.
var ErrBadDecomposition = errors.New("pencil: invalid decomposition")

// blockPartition splits n items over p parts and returns part r's start and
// extent. The first n%p parts get one extra item.
func blockPartition(n, p, r int) (lo, ext int) {
	q, rem := n/p, n%p
	ext = q
	if r < rem {
		ext++
	}
	lo = r*q + min(r, rem)
	return lo, ext
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Subgrid arranges a communicator as an N-D process grid with one 1-D
// subcommunicator per array axis. Ranks are laid out row-major over the
// grid dims, the last axis varying fastest.
type Subgrid struct {
	parent *grid.Comm
	dims   []int
	coords []int
	comms  []*grid.Comm
}

// NewSubgrid splits c into per-axis communicators for the given grid dims.
// The dims must multiply to the communicator size.
func NewSubgrid(c *grid.Comm, dims []int) (*Subgrid, error) {
	prod := 1
	for _, d := range dims {
		if d <= 0 {
			return nil, fmt.Errorf("%w: dims %v", ErrBadDecomposition, dims)
		}
		prod *= d
	}
	if prod != c.Size() {
		return nil, fmt.Errorf("%w: dims %v do not cover %d ranks", ErrBadDecomposition, dims, c.Size())
	}
	s := &Subgrid{
		parent: c,
		dims:   append([]int(nil), dims...),
		coords: make([]int, len(dims)),
		comms:  make([]*grid.Comm, len(dims)),
	}
	rem := c.Rank()
	for i := range dims {
		stride := 1
		for j := i + 1; j < len(dims); j++ {
			stride *= dims[j]
		}
		s.coords[i] = rem / stride
		rem %= stride
	}
	for i := range dims {
		// Ranks differing only in coordinate i share an axis comm.
		color := 0
		for j := range dims {
			if j != i {
				color = color*s.dims[j] + s.coords[j]
			}
		}
		s.comms[i] = c.Split(color, s.coords[i])
	}
	return s, nil
}

// Ndim returns the number of grid axes.
func (s *Subgrid) Ndim() int { return len(s.dims) }

// Dims returns the per-axis process counts.
func (s *Subgrid) Dims() []int { return append([]int(nil), s.dims...) }

// Coords returns this rank's grid coordinates.
func (s *Subgrid) Coords() []int { return append([]int(nil), s.coords...) }

// AxisComm returns the 1-D communicator along grid axis i.
func (s *Subgrid) AxisComm(i int) *grid.Comm { return s.comms[i] }

// Pencil describes this rank's slice of a global array: per-axis local
// extents and starts, with exactly one axis fully local.
type Pencil struct {
	shape    []int
	axis     int
	subshape []int
	lo       []int

	// Per-axis communicator view. Repartition swaps entries between the
	// old and new active axes instead of building new communicators.
	sizes  []int
	coords []int
	comms  []*grid.Comm
}

// NewPencil partitions shape over the subgrid with axis fully local. The
// subgrid must hold one process along the active axis and no more
// processes along any axis than that axis's extent.
func NewPencil(s *Subgrid, shape []int, axis int) (*Pencil, error) {
	if len(shape) != s.Ndim() {
		return nil, fmt.Errorf("%w: shape %v vs %d grid axes", ErrBadDecomposition, shape, s.Ndim())
	}
	if axis < 0 || axis >= len(shape) {
		return nil, fmt.Errorf("%w: active axis %d", ErrBadDecomposition, axis)
	}
	if s.dims[axis] != 1 {
		return nil, fmt.Errorf("%w: axis %d is split over %d processes but must be local", ErrBadDecomposition, axis, s.dims[axis])
	}
	p := &Pencil{
		shape:  append([]int(nil), shape...),
		axis:   axis,
		sizes:  append([]int(nil), s.dims...),
		coords: append([]int(nil), s.coords...),
		comms:  append([]*grid.Comm(nil), s.comms...),
	}
	if err := p.partition(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pencil) partition() error {
	p.subshape = make([]int, len(p.shape))
	p.lo = make([]int, len(p.shape))
	for i, n := range p.shape {
		if n <= 0 {
			return fmt.Errorf("%w: extent %d on axis %d", ErrBadDecomposition, n, i)
		}
		if p.sizes[i] > n {
			return fmt.Errorf("%w: %d processes along axis %d of extent %d", ErrBadDecomposition, p.sizes[i], i, n)
		}
		p.lo[i], p.subshape[i] = blockPartition(n, p.sizes[i], p.coords[i])
	}
	return nil
}

// Shape returns the global shape.
func (p *Pencil) Shape() []int { return append([]int(nil), p.shape...) }

// Axis returns the fully local axis.
func (p *Pencil) Axis() int { return p.axis }

// Subshape returns the local extents.
func (p *Pencil) Subshape() []int { return append([]int(nil), p.subshape...) }

// Lo returns the local starts within the global index space.
func (p *Pencil) Lo() []int { return append([]int(nil), p.lo...) }

// CommSize returns the number of processes distributing axis i.
func (p *Pencil) CommSize(i int) int { return p.sizes[i] }

// Resized returns a pencil with the same process layout over a new global
// shape. Extents on distributed axes may change, for instance after a
// real-to-complex stage.
func (p *Pencil) Resized(shape []int) (*Pencil, error) {
	if len(shape) != len(p.shape) {
		return nil, fmt.Errorf("%w: shape %v", ErrBadDecomposition, shape)
	}
	out := &Pencil{
		shape:  append([]int(nil), shape...),
		axis:   p.axis,
		sizes:  p.sizes,
		coords: p.coords,
		comms:  p.comms,
	}
	if err := out.partition(); err != nil {
		return nil, err
	}
	return out, nil
}

// Repartition returns a pencil over the same global shape with a different
// fully local axis. The processes that distributed the new axis take over
// the old one, so only those two axes change ownership.
func (p *Pencil) Repartition(axis int) (*Pencil, error) {
	if axis < 0 || axis >= len(p.shape) {
		return nil, fmt.Errorf("%w: active axis %d", ErrBadDecomposition, axis)
	}
	if axis == p.axis {
		return nil, fmt.Errorf("%w: axis %d already local", ErrBadDecomposition, axis)
	}
	out := &Pencil{
		shape:  append([]int(nil), p.shape...),
		axis:   axis,
		sizes:  append([]int(nil), p.sizes...),
		coords: append([]int(nil), p.coords...),
		comms:  append([]*grid.Comm(nil), p.comms...),
	}
	out.sizes[p.axis], out.sizes[axis] = out.sizes[axis], out.sizes[p.axis]
	out.coords[p.axis], out.coords[axis] = out.coords[axis], out.coords[p.axis]
	out.comms[p.axis], out.comms[axis] = out.comms[axis], out.comms[p.axis]
	if err := out.partition(); err != nil {
		return nil, err
	}
	return out, nil
}
