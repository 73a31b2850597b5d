// Package space composes per-axis 1D spectral transforms into one
// distributed N-dimensional transform. A TensorProduct plans an ordered
// chain of axis stages and pencil transfers at construction time; the
// chain is immutable afterwards and executed by Forward, Backward and
// ScalarProduct.
//
// Key components:
//   - TensorProduct: the orchestrator; plan construction, execution,
//     mesh/wavenumber queries, point evaluation.
//   - BoundaryValues: splices nonhomogeneous boundary data through a
//     partially transformed pipeline.
//   - Space / Leaf / Composite: vector and mixed spaces broadcasting
//     transforms over components.
//   - Convolver: dealiased pointwise products on padded grids.
package space

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sbl8/spectral/basis"
	"github.com/sbl8/spectral/core"
	"github.com/sbl8/spectral/grid"
	"github.com/sbl8/spectral/pencil"
)

// ErrBadPlan is returned for construction-time configuration errors.
var ErrBadPlan = errors.New("space: invalid plan")

// ErrBadInput is returned when an array handed to a transform does not
// match the plan's local layout.
var ErrBadInput = errors.New("space: array does not match plan")

// Coordinates carries the coordinate-system metadata a space is built
// over. Only Cartesian frames are supported by the vector calculus layer.
type Coordinates struct {
	Curvilinear bool
	// Names of the coordinate variables, defaulting to x, y, z.
	Names []string
}

type stageKind int

const (
	realKind stageKind = iota
	complexKind
	halfKind
)

// stage binds one axis's 1D transform to the local pencil layout at its
// position in the chain. in and out are the chain's preallocated work
// arrays on either side of the stage.
type stage struct {
	axis int
	b    basis.Basis
	kind stageKind
	in   *core.Array
	out  *core.Array

	// Set for boundary-bearing axes; supplies per-line boundary values
	// to the forward solve.
	bv *BoundaryValues

	// Line scratch, sized at plan time.
	rePhys, reSpec, imPhys, imSpec []float64
	cxPhys, cxSpec                 []complex128
	reBC, imBC                     []float64
}

// transferOp moves the chain between two pencils. in aliases the previous
// stage's output array and out the next stage's input.
type transferOp struct {
	t   *pencil.Transfer
	in  *core.Array
	out *core.Array
}

// step is one communication-free group of stages plus the transfer that
// precedes it. The first step has no transfer.
type step struct {
	transfer *transferOp
	stages   []*stage
}

// TensorProduct composes per-axis bases over a process grid into one
// N-dimensional transform pipeline.
type TensorProduct struct {
	comm    *grid.Comm
	sub     *pencil.Subgrid
	bases   []basis.Basis
	groups  [][]int // transform order; groups[0] runs first
	dims    []int
	coords  Coordinates
	log     *zap.Logger
	padding bool

	physPen *pencil.Pencil
	specPen *pencil.Pencil
	physDt  core.Dtype
	specDt  core.Dtype

	steps    []step
	boundary []*BoundaryValues // one per boundary-bearing axis

	// Execution counters, observable through Stats.
	stageRuns    int
	transferRuns int
}

// NewTensorProduct plans a transform pipeline over comm for the given
// per-axis bases. A nil comm plans a serial single-rank pipeline.
func NewTensorProduct(comm *grid.Comm, bases []basis.Basis, opts ...SpaceOption) (*TensorProduct, error) {
	if comm == nil {
		comm = grid.Single()
	}
	if len(bases) == 0 {
		return nil, fmt.Errorf("%w: no bases", ErrBadPlan)
	}
	o := applySpaceOptions(opts)

	t := &TensorProduct{
		comm:   comm,
		bases:  append([]basis.Basis(nil), bases...),
		coords: o.coords,
		log:    o.log,
	}
	for _, b := range bases {
		if b.PaddingFactor() != 1 {
			t.padding = true
		}
	}

	groups, err := normalizeGroups(len(bases), o.axes)
	if err != nil {
		return nil, err
	}
	t.groups = groups

	if err := t.checkDtypes(o); err != nil {
		return nil, err
	}
	if err := t.deriveDims(o); err != nil {
		return nil, err
	}
	if err := t.buildChain(o.collapse); err != nil {
		return nil, err
	}
	if o.fromPencil != nil {
		if err := t.checkSpectralParity(o.fromPencil); err != nil {
			return nil, err
		}
	}
	if err := t.buildBoundaries(); err != nil {
		return nil, err
	}
	t.log.Debug("planned tensor product space",
		zap.Any("groups", t.groups),
		zap.Ints("dims", t.dims),
		zap.Ints("physical", t.GlobalShape(false)),
		zap.Ints("spectral", t.GlobalShape(true)),
		zap.Stringer("physicalDtype", t.physDt),
		zap.Stringer("spectralDtype", t.specDt),
	)
	return t, nil
}

// normalizeGroups turns the requested axis order into transform-ordered
// groups: the last requested group runs first.
func normalizeGroups(ndim int, axes [][]int) ([][]int, error) {
	if axes == nil {
		axes = make([][]int, ndim)
		for i := range axes {
			axes[i] = []int{i}
		}
	}
	seen := make([]bool, ndim)
	count := 0
	for _, g := range axes {
		if len(g) == 0 {
			return nil, fmt.Errorf("%w: empty axis group", ErrBadPlan)
		}
		for _, a := range g {
			if a < 0 || a >= ndim || seen[a] {
				return nil, fmt.Errorf("%w: axis order %v is not a permutation of 0..%d", ErrBadPlan, axes, ndim-1)
			}
			seen[a] = true
			count++
		}
	}
	if count != ndim {
		return nil, fmt.Errorf("%w: axis order %v misses axes", ErrBadPlan, axes)
	}
	groups := make([][]int, 0, len(axes))
	for i := len(axes) - 1; i >= 0; i-- {
		groups = append(groups, append([]int(nil), axes[i]...))
	}
	return groups, nil
}

// checkDtypes derives the physical and spectral element types and places
// the real-to-complex transition.
func (t *TensorProduct) checkDtypes(o spaceOptions) error {
	t.physDt, t.specDt = core.Real, core.Real
	halfAxis := -1
	for i, b := range t.bases {
		if b.SpectralComplex() {
			t.specDt = core.Complex
		}
		if _, ok := b.(basis.HalfComplexBasis); ok {
			if halfAxis >= 0 {
				return fmt.Errorf("%w: more than one real-to-complex axis (%d and %d)", ErrBadPlan, halfAxis, i)
			}
			halfAxis = i
		}
	}
	if halfAxis < 0 {
		// Without a real-to-complex transition any complex-to-complex
		// axis needs complex input from the start.
		for _, b := range t.bases {
			if b.PhysComplex() {
				t.physDt = core.Complex
			}
		}
	} else {
		found := false
		for _, a := range t.groups[0] {
			if a == halfAxis {
				found = true
			}
		}
		if !found {
			return fmt.Errorf("%w: real-to-complex axis %d must be transformed first", ErrBadPlan, halfAxis)
		}
	}
	if o.dtypeSet && o.dtype != t.specDt {
		return fmt.Errorf("%w: requested %v output but the terminal axis produces %v", ErrBadPlan, o.dtype, t.specDt)
	}
	return nil
}

// deriveDims fixes the per-axis process counts: user-supplied, slab, or a
// balanced split over the axes outside the first transform group.
func (t *TensorProduct) deriveDims(o spaceOptions) error {
	ndim := len(t.bases)
	first := t.groups[0]
	inFirst := make([]bool, ndim)
	for _, a := range first {
		inFirst[a] = true
	}
	if o.procGrid != nil {
		if len(o.procGrid) != ndim {
			return fmt.Errorf("%w: process grid %v has %d axes, want %d", ErrBadPlan, o.procGrid, len(o.procGrid), ndim)
		}
		for _, a := range first {
			if o.procGrid[a] != 1 {
				return fmt.Errorf("%w: axis %d is transformed first and must not be distributed", ErrBadPlan, a)
			}
		}
		t.dims = append([]int(nil), o.procGrid...)
		return nil
	}
	var rest []int
	for a := 0; a < ndim; a++ {
		if !inFirst[a] {
			rest = append(rest, a)
		}
	}
	t.dims = make([]int, ndim)
	for i := range t.dims {
		t.dims[i] = 1
	}
	p := t.comm.Size()
	switch {
	case p == 1:
	case len(rest) == 0:
		return fmt.Errorf("%w: %d processes but every axis is in the first transform group", ErrBadPlan, p)
	case o.slab:
		t.dims[rest[0]] = p
	default:
		for i, d := range grid.DimsCreate(p, len(rest)) {
			t.dims[rest[i]] = d
		}
	}
	return nil
}

// buildChain walks the transform order, building pencils, transfers and
// stages while propagating shape and dtype changes.
func (t *TensorProduct) buildChain(collapse bool) error {
	sub, err := pencil.NewSubgrid(t.comm, t.dims)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadPlan, err)
	}
	t.sub = sub

	groups := t.groups
	if collapse {
		groups = t.collapseFourier(groups)
		t.groups = groups
	}

	shape := make([]int, len(t.bases))
	for i, b := range t.bases {
		shape[i] = b.PhysLen()
	}
	cur, err := pencil.NewPencil(sub, shape, activeAxis(groups[0]))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadPlan, err)
	}
	t.physPen = cur
	dt := t.physDt
	arr := core.MustArray(dt, cur.Subshape()...)

	for gi, g := range groups {
		st := step{}
		if gi > 0 {
			next, err := cur.Repartition(activeAxis(g))
			if err != nil {
				return fmt.Errorf("%w: %v", ErrBadPlan, err)
			}
			if cur.CommSize(activeAxis(g)) == 1 {
				// A single-rank exchange leaves both pencils with the
				// same block; the group reads the work array in place.
				cur = next
			} else {
				tr, err := pencil.NewTransfer(cur, next)
				if err != nil {
					return fmt.Errorf("%w: %v", ErrBadPlan, err)
				}
				cur = next
				out := core.MustArray(dt, cur.Subshape()...)
				st.transfer = &transferOp{t: tr, in: arr, out: out}
				arr = out
			}
		}
		// Axes within a group run last-first, matching the overall
		// transform order.
		for i := len(g) - 1; i >= 0; i-- {
			axis := g[i]
			sg, next, nextDt, err := t.planStage(axis, cur, arr, dt)
			if err != nil {
				return err
			}
			st.stages = append(st.stages, sg)
			cur, dt, arr = next, nextDt, sg.out
		}
		t.steps = append(t.steps, st)
	}
	t.specPen = cur
	if dt != t.specDt {
		return fmt.Errorf("%w: pipeline ends in %v, expected %v", ErrBadPlan, dt, t.specDt)
	}
	return nil
}

func activeAxis(group []int) int { return group[len(group)-1] }

// collapseFourier merges a group into its predecessor when both are pure
// unpadded Fourier and the grid holds the group's axes locally. The merge
// removes a transfer and cannot change results.
func (t *TensorProduct) collapseFourier(groups [][]int) [][]int {
	merged := [][]int{append([]int(nil), groups[0]...)}
	for _, g := range groups[1:] {
		prev := merged[len(merged)-1]
		if t.fourierLocal(prev) && t.fourierLocal(g) {
			// Axes within a group run last-first, so the axes that
			// transform earlier stay at the back of the merged group.
			merged[len(merged)-1] = append(append([]int(nil), g...), prev...)
			continue
		}
		merged = append(merged, append([]int(nil), g...))
	}
	return merged
}

func (t *TensorProduct) fourierLocal(group []int) bool {
	for _, a := range group {
		b := t.bases[a]
		if b.Family() != basis.FourierFamily || b.PaddingFactor() != 1 || t.dims[a] != 1 {
			return false
		}
	}
	return true
}

// planStage allocates the work array and scratch for one axis transform
// and propagates the axis's spectral extent and dtype.
func (t *TensorProduct) planStage(axis int, cur *pencil.Pencil, in *core.Array, dt core.Dtype) (*stage, *pencil.Pencil, core.Dtype, error) {
	b := t.bases[axis]
	outDt := dt
	var kind stageKind
	switch b.(type) {
	case basis.HalfComplexBasis:
		if dt != core.Real {
			return nil, nil, 0, fmt.Errorf("%w: real-to-complex stage on axis %d sees complex data", ErrBadPlan, axis)
		}
		kind, outDt = halfKind, core.Complex
	case basis.ComplexBasis:
		if dt != core.Complex {
			return nil, nil, 0, fmt.Errorf("%w: complex stage on axis %d sees real data", ErrBadPlan, axis)
		}
		kind = complexKind
	case basis.RealBasis:
		kind = realKind
	default:
		return nil, nil, 0, fmt.Errorf("%w: basis on axis %d implements no transform kernel", ErrBadPlan, axis)
	}
	if b.SpectralLen() <= 0 {
		return nil, nil, 0, fmt.Errorf("%w: axis %d truncates to %d coefficients", ErrBadPlan, axis, b.SpectralLen())
	}

	shape := cur.Shape()
	shape[axis] = b.SpectralLen()
	next, err := cur.Resized(shape)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: %v", ErrBadPlan, err)
	}
	out := core.MustArray(outDt, next.Subshape()...)

	sg := &stage{axis: axis, b: b, kind: kind, in: in, out: out}
	m, n := b.PhysLen(), b.SpectralLen()
	switch kind {
	case complexKind:
		sg.cxPhys = make([]complex128, m)
		sg.cxSpec = make([]complex128, n)
	case halfKind:
		sg.rePhys = make([]float64, m)
		sg.cxSpec = make([]complex128, n)
	case realKind:
		sg.rePhys = make([]float64, m)
		sg.reSpec = make([]float64, n)
		if dt == core.Complex {
			sg.imPhys = make([]float64, m)
			sg.imSpec = make([]float64, n)
		}
	}
	if nbc := b.BoundaryDofs(); nbc > 0 {
		sg.reBC = make([]float64, nbc)
		if dt == core.Complex {
			sg.imBC = make([]float64, nbc)
		}
	}
	return sg, next, outDt, nil
}

// buildBoundaries creates one splicer per boundary-bearing axis and wires
// it into that axis's stage.
func (t *TensorProduct) buildBoundaries() error {
	for _, st := range t.steps {
		for _, sg := range st.stages {
			wb, ok := sg.b.(basis.WithBoundary)
			if !ok || sg.b.BoundaryDofs() == 0 {
				continue
			}
			bv, err := newBoundaryValues(t, sg, wb)
			if err != nil {
				return err
			}
			sg.bv = bv
			t.boundary = append(t.boundary, bv)
		}
	}
	for _, bv := range t.boundary {
		if err := bv.recompute(); err != nil {
			return err
		}
	}
	return nil
}

// checkSpectralParity verifies, rank by rank, that this plan's spectral
// layout matches a reference pencil. Padding only changes physical extents, so a padded
// space built with the reference's grid dims lands on the same spectral
// distribution.
func (t *TensorProduct) checkSpectralParity(ref *pencil.Pencil) error {
	if !sameInts(ref.Shape(), t.specPen.Shape()) {
		return fmt.Errorf("%w: reference spectral shape %v, this space produces %v", ErrBadPlan, ref.Shape(), t.specPen.Shape())
	}
	if ref.Axis() != t.specPen.Axis() {
		return fmt.Errorf("%w: reference pencil local in axis %d, plan ends local in axis %d", ErrBadPlan, ref.Axis(), t.specPen.Axis())
	}
	if !sameInts(ref.Lo(), t.specPen.Lo()) || !sameInts(ref.Subshape(), t.specPen.Subshape()) {
		return fmt.Errorf("%w: reference holds %v at %v, plan holds %v at %v",
			ErrBadPlan, ref.Subshape(), ref.Lo(), t.specPen.Subshape(), t.specPen.Lo())
	}
	return nil
}

// Stats reports how many stages and transfers have executed on this rank.
func (t *TensorProduct) Stats() (stages, transfers int) {
	return t.stageRuns, t.transferRuns
}

// NewPhysicalArray allocates an array on the local physical layout.
func (t *TensorProduct) NewPhysicalArray() *core.Array {
	return core.MustArray(t.physDt, t.physPen.Subshape()...)
}

// NewSpectralArray allocates an array on the local spectral layout.
func (t *TensorProduct) NewSpectralArray() *core.Array {
	return core.MustArray(t.specDt, t.specPen.Subshape()...)
}

func (t *TensorProduct) checkPhysical(a *core.Array) error {
	if a.Dtype() != t.physDt || !sameInts(a.Shape(), t.physPen.Subshape()) {
		return fmt.Errorf("%w: physical side wants %v %v, got %v %v",
			ErrBadInput, t.physDt, t.physPen.Subshape(), a.Dtype(), a.Shape())
	}
	return nil
}

func (t *TensorProduct) checkSpectral(a *core.Array) error {
	if a.Dtype() != t.specDt || !sameInts(a.Shape(), t.specPen.Subshape()) {
		return fmt.Errorf("%w: spectral side wants %v %v, got %v %v",
			ErrBadInput, t.specDt, t.specPen.Subshape(), a.Dtype(), a.Shape())
	}
	return nil
}

func sameInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Forward transforms a physical array into spectral coefficients.
func (t *TensorProduct) Forward(in, out *core.Array) error {
	if err := t.checkPhysical(in); err != nil {
		return err
	}
	if err := t.checkSpectral(out); err != nil {
		return err
	}
	t.runForward(in, out, opForward)
	return nil
}

// ScalarProduct computes the quadrature-weighted projection of a physical
// array onto the spectral test functions, without any mass solve.
func (t *TensorProduct) ScalarProduct(in, out *core.Array) error {
	if err := t.checkPhysical(in); err != nil {
		return err
	}
	if err := t.checkSpectral(out); err != nil {
		return err
	}
	t.runForward(in, out, opScalar)
	return nil
}

// Backward reconstructs a physical array from spectral coefficients.
func (t *TensorProduct) Backward(in, out *core.Array) error {
	if err := t.checkSpectral(in); err != nil {
		return err
	}
	if err := t.checkPhysical(out); err != nil {
		return err
	}
	last := t.steps[len(t.steps)-1]
	_ = last.stages[len(last.stages)-1].out.CopyFrom(in)
	for si := len(t.steps) - 1; si >= 0; si-- {
		st := t.steps[si]
		for i := len(st.stages) - 1; i >= 0; i-- {
			st.stages[i].run(opBackward)
			t.stageRuns++
		}
		if st.transfer != nil {
			_ = st.transfer.t.Backward(st.transfer.out, st.transfer.in)
			t.transferRuns++
		}
	}
	return out.CopyFrom(t.steps[0].stages[0].in)
}

type stageOp int

const (
	opForward stageOp = iota
	opScalar
	opBackward
)

// runForward drives the chain front to back; used by Forward and
// ScalarProduct and, with a limited prefix, by the boundary splicer.
func (t *TensorProduct) runForward(in, out *core.Array, op stageOp) {
	_ = t.steps[0].stages[0].in.CopyFrom(in)
	t.runSteps(len(t.steps), op)
	last := t.steps[len(t.steps)-1]
	_ = out.CopyFrom(last.stages[len(last.stages)-1].out)
}

// runSteps executes the first n steps of the forward chain in place.
func (t *TensorProduct) runSteps(n int, op stageOp) {
	for si := 0; si < n; si++ {
		st := t.steps[si]
		if st.transfer != nil {
			_ = st.transfer.t.Forward(st.transfer.in, st.transfer.out)
			t.transferRuns++
		}
		for _, sg := range st.stages {
			sg.run(op)
			t.stageRuns++
		}
	}
}
