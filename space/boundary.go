package space

import (
	"fmt"

	"github.com/sbl8/spectral/basis"
	"github.com/sbl8/spectral/core"
)

// BoundaryValues maintains the boundary-condition coefficients of one
// boundary-bearing axis at two pipeline depths: "intermediate", valid when
// that axis's own stage executes, and "final", valid once the whole
// forward pipeline has run. Snapshots are recomputed when the boundary
// specification or its bound time changes; recomputation must be
// serialized externally against transforms in flight.
type BoundaryValues struct {
	t    *TensorProduct
	sg   *stage
	wb   basis.WithBoundary
	axis int
	nbc  int

	values []any
	time   float64

	// Number of chain steps executed before this axis's step.
	depth int

	intermediate *core.Array
	final        *core.Array
	ownsFinal    bool
}

func newBoundaryValues(t *TensorProduct, sg *stage, wb basis.WithBoundary) (*BoundaryValues, error) {
	depth := -1
	for si, st := range t.steps {
		for _, s := range st.stages {
			if s == sg {
				depth = si
			}
		}
	}
	if depth < 0 {
		return nil, fmt.Errorf("%w: boundary stage not in chain", ErrBadPlan)
	}
	nbc := sg.b.BoundaryDofs()
	values := append([]any(nil), wb.BoundaryValues()...)
	for _, v := range values {
		if err := basis.ValidateBoundaryValue(v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPlan, err)
		}
	}

	interShape := sg.in.Shape()
	interShape[sg.axis] = nbc
	finalShape := t.specPen.Subshape()
	finalShape[sg.axis] = nbc

	bv := &BoundaryValues{
		t: t, sg: sg, wb: wb, axis: sg.axis, nbc: nbc,
		values:       values,
		depth:        depth,
		intermediate: core.MustArray(sg.in.Dtype(), interShape...),
		final:        core.MustArray(t.specDt, finalShape...),
	}
	n := t.bases[sg.axis].SpectralLen()
	lo := t.specPen.Lo()[sg.axis]
	bv.ownsFinal = lo+t.specPen.Subshape()[sg.axis] == n
	return bv, nil
}

// Axis returns the boundary-bearing axis.
func (bv *BoundaryValues) Axis() int { return bv.axis }

// Intermediate returns the snapshot valid at this axis's own transform
// depth, shaped like the local cross section with the axis reduced to the
// boundary dofs.
func (bv *BoundaryValues) Intermediate() *core.Array { return bv.intermediate }

// Final returns the snapshot valid for fully transformed coefficients.
// It carries data only on the rank owning the axis's trailing slots.
func (bv *BoundaryValues) Final() *core.Array { return bv.final }

// UpdateValues replaces the boundary specification and recomputes both
// snapshots.
func (bv *BoundaryValues) UpdateValues(values ...any) error {
	if len(values) != bv.nbc {
		return fmt.Errorf("%w: %d boundary values for %d dofs", ErrBadInput, len(values), bv.nbc)
	}
	for _, v := range values {
		if err := basis.ValidateBoundaryValue(v); err != nil {
			return err
		}
	}
	bv.values = append(bv.values[:0], values...)
	return bv.recompute()
}

// UpdateTime re-evaluates time-dependent boundary functions at tm. Plain
// numbers and arrays are unaffected and trigger no recomputation.
func (bv *BoundaryValues) UpdateTime(tm float64) error {
	bv.time = tm
	for _, v := range bv.values {
		if _, ok := v.(func(x []float64, t float64) float64); ok {
			return bv.recompute()
		}
	}
	return nil
}

func (bv *BoundaryValues) nonhomogeneous() bool {
	for _, v := range bv.values {
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
			return true
		}
	}
	return false
}

// recompute rebuilds both snapshots from the boundary specification. A
// specification of exact zeros short-circuits to zero snapshots without
// running any stage or transfer.
func (bv *BoundaryValues) recompute() error {
	bv.intermediate.Zero()
	bv.final.Zero()
	if !bv.nonhomogeneous() {
		return nil
	}

	t := bv.t
	b := t.NewPhysicalArray()
	if err := bv.fillPhysical(b); err != nil {
		return err
	}

	// Intermediate: drive the boundary-only array through the steps that
	// run before this axis's group, plus this group's incoming transfer
	// and any in-group stages ahead of the boundary stage.
	_ = t.steps[0].stages[0].in.CopyFrom(b)
	t.runSteps(bv.depth, opForward)
	own := t.steps[bv.depth]
	if own.transfer != nil {
		_ = own.transfer.t.Forward(own.transfer.in, own.transfer.out)
		t.transferRuns++
	}
	for _, sg := range own.stages {
		if sg == bv.sg {
			break
		}
		sg.run(opForward)
		t.stageRuns++
	}
	copyTrailing(bv.sg.in, bv.intermediate, bv.axis, bv.nbc)

	// Final: the whole pipeline. The boundary stage itself consumes the
	// intermediate snapshot set just above.
	_ = t.steps[0].stages[0].in.CopyFrom(b)
	t.runSteps(len(t.steps), opForward)
	if bv.ownsFinal {
		last := t.steps[len(t.steps)-1]
		copyTrailing(last.stages[len(last.stages)-1].out, bv.final, bv.axis, bv.nbc)
	}
	return nil
}

// fillPhysical writes the boundary values into the trailing physical
// slots along the axis, on the rank owning the end of that axis; all
// interior values stay zero.
func (bv *BoundaryValues) fillPhysical(b *core.Array) error {
	t := bv.t
	bas := t.bases[bv.axis]
	m := bas.PhysLen()
	lo := t.physPen.Lo()
	sub := t.physPen.Subshape()
	if lo[bv.axis]+sub[bv.axis] != m {
		return nil
	}
	mesh := t.Mesh()
	x := make([]float64, b.Ndim())
	crossShape := t.GlobalShape(false)

	b.ForEachIndex(func(ix []int, flat int) {
		slot := ix[bv.axis] - (m - bv.nbc - lo[bv.axis])
		if slot < 0 || slot >= bv.nbc {
			return
		}
		var val float64
		switch v := bv.values[slot].(type) {
		case float64:
			val = v
		case int:
			val = float64(v)
		case []float64:
			val = v[crossIndex(ix, lo, crossShape, bv.axis)]
		case func(x []float64, t float64) float64:
			for i := range x {
				x[i] = mesh[i][lo[i]+ix[i]]
			}
			if slot == 0 {
				x[bv.axis] = bas.DomainMap(-1)
			} else {
				x[bv.axis] = bas.DomainMap(1)
			}
			val = v(x, bv.time)
		}
		if b.Dtype() == core.Complex {
			b.Complex()[flat] = complex(val, 0)
		} else {
			b.Real()[flat] = val
		}
	})
	return nil
}

// crossIndex flattens a local multi-index into a row-major global index
// over every axis except the boundary axis.
func crossIndex(ix, lo, shape []int, axis int) int {
	idx := 0
	for i := range ix {
		if i == axis {
			continue
		}
		idx = idx*shape[i] + lo[i] + ix[i]
	}
	return idx
}

// copyTrailing copies the trailing nbc slots of src along axis into dst,
// whose axis extent is nbc.
func copyTrailing(src, dst *core.Array, axis, nbc int) {
	start := src.Extent(axis) - nbc
	core.ForEachLine(axis, func(lines []core.Line) {
		for k := 0; k < nbc; k++ {
			si := lines[0].Base + (start+k)*lines[0].Stride
			di := lines[1].Base + k*lines[1].Stride
			if src.Dtype() == core.Complex {
				dst.Complex()[di] = src.Complex()[si]
			} else {
				dst.Real()[di] = src.Real()[si]
			}
		}
	}, src, dst)
}

// SetBoundaryDofs overwrites the trailing coefficient slots of u along
// the boundary axis. With final set, u must be fully transformed on the
// spectral layout; otherwise u is mid-pipeline at this axis's own depth.
func (bv *BoundaryValues) SetBoundaryDofs(u *core.Array, final bool) error {
	snap := bv.intermediate
	if final {
		snap = bv.final
		if !bv.ownsFinal {
			return nil
		}
	}
	if u.Extent(bv.axis) < bv.nbc {
		return fmt.Errorf("%w: axis %d extent %d below %d boundary dofs", ErrBadInput, bv.axis, u.Extent(bv.axis), bv.nbc)
	}
	start := u.Extent(bv.axis) - bv.nbc
	core.ForEachLine(bv.axis, func(lines []core.Line) {
		for k := 0; k < bv.nbc; k++ {
			ui := lines[0].Base + (start+k)*lines[0].Stride
			si := lines[1].Base + k*lines[1].Stride
			if u.Dtype() == core.Complex {
				u.Complex()[ui] = snap.Complex()[si]
			} else {
				u.Real()[ui] = snap.Real()[si]
			}
		}
	}, u, snap)
	return nil
}

// AddToOrthogonal adds the boundary modes' contribution to an array of
// orthogonal-basis coefficients, using the boundary dofs stored in uh.
// Both arrays must hold the boundary axis fully locally.
func (bv *BoundaryValues) AddToOrthogonal(u, uh *core.Array) error {
	cm := bv.wb.CoefficientMatrix()
	if u.Extent(bv.axis) < len(cm[0]) || uh.Extent(bv.axis) < bv.nbc {
		return fmt.Errorf("%w: boundary axis %d not fully local", ErrBadInput, bv.axis)
	}
	start := uh.Extent(bv.axis) - bv.nbc
	core.ForEachLine(bv.axis, func(lines []core.Line) {
		for i := range cm[0] {
			ui := lines[0].Base + i*lines[0].Stride
			for j := 0; j < bv.nbc; j++ {
				hi := lines[1].Base + (start+j)*lines[1].Stride
				if u.Dtype() == core.Complex {
					u.Complex()[ui] += complex(cm[j][i], 0) * uh.Complex()[hi]
				} else {
					u.Real()[ui] += cm[j][i] * uh.Real()[hi]
				}
			}
		}
	}, u, uh)
	return nil
}

// AddMassRHS subtracts the boundary modes' mass contribution from an
// assembly right-hand side, using the intermediate snapshot. u must be in
// this axis's own pipeline layout with the axis fully local.
func (bv *BoundaryValues) AddMassRHS(u *core.Array) error {
	am := bv.wb.AddMassMatrix()
	if u.Extent(bv.axis) < len(am) {
		return fmt.Errorf("%w: boundary axis %d not fully local", ErrBadInput, bv.axis)
	}
	core.ForEachLine(bv.axis, func(lines []core.Line) {
		for k := range am {
			ui := lines[0].Base + k*lines[0].Stride
			for j := 0; j < bv.nbc; j++ {
				si := lines[1].Base + j*lines[1].Stride
				if u.Dtype() == core.Complex {
					u.Complex()[ui] -= complex(am[k][j], 0) * bv.intermediate.Complex()[si]
				} else {
					u.Real()[ui] -= am[k][j] * bv.intermediate.Real()[si]
				}
			}
		}
	}, u, bv.intermediate)
	return nil
}
