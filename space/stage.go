package space

import (
	"github.com/sbl8/spectral/basis"
	"github.com/sbl8/spectral/core"
)

// run applies the stage's 1D kernel to every line of its work arrays.
// Forward and scalar read in and write out; backward reads out and writes
// in. Real-family kernels applied to complex data transform the real and
// imaginary parts separately.
func (s *stage) run(op stageOp) {
	switch s.kind {
	case complexKind:
		s.runComplex(op)
	case halfKind:
		s.runHalf(op)
	default:
		if s.in.Dtype() == core.Complex {
			s.runRealOnComplex(op)
		} else {
			s.runReal(op)
		}
	}
}

func (s *stage) runComplex(op stageOp) {
	b := s.b.(basis.ComplexBasis)
	core.ForEachLine(s.axis, func(lines []core.Line) {
		switch op {
		case opBackward:
			s.out.GatherComplex(lines[1], s.cxSpec)
			b.BackwardLine(s.cxSpec, s.cxPhys)
			s.in.ScatterComplex(lines[0], s.cxPhys)
		case opScalar:
			s.in.GatherComplex(lines[0], s.cxPhys)
			b.ScalarLine(s.cxPhys, s.cxSpec)
			s.out.ScatterComplex(lines[1], s.cxSpec)
		default:
			s.in.GatherComplex(lines[0], s.cxPhys)
			b.ForwardLine(s.cxPhys, s.cxSpec)
			s.out.ScatterComplex(lines[1], s.cxSpec)
		}
	}, s.in, s.out)
}

func (s *stage) runHalf(op stageOp) {
	b := s.b.(basis.HalfComplexBasis)
	core.ForEachLine(s.axis, func(lines []core.Line) {
		switch op {
		case opBackward:
			s.out.GatherComplex(lines[1], s.cxSpec)
			b.BackwardLine(s.cxSpec, s.rePhys)
			s.in.ScatterReal(lines[0], s.rePhys)
		case opScalar:
			s.in.GatherReal(lines[0], s.rePhys)
			b.ScalarLine(s.rePhys, s.cxSpec)
			s.out.ScatterComplex(lines[1], s.cxSpec)
		default:
			s.in.GatherReal(lines[0], s.rePhys)
			b.ForwardLine(s.rePhys, s.cxSpec)
			s.out.ScatterComplex(lines[1], s.cxSpec)
		}
	}, s.in, s.out)
}

func (s *stage) runReal(op stageOp) {
	b := s.b.(basis.RealBasis)
	if s.bv != nil && op == opForward {
		wb := s.b.(basis.WithBoundary)
		core.ForEachLine(s.axis, func(lines []core.Line) {
			s.in.GatherReal(lines[0], s.rePhys)
			s.bv.intermediate.GatherReal(lines[2], s.reBC)
			wb.ForwardLineBC(s.rePhys, s.reSpec, s.reBC)
			s.out.ScatterReal(lines[1], s.reSpec)
		}, s.in, s.out, s.bv.intermediate)
		return
	}
	core.ForEachLine(s.axis, func(lines []core.Line) {
		switch op {
		case opBackward:
			s.out.GatherReal(lines[1], s.reSpec)
			b.BackwardLine(s.reSpec, s.rePhys)
			s.in.ScatterReal(lines[0], s.rePhys)
		case opScalar:
			s.in.GatherReal(lines[0], s.rePhys)
			b.ScalarLine(s.rePhys, s.reSpec)
			s.out.ScatterReal(lines[1], s.reSpec)
		default:
			s.in.GatherReal(lines[0], s.rePhys)
			b.ForwardLine(s.rePhys, s.reSpec)
			s.out.ScatterReal(lines[1], s.reSpec)
		}
	}, s.in, s.out)
}

func (s *stage) runRealOnComplex(op stageOp) {
	b := s.b.(basis.RealBasis)
	if s.bv != nil && op == opForward {
		wb := s.b.(basis.WithBoundary)
		core.ForEachLine(s.axis, func(lines []core.Line) {
			s.in.GatherRealPart(lines[0], s.rePhys)
			s.in.GatherImagPart(lines[0], s.imPhys)
			s.bv.intermediate.GatherRealPart(lines[2], s.reBC)
			s.bv.intermediate.GatherImagPart(lines[2], s.imBC)
			wb.ForwardLineBC(s.rePhys, s.reSpec, s.reBC)
			wb.ForwardLineBC(s.imPhys, s.imSpec, s.imBC)
			s.out.ScatterParts(lines[1], s.reSpec, s.imSpec)
		}, s.in, s.out, s.bv.intermediate)
		return
	}
	core.ForEachLine(s.axis, func(lines []core.Line) {
		switch op {
		case opBackward:
			s.out.GatherRealPart(lines[1], s.reSpec)
			s.out.GatherImagPart(lines[1], s.imSpec)
			b.BackwardLine(s.reSpec, s.rePhys)
			b.BackwardLine(s.imSpec, s.imPhys)
			s.in.ScatterParts(lines[0], s.rePhys, s.imPhys)
		case opScalar:
			s.in.GatherRealPart(lines[0], s.rePhys)
			s.in.GatherImagPart(lines[0], s.imPhys)
			b.ScalarLine(s.rePhys, s.reSpec)
			b.ScalarLine(s.imPhys, s.imSpec)
			s.out.ScatterParts(lines[1], s.reSpec, s.imSpec)
		default:
			s.in.GatherRealPart(lines[0], s.rePhys)
			s.in.GatherImagPart(lines[0], s.imPhys)
			b.ForwardLine(s.rePhys, s.reSpec)
			b.ForwardLine(s.imPhys, s.imSpec)
			s.out.ScatterParts(lines[1], s.reSpec, s.imSpec)
		}
	}, s.in, s.out)
}
