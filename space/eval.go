package space

import (
	"fmt"

	"github.com/sbl8/spectral/basis"
	"github.com/sbl8/spectral/core"
)

// EvalMethod selects a point-evaluation strategy. All strategies return
// the same values within floating-point tolerance.
type EvalMethod int

const (
	// EvalDirect is the reference strategy: one basis evaluation per
	// coefficient per point.
	EvalDirect EvalMethod = iota
	// EvalVectorized caches per-axis evaluation tables before
	// contracting.
	EvalVectorized
	// EvalFused contracts axis by axis with specialized 2-D/3-D loops,
	// falling back to EvalVectorized for other ranks.
	EvalFused
)

type conjWeighter interface{ LastConjIndex() int }

// halfWeights returns the per-slot multiplier of a half-spectrum axis:
// interior slots stand for themselves and their implicit conjugates.
func (t *TensorProduct) halfWeights(axis int) []float64 {
	b := t.bases[axis]
	w := make([]float64, b.SpectralLen())
	for k := range w {
		w[k] = 1
	}
	hb, ok := b.(basis.HalfComplexBasis)
	if !ok {
		return w
	}
	cw, ok := hb.(conjWeighter)
	if !ok {
		return w
	}
	for k := 1; k < cw.LastConjIndex(); k++ {
		w[k] = 2
	}
	return w
}

// Eval evaluates the truncated spectral sum at arbitrary points. Each
// point is a coordinate vector of the space's dimensionality. Every rank
// contracts its own coefficient slice; the partial sums are combined with
// a global reduction, so Eval is collective.
func (t *TensorProduct) Eval(points [][]float64, coeffs *core.Array, method EvalMethod) (*core.Array, error) {
	if err := t.checkSpectral(coeffs); err != nil {
		return nil, err
	}
	nd := len(t.bases)
	for _, p := range points {
		if len(p) != nd {
			return nil, fmt.Errorf("%w: point %v has %d coordinates, want %d", ErrBadInput, p, len(p), nd)
		}
	}

	var vals []complex128
	switch method {
	case EvalDirect:
		vals = t.evalDirect(points, coeffs)
	case EvalVectorized:
		vals = t.evalTables(points, coeffs, false)
	case EvalFused:
		vals = t.evalTables(points, coeffs, true)
	default:
		return nil, fmt.Errorf("%w: unknown evaluation method %d", ErrBadInput, int(method))
	}

	t.comm.AllReduceSumComplex(vals)
	out := core.MustArray(t.physDt, len(points))
	for p, v := range vals {
		if t.physDt == core.Complex {
			out.Complex()[p] = v
		} else {
			out.Real()[p] = real(v)
		}
	}
	return out, nil
}

func (t *TensorProduct) evalDirect(points [][]float64, coeffs *core.Array) []complex128 {
	nd := len(t.bases)
	lo := t.specPen.Lo()
	weights := make([][]float64, nd)
	for i := range t.bases {
		weights[i] = t.halfWeights(i)
	}
	vals := make([]complex128, len(points))
	for p, x := range points {
		var sum complex128
		coeffs.ForEachIndex(func(ix []int, flat int) {
			term := coeffs.At(ix...)
			for i, b := range t.bases {
				k := lo[i] + ix[i]
				term *= b.Evaluate(b.DomainMap(x[i]), k) * complex(weights[i][k], 0)
			}
			sum += term
		})
		vals[p] = sum
	}
	return vals
}

// evalTables precomputes per-axis evaluation tables E[i][p][k] and
// contracts against them, either by a generic multi-index walk or by
// fused nested loops for 2-D and 3-D coefficients.
func (t *TensorProduct) evalTables(points [][]float64, coeffs *core.Array, fused bool) []complex128 {
	nd := len(t.bases)
	lo := t.specPen.Lo()
	sub := t.specPen.Subshape()

	tables := make([][][]complex128, nd)
	for i, b := range t.bases {
		w := t.halfWeights(i)
		tables[i] = make([][]complex128, len(points))
		for p, x := range points {
			row := make([]complex128, sub[i])
			xr := b.DomainMap(x[i])
			for j := 0; j < sub[i]; j++ {
				k := lo[i] + j
				row[j] = b.Evaluate(xr, k) * complex(w[k], 0)
			}
			tables[i][p] = row
		}
	}

	vals := make([]complex128, len(points))
	if fused && nd == 2 {
		for p := range points {
			e0, e1 := tables[0][p], tables[1][p]
			var sum complex128
			for i := 0; i < sub[0]; i++ {
				var inner complex128
				for j := 0; j < sub[1]; j++ {
					inner += e1[j] * coeffs.At(i, j)
				}
				sum += e0[i] * inner
			}
			vals[p] = sum
		}
		return vals
	}
	if fused && nd == 3 {
		for p := range points {
			e0, e1, e2 := tables[0][p], tables[1][p], tables[2][p]
			var sum complex128
			for i := 0; i < sub[0]; i++ {
				var mid complex128
				for j := 0; j < sub[1]; j++ {
					var inner complex128
					for k := 0; k < sub[2]; k++ {
						inner += e2[k] * coeffs.At(i, j, k)
					}
					mid += e1[j] * inner
				}
				sum += e0[i] * mid
			}
			vals[p] = sum
		}
		return vals
	}
	for p := range points {
		var sum complex128
		coeffs.ForEachIndex(func(ix []int, flat int) {
			term := coeffs.At(ix...)
			for i := range tables {
				term *= tables[i][p][ix[i]]
			}
			sum += term
		})
		vals[p] = sum
	}
	return vals
}
