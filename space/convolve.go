package space

import (
	"fmt"

	"github.com/sbl8/spectral/basis"
	"github.com/sbl8/spectral/core"
)

// Convolver computes aliasing-free pointwise products of two spectral
// fields on a padded space: backward both onto the enlarged physical
// grid, multiply, forward the product. In truncating mode the result is
// sized like the inputs; in non-truncating mode an auxiliary unpadded
// space shaped like the padded grid retains the full product spectrum.
type Convolver struct {
	padded   *TensorProduct
	aux      *TensorProduct // nil in truncating mode
	physA    *core.Array
	physB    *core.Array
	product  *core.Array
	truncate bool
}

// NewConvolver plans a convolution on the padded space. The space must
// actually be padded; an unpadded grid would alias the product.
func NewConvolver(padded *TensorProduct, truncate bool) (*Convolver, error) {
	if !padded.padding {
		return nil, fmt.Errorf("%w: convolution space carries no padding", ErrBadPlan)
	}
	cv := &Convolver{
		padded:   padded,
		physA:    padded.NewPhysicalArray(),
		physB:    padded.NewPhysicalArray(),
		truncate: truncate,
	}
	if truncate {
		cv.product = padded.NewSpectralArray()
		return cv, nil
	}
	bases := make([]basis.Basis, len(padded.bases))
	for i, b := range padded.bases {
		nb, err := b.Resized(b.PhysLen(), 1)
		if err != nil {
			return nil, err
		}
		bases[i] = nb
	}
	aux, err := padded.rebuild(bases)
	if err != nil {
		return nil, err
	}
	cv.aux = aux
	cv.product = aux.NewSpectralArray()
	return cv, nil
}

// Space returns the space the product spectrum lives on: the padded space
// in truncating mode, the auxiliary full-bandwidth space otherwise.
func (cv *Convolver) Space() *TensorProduct {
	if cv.truncate {
		return cv.padded
	}
	return cv.aux
}

// NewResultArray allocates a spectral array for the product.
func (cv *Convolver) NewResultArray() *core.Array {
	return cv.Space().NewSpectralArray()
}

// Convolve computes the pointwise product of the fields behind the
// spectral inputs a and b, writing its spectrum to out.
func (cv *Convolver) Convolve(a, b, out *core.Array) error {
	if err := cv.padded.Backward(a, cv.physA); err != nil {
		return err
	}
	if err := cv.padded.Backward(b, cv.physB); err != nil {
		return err
	}
	if cv.physA.Dtype() == core.Complex {
		pa, pb := cv.physA.Complex(), cv.physB.Complex()
		for i := range pa {
			pa[i] *= pb[i]
		}
	} else {
		pa, pb := cv.physA.Real(), cv.physB.Real()
		for i := range pa {
			pa[i] *= pb[i]
		}
	}
	if cv.truncate {
		return cv.padded.Forward(cv.physA, out)
	}
	return cv.aux.Forward(cv.physA, out)
}

// Convolve is the one-shot form of Convolver for a single product.
func Convolve(padded *TensorProduct, a, b *core.Array, truncate bool) (*core.Array, error) {
	cv, err := NewConvolver(padded, truncate)
	if err != nil {
		return nil, err
	}
	out := cv.NewResultArray()
	if err := cv.Convolve(a, b, out); err != nil {
		return nil, err
	}
	return out, nil
}
