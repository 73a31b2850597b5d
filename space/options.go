package space

import (
	"go.uber.org/zap"

	"github.com/sbl8/spectral/core"
	"github.com/sbl8/spectral/pencil"
)

// SpaceOption configures a TensorProduct at construction time.
type SpaceOption func(*spaceOptions)

type spaceOptions struct {
	axes       [][]int
	slab       bool
	collapse   bool
	procGrid   []int
	log        *zap.Logger
	coords     Coordinates
	dtype      core.Dtype
	dtypeSet   bool
	fromPencil *pencil.Pencil
}

func applySpaceOptions(opts []SpaceOption) spaceOptions {
	o := spaceOptions{log: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// WithAxes fixes the axis transform order as groups in input order; the
// last group is transformed first. Default is one group per axis.
func WithAxes(groups ...[]int) SpaceOption {
	return func(o *spaceOptions) { o.axes = groups }
}

// WithSlab splits the process group along a single axis instead of a
// balanced multi-axis grid.
func WithSlab() SpaceOption {
	return func(o *spaceOptions) { o.slab = true }
}

// WithCollapseFourier merges consecutive unpadded Fourier groups whose
// axes need no communication, removing transfers between them.
func WithCollapseFourier() SpaceOption {
	return func(o *spaceOptions) { o.collapse = true }
}

// WithProcGrid supplies the per-axis process counts instead of deriving
// them. Axes in the first transform group must have count 1.
func WithProcGrid(dims ...int) SpaceOption {
	return func(o *spaceOptions) { o.procGrid = append([]int(nil), dims...) }
}

// WithLogger attaches a logger; plan construction logs at debug level.
func WithLogger(log *zap.Logger) SpaceOption {
	return func(o *spaceOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// WithCoordinates sets the coordinate-system metadata.
func WithCoordinates(c Coordinates) SpaceOption {
	return func(o *spaceOptions) { o.coords = c }
}

// WithDtype asserts the spectral element type the pipeline must end in;
// construction fails on a mismatch.
func WithDtype(dt core.Dtype) SpaceOption {
	return func(o *spaceOptions) { o.dtype, o.dtypeSet = dt, true }
}

// BackwardFromPencil requires the plan's spectral layout to coincide with
// a reference pencil, so a padded space can share coefficients with the
// unpadded space the pencil came from.
func BackwardFromPencil(p *pencil.Pencil) SpaceOption {
	return func(o *spaceOptions) { o.fromPencil = p }
}
