package basis

// Option configures a basis at construction time. Bases are immutable once
// built; changing padding, boundary values or the active coefficient range
// means constructing a new basis.
type Option func(*options)

type options struct {
	padding float64
	bc      []any
	hasBC   bool
	sliceLo int
	sliceHi int
	sliced  bool
}

func applyOptions(opts []Option) options {
	o := options{padding: 1}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// WithPadding sets the padding factor: the quadrature mesh holds
// floor(n*factor) points while the modal size stays n.
func WithPadding(factor float64) Option {
	return func(o *options) { o.padding = factor }
}

// WithBC attaches boundary values, one per boundary dof in domain order.
// Each value is a float64, a []float64 over the boundary mesh, or a
// func(x []float64, t float64) float64.
func WithBC(values ...any) Option {
	return func(o *options) {
		o.bc = values
		o.hasBC = true
	}
}

// WithSlice restricts the active interior coefficient range to [lo, hi).
// Coefficients outside the range are held at zero by the forward transform.
// This replaces ad-hoc post-construction mutation of a basis's range.
func WithSlice(lo, hi int) Option {
	return func(o *options) {
		o.sliceLo, o.sliceHi = lo, hi
		o.sliced = true
	}
}
