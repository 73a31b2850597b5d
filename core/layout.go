package core

// rowMajorStrides computes element strides for a row-major layout.
func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
}

// Line addresses one 1-D run of elements along a fixed axis of an Array.
type Line struct {
	Base   int
	Stride int
	N      int
}

// ForEachLine calls fn once for every 1-D line along axis, in row-major order
// of the remaining (cross) indices. All arrays must agree on every extent
// except possibly along axis itself; fn receives one Line per array.
func ForEachLine(axis int, fn func(lines []Line), arrays ...*Array) {
	if len(arrays) == 0 {
		return
	}
	ndim := arrays[0].Ndim()
	cross := make([]int, 0, ndim-1)
	for i := 0; i < ndim; i++ {
		if i != axis {
			cross = append(cross, i)
		}
	}
	ix := make([]int, ndim)
	lines := make([]Line, len(arrays))
	for {
		for k, a := range arrays {
			lines[k] = Line{Base: a.FlatIndex(ix), Stride: a.strides[axis], N: a.shape[axis]}
		}
		fn(lines)
		// Advance the cross-index odometer.
		j := len(cross) - 1
		for ; j >= 0; j-- {
			ax := cross[j]
			ix[ax]++
			if ix[ax] < arrays[0].shape[ax] {
				break
			}
			ix[ax] = 0
		}
		if j < 0 {
			return
		}
	}
}

// GatherReal copies a strided real line into a contiguous slice.
func (a *Array) GatherReal(l Line, dst []float64) {
	for i := 0; i < l.N; i++ {
		dst[i] = a.re[l.Base+i*l.Stride]
	}
}

// ScatterReal copies a contiguous slice into a strided real line.
func (a *Array) ScatterReal(l Line, src []float64) {
	for i := 0; i < l.N; i++ {
		a.re[l.Base+i*l.Stride] = src[i]
	}
}

// GatherComplex copies a strided complex line into a contiguous slice.
func (a *Array) GatherComplex(l Line, dst []complex128) {
	for i := 0; i < l.N; i++ {
		dst[i] = a.cx[l.Base+i*l.Stride]
	}
}

// ScatterComplex copies a contiguous slice into a strided complex line.
func (a *Array) ScatterComplex(l Line, src []complex128) {
	for i := 0; i < l.N; i++ {
		a.cx[l.Base+i*l.Stride] = src[i]
	}
}

// GatherRealPart copies the real parts of a strided complex line.
func (a *Array) GatherRealPart(l Line, dst []float64) {
	for i := 0; i < l.N; i++ {
		dst[i] = real(a.cx[l.Base+i*l.Stride])
	}
}

// GatherImagPart copies the imaginary parts of a strided complex line.
func (a *Array) GatherImagPart(l Line, dst []float64) {
	for i := 0; i < l.N; i++ {
		dst[i] = imag(a.cx[l.Base+i*l.Stride])
	}
}

// ScatterParts recombines separately transformed real and imaginary parts
// into a strided complex line.
func (a *Array) ScatterParts(l Line, re, im []float64) {
	for i := 0; i < l.N; i++ {
		a.cx[l.Base+i*l.Stride] = complex(re[i], im[i])
	}
}

// BlockLen returns the element count of the block [lo, hi) per axis.
func BlockLen(lo, hi []int) int {
	n := 1
	for i := range lo {
		n *= hi[i] - lo[i]
	}
	return n
}

// forEachBlockIndex walks the block [lo, hi) in row-major order.
func forEachBlockIndex(lo, hi []int, fn func(ix []int)) {
	ix := append([]int(nil), lo...)
	for {
		fn(ix)
		j := len(ix) - 1
		for ; j >= 0; j-- {
			ix[j]++
			if ix[j] < hi[j] {
				break
			}
			ix[j] = lo[j]
		}
		if j < 0 {
			return
		}
	}
}

// PackBlockComplex flattens the block [lo, hi) of a complex array into dst,
// row-major, and returns the number of elements written.
func (a *Array) PackBlockComplex(lo, hi []int, dst []complex128) int {
	n := 0
	forEachBlockIndex(lo, hi, func(ix []int) {
		dst[n] = a.cx[a.FlatIndex(ix)]
		n++
	})
	return n
}

// UnpackBlockComplex scatters src into the block [lo, hi), row-major.
func (a *Array) UnpackBlockComplex(lo, hi []int, src []complex128) int {
	n := 0
	forEachBlockIndex(lo, hi, func(ix []int) {
		a.cx[a.FlatIndex(ix)] = src[n]
		n++
	})
	return n
}

// PackBlockReal flattens the block [lo, hi) of a real array into dst.
func (a *Array) PackBlockReal(lo, hi []int, dst []float64) int {
	n := 0
	forEachBlockIndex(lo, hi, func(ix []int) {
		dst[n] = a.re[a.FlatIndex(ix)]
		n++
	})
	return n
}

// UnpackBlockReal scatters src into the block [lo, hi) of a real array.
func (a *Array) UnpackBlockReal(lo, hi []int, src []float64) int {
	n := 0
	forEachBlockIndex(lo, hi, func(ix []int) {
		a.re[a.FlatIndex(ix)] = src[n]
		n++
	})
	return n
}

// ForEachIndex walks every multi-index of the array in row-major order.
func (a *Array) ForEachIndex(fn func(ix []int, flat int)) {
	lo := make([]int, len(a.shape))
	forEachBlockIndex(lo, a.shape, func(ix []int) {
		fn(ix, a.FlatIndex(ix))
	})
}
