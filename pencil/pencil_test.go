package pencil

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbl8/spectral/core"
	"github.com/sbl8/spectral/grid"
)

func runGroup(t *testing.T, size int, fn func(c *grid.Comm) error) {
	t.Helper()
	g, err := grid.NewGroup(size)
	require.NoError(t, err)
	require.NoError(t, g.Run(context.Background(), func(ctx context.Context, c *grid.Comm) error {
		return fn(c)
	}))
}

func TestSubgridCoords(t *testing.T) {
	var mu sync.Mutex
	coords := map[int][]int{}
	runGroup(t, 6, func(c *grid.Comm) error {
		s, err := NewSubgrid(c, []int{3, 2, 1})
		if err != nil {
			return err
		}
		mu.Lock()
		coords[c.Rank()] = s.Coords()
		mu.Unlock()

		// Axis comm sizes follow the dims; the rank within each axis
		// comm is the coordinate along that axis.
		for i, want := range []int{3, 2, 1} {
			assert.Equal(t, want, s.AxisComm(i).Size())
			assert.Equal(t, s.Coords()[i], s.AxisComm(i).Rank())
		}
		return nil
	})
	want := map[int][]int{
		0: {0, 0, 0}, 1: {0, 1, 0}, 2: {1, 0, 0},
		3: {1, 1, 0}, 4: {2, 0, 0}, 5: {2, 1, 0},
	}
	assert.Empty(t, cmp.Diff(want, coords))
}

func TestSubgridValidation(t *testing.T) {
	runGroup(t, 4, func(c *grid.Comm) error {
		_, err := NewSubgrid(c, []int{3, 1})
		assert.ErrorIs(t, err, ErrBadDecomposition)
		_, err = NewSubgrid(c, []int{4, 0})
		assert.ErrorIs(t, err, ErrBadDecomposition)
		return nil
	})
}

func TestPencilPartition(t *testing.T) {
	// Uneven extents: 7 over 3 ranks splits 3+2+2.
	var mu sync.Mutex
	type slice struct{ lo, sub []int }
	got := map[int]slice{}
	runGroup(t, 3, func(c *grid.Comm) error {
		s, err := NewSubgrid(c, []int{3, 1})
		if err != nil {
			return err
		}
		p, err := NewPencil(s, []int{7, 4}, 1)
		if err != nil {
			return err
		}
		mu.Lock()
		got[c.Rank()] = slice{lo: p.Lo(), sub: p.Subshape()}
		mu.Unlock()
		return nil
	})
	want := map[int]slice{
		0: {lo: []int{0, 0}, sub: []int{3, 4}},
		1: {lo: []int{3, 0}, sub: []int{2, 4}},
		2: {lo: []int{5, 0}, sub: []int{2, 4}},
	}
	assert.Empty(t, cmp.Diff(want, got, cmp.AllowUnexported(slice{})))
}

func TestPencilValidation(t *testing.T) {
	runGroup(t, 4, func(c *grid.Comm) error {
		s, err := NewSubgrid(c, []int{4, 1})
		if err != nil {
			return err
		}
		// Active axis must be held by one process.
		_, err = NewPencil(s, []int{8, 8}, 0)
		assert.ErrorIs(t, err, ErrBadDecomposition)
		// More processes than extent.
		_, err = NewPencil(s, []int{3, 8}, 1)
		assert.ErrorIs(t, err, ErrBadDecomposition)
		// Non-positive extent.
		_, err = NewPencil(s, []int{8, 0}, 1)
		assert.ErrorIs(t, err, ErrBadDecomposition)
		return nil
	})
}

func TestRepartitionSwapsOwnership(t *testing.T) {
	runGroup(t, 2, func(c *grid.Comm) error {
		s, err := NewSubgrid(c, []int{2, 1})
		if err != nil {
			return err
		}
		p, err := NewPencil(s, []int{6, 4}, 1)
		if err != nil {
			return err
		}
		q, err := p.Repartition(0)
		if err != nil {
			return err
		}
		assert.Equal(t, 0, q.Axis())
		assert.Equal(t, []int{6, 2}, q.Subshape())
		assert.Equal(t, []int{0, 2 * c.Rank()}, q.Lo())

		_, err = p.Repartition(1)
		assert.ErrorIs(t, err, ErrBadDecomposition)
		return nil
	})
}

// fillGlobal writes a value derived from the global index everywhere.
func fillGlobal(a *core.Array, lo []int) {
	a.ForEachIndex(func(ix []int, flat int) {
		v := 0
		for i, x := range ix {
			v = v*1000 + lo[i] + x
		}
		if a.Dtype() == core.Complex {
			a.Complex()[flat] = complex(float64(v), float64(-v))
		} else {
			a.Real()[flat] = float64(v)
		}
	})
}

func checkGlobal(t *testing.T, a *core.Array, lo []int) {
	want := a.Clone()
	fillGlobal(want, lo)
	assert.Zero(t, a.MaxAbsDiff(want))
}

func TestTransferRoundTrip(t *testing.T) {
	for _, dtype := range []core.Dtype{core.Complex, core.Real} {
		runGroup(t, 2, func(c *grid.Comm) error {
			s, err := NewSubgrid(c, []int{2, 1})
			if err != nil {
				return err
			}
			a, err := NewPencil(s, []int{5, 4}, 1)
			if err != nil {
				return err
			}
			b, err := a.Repartition(0)
			if err != nil {
				return err
			}
			tr, err := NewTransfer(a, b)
			if err != nil {
				return err
			}

			src := core.MustArray(dtype, a.Subshape()...)
			dst := core.MustArray(dtype, b.Subshape()...)
			fillGlobal(src, a.Lo())
			if err := tr.Forward(src, dst); err != nil {
				return err
			}
			// dst holds the same global values under b's ownership.
			checkGlobal(t, dst, b.Lo())

			back := core.MustArray(dtype, a.Subshape()...)
			if err := tr.Backward(dst, back); err != nil {
				return err
			}
			assert.Zero(t, src.MaxAbsDiff(back))
			return nil
		})
	}
}

func TestTransferThreeDim(t *testing.T) {
	runGroup(t, 4, func(c *grid.Comm) error {
		s, err := NewSubgrid(c, []int{2, 2, 1})
		if err != nil {
			return err
		}
		p2, err := NewPencil(s, []int{4, 5, 3}, 2)
		if err != nil {
			return err
		}
		p1, err := p2.Repartition(1)
		if err != nil {
			return err
		}
		p0, err := p1.Repartition(0)
		if err != nil {
			return err
		}
		t21, err := NewTransfer(p2, p1)
		if err != nil {
			return err
		}
		t10, err := NewTransfer(p1, p0)
		if err != nil {
			return err
		}

		a2 := core.MustArray(core.Complex, p2.Subshape()...)
		a1 := core.MustArray(core.Complex, p1.Subshape()...)
		a0 := core.MustArray(core.Complex, p0.Subshape()...)
		fillGlobal(a2, p2.Lo())
		if err := t21.Forward(a2, a1); err != nil {
			return err
		}
		checkGlobal(t, a1, p1.Lo())
		if err := t10.Forward(a1, a0); err != nil {
			return err
		}
		checkGlobal(t, a0, p0.Lo())

		// Walk back to the original pencil.
		if err := t10.Backward(a0, a1); err != nil {
			return err
		}
		back := core.MustArray(core.Complex, p2.Subshape()...)
		if err := t21.Backward(a1, back); err != nil {
			return err
		}
		assert.Zero(t, a2.MaxAbsDiff(back))
		return nil
	})
}

func TestTransferValidation(t *testing.T) {
	runGroup(t, 2, func(c *grid.Comm) error {
		s, err := NewSubgrid(c, []int{2, 1})
		if err != nil {
			return err
		}
		a, err := NewPencil(s, []int{5, 4}, 1)
		if err != nil {
			return err
		}
		_, err = NewTransfer(a, a)
		assert.ErrorIs(t, err, ErrBadTransfer)

		b, err := a.Repartition(0)
		if err != nil {
			return err
		}
		tr, err := NewTransfer(a, b)
		if err != nil {
			return err
		}
		src := core.MustArray(core.Complex, a.Subshape()...)
		bad := core.MustArray(core.Real, b.Subshape()...)
		assert.ErrorIs(t, tr.Forward(src, bad), ErrBadTransfer)
		return nil
	})
}

func TestResizedKeepsLayout(t *testing.T) {
	runGroup(t, 2, func(c *grid.Comm) error {
		s, err := NewSubgrid(c, []int{2, 1})
		if err != nil {
			return err
		}
		p, err := NewPencil(s, []int{6, 8}, 1)
		if err != nil {
			return err
		}
		// An r2c stage on the local axis shrinks it to n/2+1.
		q, err := p.Resized([]int{6, 5})
		if err != nil {
			return err
		}
		assert.Equal(t, 1, q.Axis())
		assert.Equal(t, []int{3, 5}, q.Subshape())
		assert.Equal(t, p.Lo()[0], q.Lo()[0])
		return nil
	})
}
