package grid

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGroupRun(t *testing.T) {
	g, err := NewGroup(4)
	require.NoError(t, err)
	require.Equal(t, 4, g.Size())

	var mu sync.Mutex
	seen := map[int]bool{}
	err = g.Run(context.Background(), func(ctx context.Context, c *Comm) error {
		mu.Lock()
		seen[c.Rank()] = true
		mu.Unlock()
		assert.Equal(t, 4, c.Size())
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 4)

	_, err = NewGroup(0)
	assert.ErrorIs(t, err, ErrBadGroup)
}

func TestRunPropagatesError(t *testing.T) {
	g, err := NewGroup(3)
	require.NoError(t, err)
	boom := errors.New("boom")
	err = g.Run(context.Background(), func(ctx context.Context, c *Comm) error {
		if c.Rank() == 1 {
			return boom
		}
		<-ctx.Done()
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestAllToAllComplex(t *testing.T) {
	g, err := NewGroup(3)
	require.NoError(t, err)
	err = g.Run(context.Background(), func(ctx context.Context, c *Comm) error {
		send := make([][]complex128, 3)
		recv := make([][]complex128, 3)
		for j := range send {
			send[j] = []complex128{complex(float64(c.Rank()), float64(j))}
			recv[j] = make([]complex128, 1)
		}
		c.AllToAllComplex(send, recv)
		for j := range recv {
			assert.Equal(t, complex(float64(j), float64(c.Rank())), recv[j][0])
		}
		return nil
	})
	require.NoError(t, err)
}

func TestAllReduceSum(t *testing.T) {
	g, err := NewGroup(4)
	require.NoError(t, err)
	err = g.Run(context.Background(), func(ctx context.Context, c *Comm) error {
		re := []float64{float64(c.Rank()), 1}
		c.AllReduceSumReal(re)
		assert.Equal(t, []float64{6, 4}, re)

		cx := []complex128{complex(1, float64(c.Rank()))}
		c.AllReduceSumComplex(cx)
		assert.Equal(t, complex(4, 6), cx[0])
		return nil
	})
	require.NoError(t, err)
}

func TestBcastReal(t *testing.T) {
	g, err := NewGroup(3)
	require.NoError(t, err)
	err = g.Run(context.Background(), func(ctx context.Context, c *Comm) error {
		buf := make([]float64, 2)
		if c.Rank() == 1 {
			buf[0], buf[1] = 3.5, -1
		}
		c.BcastReal(buf, 1)
		assert.Equal(t, []float64{3.5, -1}, buf)
		return nil
	})
	require.NoError(t, err)
}

func TestSplit(t *testing.T) {
	g, err := NewGroup(6)
	require.NoError(t, err)
	err = g.Run(context.Background(), func(ctx context.Context, c *Comm) error {
		// Two colors of three ranks each, ordered by descending world
		// rank via the key.
		sub := c.Split(c.Rank()%2, -c.Rank())
		require.NotNil(t, sub)
		require.Equal(t, 3, sub.Size())

		// Highest world rank gets key -5 or -4, hence sub rank 0.
		want := 2 - c.Rank()/2
		assert.Equal(t, want, sub.Rank())

		// The subgroup is a working communicator.
		buf := []float64{1}
		sub.AllReduceSumReal(buf)
		assert.Equal(t, 3.0, buf[0])

		// Nested split back to singletons.
		solo := sub.Split(sub.Rank(), 0)
		require.NotNil(t, solo)
		assert.Equal(t, 1, solo.Size())
		assert.Equal(t, 0, solo.Rank())
		return nil
	})
	require.NoError(t, err)
}

func TestSplitOptOut(t *testing.T) {
	g, err := NewGroup(4)
	require.NoError(t, err)
	err = g.Run(context.Background(), func(ctx context.Context, c *Comm) error {
		color := 0
		if c.Rank() == 3 {
			color = -1
		}
		sub := c.Split(color, c.Rank())
		if c.Rank() == 3 {
			assert.Nil(t, sub)
			return nil
		}
		require.NotNil(t, sub)
		assert.Equal(t, 3, sub.Size())
		assert.Equal(t, c.Rank(), sub.Rank())
		return nil
	})
	require.NoError(t, err)
}

func TestSingle(t *testing.T) {
	c := Single()
	assert.Equal(t, 0, c.Rank())
	assert.Equal(t, 1, c.Size())
	c.Barrier()
	buf := []complex128{2i}
	c.AllReduceSumComplex(buf)
	assert.Equal(t, 2i, buf[0])
}

func TestDimsCreate(t *testing.T) {
	for _, tc := range []struct {
		size, ndim int
		want       []int
	}{
		{12, 2, []int{4, 3}},
		{12, 3, []int{3, 2, 2}},
		{7, 2, []int{7, 1}},
		{1, 3, []int{1, 1, 1}},
		{16, 2, []int{4, 4}},
	} {
		got := DimsCreate(tc.size, tc.ndim)
		prod := 1
		for _, d := range got {
			prod *= d
		}
		assert.Equal(t, tc.size, prod, "size=%d ndim=%d", tc.size, tc.ndim)
		assert.Equal(t, tc.want, got, "size=%d ndim=%d", tc.size, tc.ndim)
	}
}
