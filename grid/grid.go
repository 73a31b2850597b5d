// Package grid provides an in-process process group for data-parallel
// transforms. A Group runs P goroutine ranks; each rank holds a Comm whose
// collectives move data over per-pair channels. Comms can be split into
// subgroups the way MPI communicators are, which is what the pencil
// decomposition builds its per-axis exchanges on.
//
// Collective calls are ordered: every member of a communicator must invoke
// the same sequence of collectives. Each ordered rank pair carries a one
// message deep channel, so a rank sends at most one packet per peer before
// draining its own inbox.
package grid

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ErrBadGroup is returned for non-positive group sizes.
var ErrBadGroup = errors.New("grid: group size must be positive")

type packet struct {
	re []float64
	cx []complex128
}

// world is the shared state of one group run: the channel mesh plus the
// rendezvous table backing Split.
type world struct {
	size int
	ch   [][]chan packet

	mu     sync.Mutex
	cond   *sync.Cond
	splits map[string]*splitGather

	nextID atomic.Int64
}

type splitGather struct {
	need    int
	entries []splitEntry
	groups  map[int][]splitEntry
	done    bool
}

type splitEntry struct {
	worldRank int
	color     int
	key       int
}

func newWorld(size int) *world {
	w := &world{
		size:   size,
		ch:     make([][]chan packet, size),
		splits: make(map[string]*splitGather),
	}
	w.cond = sync.NewCond(&w.mu)
	for i := range w.ch {
		w.ch[i] = make([]chan packet, size)
		for j := range w.ch[i] {
			w.ch[i][j] = make(chan packet, 1)
		}
	}
	return w
}

// Group is a fixed-size set of goroutine ranks.
type Group struct {
	size int
}

// NewGroup creates a group of the given size.
func NewGroup(size int) (*Group, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadGroup, size)
	}
	return &Group{size: size}, nil
}

// Size returns the number of ranks.
func (g *Group) Size() int { return g.size }

// Run spawns one goroutine per rank and blocks until all return. The first
// error cancels the shared context; remaining ranks may block on a
// collective until they observe it, so rank bodies should check ctx at
// natural boundaries.
func (g *Group) Run(ctx context.Context, fn func(ctx context.Context, c *Comm) error) error {
	w := newWorld(g.size)
	eg, ctx := errgroup.WithContext(ctx)
	for rank := 0; rank < g.size; rank++ {
		members := make([]int, g.size)
		for i := range members {
			members[i] = i
		}
		c := &Comm{w: w, id: "world", rank: rank, members: members}
		eg.Go(func() error {
			return fn(ctx, c)
		})
	}
	return eg.Wait()
}

// Comm is one rank's handle on a communicator. Every member holds its own
// Comm value with the same id and member list.
type Comm struct {
	w       *world
	id      string
	rank    int
	members []int
	seq     int
}

// Single returns a standalone size-1 communicator for serial use.
func Single() *Comm {
	return &Comm{w: newWorld(1), id: "single", rank: 0, members: []int{0}}
}

// Rank returns this member's rank within the communicator.
func (c *Comm) Rank() int { return c.rank }

// Size returns the number of members.
func (c *Comm) Size() int { return len(c.members) }

func (c *Comm) send(peer int, p packet) {
	c.w.ch[c.members[c.rank]][c.members[peer]] <- p
}

// Packets are cloned on send so the caller may reuse its buffer the moment
// the collective returns, even if a peer drains its inbox late.
func cloneRe(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func cloneCx(v []complex128) []complex128 {
	out := make([]complex128, len(v))
	copy(out, v)
	return out
}

func (c *Comm) recv(peer int) packet {
	return <-c.w.ch[c.members[peer]][c.members[c.rank]]
}

// Barrier blocks until every member has entered it.
func (c *Comm) Barrier() {
	for peer := range c.members {
		if peer != c.rank {
			c.send(peer, packet{})
		}
	}
	for peer := range c.members {
		if peer != c.rank {
			c.recv(peer)
		}
	}
}

// AllToAllComplex exchanges one slice with every member: send[j] goes to
// rank j and recv[j] is filled with what rank j sent here. recv[j] must be
// sized to the incoming length.
func (c *Comm) AllToAllComplex(send, recv [][]complex128) {
	for peer := range c.members {
		if peer != c.rank {
			c.send(peer, packet{cx: cloneCx(send[peer])})
		}
	}
	copy(recv[c.rank], send[c.rank])
	for peer := range c.members {
		if peer != c.rank {
			copy(recv[peer], c.recv(peer).cx)
		}
	}
}

// AllToAllReal is AllToAllComplex for real payloads.
func (c *Comm) AllToAllReal(send, recv [][]float64) {
	for peer := range c.members {
		if peer != c.rank {
			c.send(peer, packet{re: cloneRe(send[peer])})
		}
	}
	copy(recv[c.rank], send[c.rank])
	for peer := range c.members {
		if peer != c.rank {
			copy(recv[peer], c.recv(peer).re)
		}
	}
}

// AllReduceSumComplex sums buf elementwise across members, in place.
func (c *Comm) AllReduceSumComplex(buf []complex128) {
	for peer := range c.members {
		if peer != c.rank {
			c.send(peer, packet{cx: cloneCx(buf)})
		}
	}
	acc := make([]complex128, len(buf))
	copy(acc, buf)
	for peer := range c.members {
		if peer != c.rank {
			for i, v := range c.recv(peer).cx {
				acc[i] += v
			}
		}
	}
	copy(buf, acc)
}

// AllReduceSumReal sums buf elementwise across members, in place.
func (c *Comm) AllReduceSumReal(buf []float64) {
	for peer := range c.members {
		if peer != c.rank {
			c.send(peer, packet{re: cloneRe(buf)})
		}
	}
	acc := make([]float64, len(buf))
	copy(acc, buf)
	for peer := range c.members {
		if peer != c.rank {
			for i, v := range c.recv(peer).re {
				acc[i] += v
			}
		}
	}
	copy(buf, acc)
}

// BcastReal copies root's buf to every member's buf.
func (c *Comm) BcastReal(buf []float64, root int) {
	if c.rank == root {
		for peer := range c.members {
			if peer != c.rank {
				c.send(peer, packet{re: cloneRe(buf)})
			}
		}
		return
	}
	copy(buf, c.recv(root).re)
}

// Split partitions the communicator by color. Members with the same color
// form a new communicator ordered by key, then by world rank. A negative
// color opts out and yields nil. Split is collective: every member must
// call it, in the same position in its collective sequence.
func (c *Comm) Split(color, key int) *Comm {
	c.seq++
	gatherKey := fmt.Sprintf("%s#%d", c.id, c.seq)

	w := c.w
	w.mu.Lock()
	g, ok := w.splits[gatherKey]
	if !ok {
		g = &splitGather{need: len(c.members)}
		w.splits[gatherKey] = g
	}
	g.entries = append(g.entries, splitEntry{worldRank: c.members[c.rank], color: color, key: key})
	if len(g.entries) == g.need {
		g.groups = make(map[int][]splitEntry)
		for _, e := range g.entries {
			if e.color >= 0 {
				g.groups[e.color] = append(g.groups[e.color], e)
			}
		}
		for _, list := range g.groups {
			sort.Slice(list, func(i, j int) bool {
				if list[i].key != list[j].key {
					return list[i].key < list[j].key
				}
				return list[i].worldRank < list[j].worldRank
			})
		}
		g.done = true
		w.cond.Broadcast()
	}
	for !g.done {
		w.cond.Wait()
	}
	var members []int
	myRank := -1
	if color >= 0 {
		list := g.groups[color]
		members = make([]int, len(list))
		for i, e := range list {
			members[i] = e.worldRank
			if e.worldRank == c.members[c.rank] {
				myRank = i
			}
		}
	}
	w.mu.Unlock()

	if color < 0 {
		return nil
	}
	return &Comm{
		w:       w,
		id:      fmt.Sprintf("%s/%d:%d", c.id, c.seq, color),
		rank:    myRank,
		members: members,
	}
}

// DimsCreate factors size into ndim grid extents, most balanced first and
// in non-increasing order, the way MPI_Dims_create does.
func DimsCreate(size, ndim int) []int {
	dims := make([]int, ndim)
	for i := range dims {
		dims[i] = 1
	}
	// Peel prime factors largest-first onto the currently smallest dim.
	rem := size
	var factors []int
	for f := 2; f*f <= rem; f++ {
		for rem%f == 0 {
			factors = append(factors, f)
			rem /= f
		}
	}
	if rem > 1 {
		factors = append(factors, rem)
	}
	for i := len(factors) - 1; i >= 0; i-- {
		min := 0
		for d := 1; d < ndim; d++ {
			if dims[d] < dims[min] {
				min = d
			}
		}
		dims[min] *= factors[i]
	}
	sort.Sort(sort.Reverse(sort.IntSlice(dims)))
	return dims
}
